package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/finqa-cli/internal/retry"
)

func testLLMConfig(url string) LLMConfig {
	return LLMConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Retry:   retry.Policy{MaxAttempts: 2, Delay: time.Millisecond},
	}
}

func completionServer(t *testing.T, completion string, capture *chatCompletionRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		resp := chatCompletionResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{})
		resp.Choices[0].Message.Content = completion
		resp.Choices[0].FinishReason = "stop"
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestChat_ReturnsCompletion(t *testing.T) {
	var captured chatCompletionRequest
	srv := completionServer(t, `{"final_answer": 42}`, &captured)
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "answer questions"},
		{Role: "user", Content: "what is the answer?"},
	}, driven.ChatOptions{MaxTokens: 100, JSONObject: true})
	require.NoError(t, err)
	assert.Equal(t, `{"final_answer": 42}`, out)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, 100, captured.MaxTokens)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestChat_NoJSONObjectOmitsResponseFormat(t *testing.T) {
	var captured chatCompletionRequest
	srv := completionServer(t, "plain text", &captured)
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "hi"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Nil(t, captured.ResponseFormat)
}

func TestChat_NoMessages(t *testing.T) {
	svc, err := NewLLMService(testLLMConfig("http://unused"))
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_AuthErrorNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}},
		driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestChat_TransientErrorRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := chatCompletionResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{})
		resp.Choices[0].Message.Content = "recovered"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}},
		driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	}))
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hi"}},
		driven.ChatOptions{})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, err := NewLLMService(testLLMConfig(srv.URL))
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))
}
