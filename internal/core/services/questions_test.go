package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
)

// questionFixture wires a sparse-only pipeline over one ingested
// report for the company "Acme".
func questionFixture(t *testing.T, llm driven.LLMService, cfg ProcessorConfig) *QuestionProcessor {
	t.Helper()

	store := newMemStore()
	seedSparseReport(t, store, "r1", "Acme", []string{
		"total revenue was 100 million euros",
		"the company employed 5000 people",
	})

	catalog := newMemCatalog()
	require.NoError(t, catalog.Put(context.Background(), domain.ReportMeta{
		SHA1:        "r1",
		CompanyName: "Acme",
		PageCount:   2,
	}))

	retriever := NewRetriever(store, nil)
	cfg.Sparse = true
	return NewQuestionProcessor(retriever, nil, NewSynthesizer(llm), catalog, cfg)
}

func schemaLLM(answer string) *mockLLM {
	return &mockLLM{
		chatFn: func(_ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
			return `{
				"step_by_step_analysis": "Found in context.",
				"reasoning_summary": "Lookup.",
				"relevant_pages": [1],
				"final_answer": ` + answer + `
			}`, nil
		},
	}
}

func TestAnswerQuestion_EmptyText(t *testing.T) {
	p := questionFixture(t, schemaLLM(`"x"`), ProcessorConfig{})
	_, err := p.AnswerQuestion(context.Background(), domain.Question{Companies: []string{"Acme"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerQuestion_NoCompanies(t *testing.T) {
	p := questionFixture(t, schemaLLM(`"x"`), ProcessorConfig{})
	_, err := p.AnswerQuestion(context.Background(), domain.Question{
		Text: "What was the revenue?",
		Kind: domain.AnswerKindText,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerQuestion_UnknownCompany(t *testing.T) {
	p := questionFixture(t, schemaLLM(`"x"`), ProcessorConfig{})
	_, err := p.AnswerQuestion(context.Background(), domain.Question{
		Text:      "What was the revenue?",
		Kind:      domain.AnswerKindText,
		Companies: []string{"Globex"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnswerQuestion_EndToEnd(t *testing.T) {
	p := questionFixture(t, schemaLLM(`100`), ProcessorConfig{})

	record, err := p.AnswerQuestion(context.Background(), domain.Question{
		Text:      "What was the total revenue?",
		Kind:      domain.AnswerKindNumber,
		Companies: []string{"acme"}, // case-insensitive resolution
	})
	require.NoError(t, err)
	assert.Equal(t, float64(100), record.FinalAnswer.Number)
	assert.NotEmpty(t, record.Sources)
	assert.Equal(t, "r1", record.Sources[0].ReportSHA1)
}

func TestAnswerQuestion_NormalizesKindAlias(t *testing.T) {
	p := questionFixture(t, schemaLLM(`"yes"`), ProcessorConfig{})

	record, err := p.AnswerQuestion(context.Background(), domain.Question{
		Text:      "Did revenue grow?",
		Kind:      domain.AnswerKind("bool"),
		Companies: []string{"Acme"},
	})
	require.NoError(t, err)

	// The alias reaches the boolean coercion, not the text default.
	assert.Equal(t, domain.AnswerKindBoolean, record.Kind)
	assert.Equal(t, domain.AnswerKindBoolean, record.FinalAnswer.Kind)
	assert.True(t, record.FinalAnswer.Boolean)
}

func TestAnswerQuestion_ParentRetrieval(t *testing.T) {
	var userPrompt string
	llm := &mockLLM{
		chatFn: func(messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
			userPrompt = messages[1].Content
			return `{"final_answer": "5000"}`, nil
		},
	}
	p := questionFixture(t, llm, ProcessorConfig{ParentRetrieval: true})

	_, err := p.AnswerQuestion(context.Background(), domain.Question{
		Text:      "How many employees?",
		Kind:      domain.AnswerKindText,
		Companies: []string{"Acme"},
	})
	require.NoError(t, err)
	// Page-level context carries the full page text.
	assert.Contains(t, userPrompt, "the company employed 5000 people")
}

func TestProcessQuestions_WritesAnswersFile(t *testing.T) {
	dir := t.TempDir()
	p := questionFixture(t, schemaLLM(`"fine"`), ProcessorConfig{
		OutputDir:        dir,
		ParallelRequests: 2,
		PipelineDetails:  "sparse-only test run",
	})

	questions := []domain.Question{
		{Text: "What was the revenue?", Kind: domain.AnswerKindText, Companies: []string{"Acme"}},
		{Text: "How many employees?", Kind: domain.AnswerKindText, Companies: []string{"Acme"}},
	}

	summary, err := p.ProcessQuestions(context.Background(), questions)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, filepath.Join(dir, "answers.json"), summary.OutputPath)
	require.Len(t, summary.Outcomes, 2)
	for _, o := range summary.Outcomes {
		assert.NoError(t, o.Err)
		assert.NotNil(t, o.Record)
	}

	data, err := os.ReadFile(summary.OutputPath)
	require.NoError(t, err)

	var out struct {
		RunID           string `json:"run_id"`
		PipelineDetails string `json:"pipeline_details"`
		Answers         []struct {
			Question string `json:"question"`
			Error    string `json:"error"`
		} `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, summary.RunID, out.RunID)
	assert.Equal(t, "sparse-only test run", out.PipelineDetails)
	require.Len(t, out.Answers, 2)
	assert.Equal(t, "What was the revenue?", out.Answers[0].Question)
	assert.Empty(t, out.Answers[0].Error)
}

func TestProcessQuestions_RecordsFailures(t *testing.T) {
	dir := t.TempDir()
	p := questionFixture(t, schemaLLM(`"ok"`), ProcessorConfig{OutputDir: dir})

	questions := []domain.Question{
		{Text: "What was the revenue?", Kind: domain.AnswerKindText, Companies: []string{"Acme"}},
		{Text: "Anything?", Kind: domain.AnswerKindText, Companies: []string{"Globex"}},
	}

	summary, err := p.ProcessQuestions(context.Background(), questions)
	require.NoError(t, err)
	assert.NoError(t, summary.Outcomes[0].Err)
	assert.Error(t, summary.Outcomes[1].Err)

	data, err := os.ReadFile(summary.OutputPath)
	require.NoError(t, err)

	var out struct {
		Answers []struct {
			Question string `json:"question"`
			Error    string `json:"error"`
		} `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Answers, 2)
	assert.Empty(t, out.Answers[0].Error)
	assert.NotEmpty(t, out.Answers[1].Error)
	assert.Equal(t, "Anything?", out.Answers[1].Question)
}

func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "answers.json")

	assert.Equal(t, base, NextAvailablePath(base))

	require.NoError(t, os.WriteFile(base, []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "answers_01.json"), NextAvailablePath(base))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "answers_01.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "answers_02.json"), NextAvailablePath(base))
}
