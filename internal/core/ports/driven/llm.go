package driven

import "context"

// LLMService provides language model completions for reranking and
// answer synthesis. The core never trusts its output shape: rerank
// responses go through candidate-id validation and synthesis
// completions through the tiered parse/repair chain.
type LLMService interface {
	// Chat conducts a single-turn or multi-turn exchange and returns
	// the raw completion text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// JSONObject requests a JSON-object response format when the
	// provider supports it. Callers must still run the completion
	// through the parse/repair chain.
	JSONObject bool
}
