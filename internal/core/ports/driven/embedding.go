package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations must distinguish authentication failure
// (domain.ErrAuthInvalid) from transient failure so callers can apply
// the correct retry policy: transient errors are retried with fixed
// backoff, auth errors are fatal.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently,
	// preserving input order. Batching and rate budgeting are the
	// implementation's responsibility.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. This is fixed
	// process-wide and must match the dense index configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable and the credentials are
	// accepted, without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
