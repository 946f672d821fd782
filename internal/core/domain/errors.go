package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Input errors fail fast and are never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthInvalid indicates missing or rejected provider
	// credentials. Auth failures are fatal, never retried.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding endpoint could
	// not be reached. Unlike an HTTP error status, no response was
	// obtained at all.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Reranking and answer synthesis are disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
