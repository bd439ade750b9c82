package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document type or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConfigNotFound indicates no configuration file exists yet.
	ErrConfigNotFound = errors.New("config not found")

	// Pipeline Errors.

	// ErrRetrievalFailed indicates the chunk store query failed.
	// The pipeline reports it as an error confidence, never as an empty result.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationFailed indicates the answer generator failed.
	ErrGenerationFailed = errors.New("generation failed")

	// Backend Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the chunk store cannot be reached.
	ErrStoreUnavailable = errors.New("chunk store unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
