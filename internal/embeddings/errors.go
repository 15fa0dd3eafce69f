package embeddings

import "errors"

var (
	// ErrInvalidConfig indicates an unsupported model or bad configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmptyInput indicates empty text was passed for embedding.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingFailed indicates the underlying model failed to produce
	// an embedding.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
