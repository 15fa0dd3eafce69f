// Package embeddings provides dense and sparse query/document encoders.
//
// Dense embeddings come from a local ONNX model via fastembed. Sparse
// embeddings are term-weight vectors produced locally so the vector index can
// run lexical matching alongside semantic search.
package embeddings

import "context"

// Provider generates dense embeddings for queries and documents.
type Provider interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of passage texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int

	// Close releases model resources.
	Close() error
}

// SparseVector is a mostly-zero term-weight vector in index/value form.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// IsZero reports whether the vector has no non-zero terms.
func (v SparseVector) IsZero() bool { return len(v.Indices) == 0 }

// SparseEncoder produces sparse term-weight vectors from text.
type SparseEncoder interface {
	Encode(text string) SparseVector
}
