// Package reranker rescores retrieved candidates against the query.
//
// Two implementations exist: a cross-encoder style scorer backed by a local
// model, and an LLM judge that asks the generation model to grade relevance.
// Both degrade gracefully: a reranker that cannot score passes the original
// ranking through unchanged.
package reranker

import (
	"context"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

// Reranker reorders candidates by query relevance and truncates to topN.
type Reranker interface {
	// Rerank returns at most topN candidates in descending relevance order.
	// Implementations never fail the request over scoring problems; they
	// fall back to the incoming order instead.
	Rerank(ctx context.Context, query string, candidates []retriever.Candidate, topN int) ([]retriever.Candidate, error)
}

// Noop keeps the retrieval order and only enforces the topN cap.
type Noop struct{}

// Rerank returns the first topN candidates unchanged.
func (Noop) Rerank(_ context.Context, _ string, candidates []retriever.Candidate, topN int) ([]retriever.Candidate, error) {
	return passthrough(candidates, topN), nil
}

// passthrough truncates the incoming ranking to topN.
func passthrough(candidates []retriever.Candidate, topN int) []retriever.Candidate {
	if topN <= 0 || topN >= len(candidates) {
		return candidates
	}
	return candidates[:topN]
}
