package reranker

import (
	"context"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
)

// LexicalScorer scores passages by the fraction of query terms they contain.
// It is the zero-dependency fallback when no cross-encoder model is
// available, and doubles as a cheap tie-breaker in tests.
type LexicalScorer struct{}

// NewLexicalScorer creates a term-overlap scorer.
func NewLexicalScorer() *LexicalScorer { return &LexicalScorer{} }

// Score returns, per passage, the ratio of unique query terms present in
// the passage, in [0,1]. A query with no content terms scores everything 0.
func (s *LexicalScorer) Score(_ context.Context, query string, passages []string) ([]float32, error) {
	queryTerms := embeddings.Tokenize(query)
	scores := make([]float32, len(passages))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	unique := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		unique[t] = true
	}

	for i, passage := range passages {
		present := make(map[string]bool)
		for _, t := range embeddings.Tokenize(passage) {
			if unique[t] {
				present[t] = true
			}
		}
		scores[i] = float32(len(present)) / float32(len(unique))
	}
	return scores, nil
}
