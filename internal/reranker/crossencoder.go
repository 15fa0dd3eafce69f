package reranker

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

var tracer = otel.Tracer("ragd.reranker")

// Scorer scores (query, passage) pairs. Higher is more relevant.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float32, error)
}

// ScorerLoader lazily constructs a Scorer. Loading a cross-encoder model can
// fail (missing model files, no ONNX runtime); the reranker then runs in
// degraded mode.
type ScorerLoader func() (Scorer, error)

// CrossEncoder reranks by scoring each (query, child text) pair with a local
// model. If the model cannot be loaded the incoming ranking passes through.
type CrossEncoder struct {
	loader   ScorerLoader
	loadOnce sync.Once
	scorer   Scorer
	degraded bool
	logger   *zap.Logger
}

// NewCrossEncoder creates a cross-encoder reranker. The scorer is loaded on
// first use.
func NewCrossEncoder(loader ScorerLoader, logger *zap.Logger) *CrossEncoder {
	return &CrossEncoder{loader: loader, logger: logger}
}

// Rerank scores all candidates and returns the top topN by model score.
// In degraded mode the original order is preserved and truncated.
func (r *CrossEncoder) Rerank(ctx context.Context, query string, candidates []retriever.Candidate, topN int) ([]retriever.Candidate, error) {
	ctx, span := tracer.Start(ctx, "CrossEncoder.Rerank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("top_n", topN),
	)

	if len(candidates) == 0 {
		return candidates, nil
	}

	// One reranker serves all requests, so the load must not race.
	r.loadOnce.Do(func() {
		scorer, err := r.loader()
		if err != nil {
			r.degraded = true
			r.logger.Warn("cross-encoder unavailable, passing candidates through",
				zap.Error(err))
			return
		}
		r.scorer = scorer
	})
	if r.degraded {
		span.SetAttributes(attribute.Bool("degraded", true))
		return passthrough(candidates, topN), nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Payload.ChildText
	}

	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		r.logger.Warn("cross-encoder scoring failed, passing candidates through",
			zap.Error(err))
		span.SetAttributes(attribute.Bool("degraded", true))
		return passthrough(candidates, topN), nil
	}

	reranked := make([]retriever.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return passthrough(reranked, topN), nil
}
