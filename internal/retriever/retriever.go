// Package retriever turns a query string into a ranked candidate set.
//
// The default strategy embeds the query twice (dense and sparse), issues a
// fused query against the vector index, and optionally re-selects the result
// set with Maximal Marginal Relevance for diversity. A small in-process cache
// short-circuits repeated queries.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var tracer = otel.Tracer("ragd.retriever")

// ErrEmbeddingUnavailable indicates the query could not be embedded. The
// caller degrades to an in-stream error rather than failing the request.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// Candidate is a retrieved chunk with its provenance scores.
type Candidate struct {
	ID      string
	Payload vectorstore.Payload
	// Score is the fused rank score (RRF) or the combined score under the
	// lexical strategy.
	Score float32
	// VectorScore and BM25Score are the pre-combination components, set
	// only by the lexical strategy.
	VectorScore float32
	BM25Score   float32
	// Vector is the stored dense vector when MMR requested it.
	Vector []float32
}

// Options control a single search call.
type Options struct {
	// UseMMR re-selects the fused candidates for diversity.
	UseMMR bool
	// BypassCache skips the read side of the result cache. The result is
	// still written back.
	BypassCache bool
	// SparseText, when set, is encoded for the sparse sub-query in place
	// of the query itself. Expansion terms sharpen lexical matching
	// without skewing the dense embedding.
	SparseText string
}

// Store is the vector index surface the retriever needs.
type Store interface {
	HybridQuery(ctx context.Context, dense []float32, sparse vectorstore.SparseQuery, perQueryLimit, limit uint64, withVectors bool) ([]vectorstore.ScoredPoint, error)
	DenseQuery(ctx context.Context, dense []float32, limit uint64) ([]vectorstore.ScoredPoint, error)
	Scroll(ctx context.Context, fn func(vectorstore.ScoredPoint) bool) error
}

// Config holds retriever tuning knobs.
type Config struct {
	// PrefetchMultiplier scales the per-sub-query candidate pool. Each
	// prefetch retrieves limit*PrefetchMultiplier before fusion.
	PrefetchMultiplier int `koanf:"prefetch_multiplier"`
	// MMRPoolMultiplier scales both the prefetch pools and the fused pool
	// when MMR re-selection needs room for diversity.
	MMRPoolMultiplier int `koanf:"mmr_pool_multiplier"`
	// MMRLambda balances relevance against diversity in [0,1].
	MMRLambda float32 `koanf:"mmr_lambda"`
	// CacheSize bounds the in-process result cache. 0 disables caching.
	CacheSize int `koanf:"cache_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.PrefetchMultiplier == 0 {
		c.PrefetchMultiplier = 2
	}
	if c.MMRPoolMultiplier == 0 {
		c.MMRPoolMultiplier = 3
	}
	if c.MMRLambda == 0 {
		c.MMRLambda = 0.7
	}
	if c.CacheSize == 0 {
		c.CacheSize = 128
	}
}

// Retriever executes hybrid searches against the vector store.
type Retriever struct {
	store   Store
	dense   embeddings.Provider
	sparse  embeddings.SparseEncoder
	cache   *resultCache
	config  Config
	logger  *zap.Logger
	lexical *lexicalIndex
}

// New creates a Retriever.
func New(store Store, dense embeddings.Provider, sparse embeddings.SparseEncoder, cfg Config, logger *zap.Logger) *Retriever {
	cfg.ApplyDefaults()
	return &Retriever{
		store:   store,
		dense:   dense,
		sparse:  sparse,
		cache:   newResultCache(cfg.CacheSize),
		config:  cfg,
		logger:  logger,
		lexical: newLexicalIndex(store),
	}
}

// Search retrieves up to limit candidates for the query, ranked by fused
// relevance. The embedding step failing returns ErrEmbeddingUnavailable; an
// index failure surfaces the store's typed error.
func (r *Retriever) Search(ctx context.Context, query string, limit int, opts Options) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Bool("use_mmr", opts.UseMMR),
	)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	sparseText := query
	if opts.SparseText != "" {
		sparseText = opts.SparseText
	}

	key := cacheKey(query, sparseText, limit, opts.UseMMR)
	if !opts.BypassCache {
		if cached, ok := r.cache.get(key); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
	}

	denseVec, err := r.dense.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	sparseVec := r.sparse.Encode(sparseText)

	var candidates []Candidate
	if opts.UseMMR {
		candidates, err = r.searchMMR(ctx, denseVec, sparseVec, limit)
	} else {
		candidates, err = r.searchFused(ctx, denseVec, sparseVec, limit)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.cache.put(key, candidates)
	span.SetAttributes(attribute.Int("results", len(candidates)))
	return candidates, nil
}

// searchFused runs the plain fused query path.
func (r *Retriever) searchFused(ctx context.Context, dense []float32, sparse embeddings.SparseVector, limit int) ([]Candidate, error) {
	perQuery := uint64(limit * r.config.PrefetchMultiplier)
	hits, err := r.store.HybridQuery(ctx, dense, vectorstore.SparseQuery{
		Indices: sparse.Indices,
		Values:  sparse.Values,
	}, perQuery, uint64(limit), false)
	if err != nil {
		return nil, err
	}
	return toCandidates(hits), nil
}

// searchMMR over-fetches a fused pool with vectors, then greedily re-selects
// limit candidates trading relevance against redundancy.
func (r *Retriever) searchMMR(ctx context.Context, dense []float32, sparse embeddings.SparseVector, limit int) ([]Candidate, error) {
	pool := uint64(limit * r.config.MMRPoolMultiplier)
	hits, err := r.store.HybridQuery(ctx, dense, vectorstore.SparseQuery{
		Indices: sparse.Indices,
		Values:  sparse.Values,
	}, pool, pool, true)
	if err != nil {
		return nil, err
	}
	return applyMMR(toCandidates(hits), dense, limit, r.config.MMRLambda), nil
}

func toCandidates(hits []vectorstore.ScoredPoint) []Candidate {
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{
			ID:      h.ID,
			Payload: h.Payload,
			Score:   h.Score,
			Vector:  h.Vector,
		}
	}
	return out
}

func cacheKey(query, sparseText string, limit int, mmr bool) string {
	return fmt.Sprintf("%s|%s|%d|%t", query, sparseText, limit, mmr)
}
