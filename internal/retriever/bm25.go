package retriever

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// BM25 parameters (Okapi defaults).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Weights for the legacy combined score.
const (
	lexicalVectorWeight = 0.6
	lexicalBM25Weight   = 0.4
)

// lexicalIndex is an in-memory BM25 index over the whole collection, built
// lazily by scrolling the vector store. It backs the legacy lexical
// strategy that predates sparse vectors in the index itself.
type lexicalIndex struct {
	store Store

	once     sync.Once
	buildErr error

	docs      []lexicalDoc
	docFreq   map[string]int
	avgLength float64
}

type lexicalDoc struct {
	id       string
	payload  vectorstore.Payload
	termFreq map[string]int
	length   int
}

func newLexicalIndex(store Store) *lexicalIndex {
	return &lexicalIndex{
		store:   store,
		docFreq: make(map[string]int),
	}
}

// build scrolls the collection once and computes term statistics.
func (idx *lexicalIndex) build(ctx context.Context) error {
	idx.once.Do(func() {
		var totalLength int
		idx.buildErr = idx.store.Scroll(ctx, func(p vectorstore.ScoredPoint) bool {
			terms := embeddings.Tokenize(p.Payload.ChildText)
			tf := make(map[string]int, len(terms))
			for _, t := range terms {
				tf[t]++
			}
			for t := range tf {
				idx.docFreq[t]++
			}
			idx.docs = append(idx.docs, lexicalDoc{
				id:       p.ID,
				payload:  p.Payload,
				termFreq: tf,
				length:   len(terms),
			})
			totalLength += len(terms)
			return true
		})
		if len(idx.docs) > 0 {
			idx.avgLength = float64(totalLength) / float64(len(idx.docs))
		}
	})
	return idx.buildErr
}

// score computes BM25 scores for every indexed document.
func (idx *lexicalIndex) score(query string) map[string]float32 {
	terms := embeddings.Tokenize(query)
	scores := make(map[string]float32, len(idx.docs))
	n := float64(len(idx.docs))

	for _, doc := range idx.docs {
		var s float64
		for _, term := range terms {
			tf := float64(doc.termFreq[term])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(doc.length)/idx.avgLength))
			s += idf * norm
		}
		if s > 0 {
			scores[doc.id] = float32(s)
		}
	}
	return scores
}

// SearchLexical is the legacy strategy: dense retrieval combined with an
// in-memory BM25 score, each min-max normalized, weighted 0.6/0.4.
func (r *Retriever) SearchLexical(ctx context.Context, query string, limit int) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "Retriever.SearchLexical")
	defer span.End()

	denseVec, err := r.dense.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, ErrEmbeddingUnavailable
	}

	hits, err := r.store.DenseQuery(ctx, denseVec, uint64(limit*r.config.PrefetchMultiplier))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.lexical.build(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	bm25Scores := r.lexical.score(query)

	candidates := combineLexical(toCandidates(hits), bm25Scores)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// combineLexical min-max normalizes the vector and BM25 score sets over the
// candidate pool and ranks by the weighted combination.
func combineLexical(candidates []Candidate, bm25Scores map[string]float32) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	vecScores := make([]float32, len(candidates))
	lexScores := make([]float32, len(candidates))
	for i, c := range candidates {
		vecScores[i] = c.Score
		lexScores[i] = bm25Scores[c.ID]
	}
	vecNorm := minMaxNormalize(vecScores)
	lexNorm := minMaxNormalize(lexScores)

	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.VectorScore = vecNorm[i]
		c.BM25Score = lexNorm[i]
		c.Score = lexicalVectorWeight*vecNorm[i] + lexicalBM25Weight*lexNorm[i]
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// minMaxNormalize scales scores into [0,1]. A constant score set maps to
// all ones so the weighting still sees a usable signal.
func minMaxNormalize(scores []float32) []float32 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float32, len(scores))
	if max == min {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}
