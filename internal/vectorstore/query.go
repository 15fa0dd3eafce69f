package vectorstore

import "github.com/qdrant/go-client/qdrant"

// SparseQuery is a sparse query vector in parallel index/value form.
type SparseQuery struct {
	Indices []uint32
	Values  []float32
}

// IsZero reports whether the sparse query carries no terms.
func (q SparseQuery) IsZero() bool { return len(q.Indices) == 0 }

// buildHybridQuery constructs the fused query request: one prefetch per
// vector space, each capped at perQueryLimit, fused server-side with
// Reciprocal Rank Fusion. A zero sparse query degrades to dense-only
// prefetch so queries made of stopwords still retrieve.
func buildHybridQuery(collection string, dense []float32, sparse SparseQuery, perQueryLimit, limit uint64, withVectors bool) *qdrant.QueryPoints {
	prefetch := []*qdrant.PrefetchQuery{
		{
			Query: qdrant.NewQueryDense(dense),
			Using: qdrant.PtrOf(DenseVectorName),
			Limit: qdrant.PtrOf(perQueryLimit),
		},
	}
	if !sparse.IsZero() {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query: qdrant.NewQuerySparse(sparse.Indices, sparse.Values),
			Using: qdrant.PtrOf(SparseVectorName),
			Limit: qdrant.PtrOf(perQueryLimit),
		})
	}

	return &qdrant.QueryPoints{
		CollectionName: collection,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	}
}
