package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"

	"go.uber.org/zap"
)

type fakeStore struct {
	hybridHits  []vectorstore.ScoredPoint
	hybridErr   error
	hybridCalls int
	lastPerQ    uint64
	lastLimit   uint64
	lastVectors bool

	denseHits []vectorstore.ScoredPoint
	scrollPts []vectorstore.ScoredPoint
}

func (f *fakeStore) HybridQuery(_ context.Context, _ []float32, _ vectorstore.SparseQuery, perQueryLimit, limit uint64, withVectors bool) ([]vectorstore.ScoredPoint, error) {
	f.hybridCalls++
	f.lastPerQ = perQueryLimit
	f.lastLimit = limit
	f.lastVectors = withVectors
	return f.hybridHits, f.hybridErr
}

func (f *fakeStore) DenseQuery(_ context.Context, _ []float32, _ uint64) ([]vectorstore.ScoredPoint, error) {
	return f.denseHits, nil
}

func (f *fakeStore) Scroll(_ context.Context, fn func(vectorstore.ScoredPoint) bool) error {
	for _, p := range f.scrollPts {
		if !fn(p) {
			return nil
		}
	}
	return nil
}

type fakeProvider struct {
	vec []float32
	err error
}

func (p *fakeProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return p.vec, p.err
}

func (p *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = p.vec
	}
	return out, p.err
}

func (p *fakeProvider) Dimension() int { return len(p.vec) }
func (p *fakeProvider) Close() error   { return nil }

func hit(id string, score float32, vec []float32) vectorstore.ScoredPoint {
	return vectorstore.ScoredPoint{
		ID:    id,
		Score: score,
		Payload: vectorstore.Payload{
			DocumentID: id, Title: "t", URL: "https://docs.example.com/" + id,
			ChildText: "child " + id, ParentText: "parent " + id,
		},
		Vector: vec,
	}
}

func newTestRetriever(store *fakeStore, provider embeddings.Provider) *Retriever {
	return New(store, provider, embeddings.NewTermEncoder(), Config{}, zap.NewNop())
}

func TestSearchFused(t *testing.T) {
	store := &fakeStore{hybridHits: []vectorstore.ScoredPoint{
		hit("a", 0.9, nil), hit("b", 0.5, nil),
	}}
	r := newTestRetriever(store, &fakeProvider{vec: []float32{1, 0}})

	got, err := r.Search(context.Background(), "configure sso", 5, Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, uint64(10), store.lastPerQ)
	assert.Equal(t, uint64(5), store.lastLimit)
	assert.False(t, store.lastVectors)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	r := newTestRetriever(&fakeStore{}, &fakeProvider{err: errors.New("model load failed")})

	_, err := r.Search(context.Background(), "q", 5, Options{})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestSearchMMRRequestsVectors(t *testing.T) {
	store := &fakeStore{hybridHits: []vectorstore.ScoredPoint{
		hit("a", 0.9, []float32{0.96, 0.28, 0}),
		hit("b", 0.8, []float32{0.95, 0.312, 0}),
		hit("c", 0.7, []float32{0.9, 0, 0.436}),
	}}
	r := newTestRetriever(store, &fakeProvider{vec: []float32{1, 0, 0}})

	got, err := r.Search(context.Background(), "q", 2, Options{UseMMR: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, store.lastVectors)
	assert.Equal(t, uint64(6), store.lastPerQ)
	assert.Equal(t, uint64(6), store.lastLimit)
	// First pick is the most relevant; second should prefer the diverse
	// candidate over the near-duplicate.
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

type recordingSparse struct{ last string }

func (r *recordingSparse) Encode(text string) embeddings.SparseVector {
	r.last = text
	return embeddings.NewTermEncoder().Encode(text)
}

func TestSearchSparseTextOverride(t *testing.T) {
	store := &fakeStore{hybridHits: []vectorstore.ScoredPoint{hit("a", 0.9, nil)}}
	sparse := &recordingSparse{}
	r := New(store, &fakeProvider{vec: []float32{1, 0}}, sparse, Config{}, zap.NewNop())

	_, err := r.Search(context.Background(), "setup webhooks", 5,
		Options{SparseText: "setup webhooks configure install"})
	require.NoError(t, err)
	assert.Equal(t, "setup webhooks configure install", sparse.last)

	// A different sparse text must not share a cache entry.
	_, err = r.Search(context.Background(), "setup webhooks", 5, Options{})
	require.NoError(t, err)
	assert.Equal(t, "setup webhooks", sparse.last)
	assert.Equal(t, 2, store.hybridCalls)
}

func TestSearchCache(t *testing.T) {
	store := &fakeStore{hybridHits: []vectorstore.ScoredPoint{hit("a", 0.9, nil)}}
	r := newTestRetriever(store, &fakeProvider{vec: []float32{1, 0}})

	_, err := r.Search(context.Background(), "q", 5, Options{})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), "q", 5, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.hybridCalls, "second call should hit the cache")

	_, err = r.Search(context.Background(), "q", 5, Options{BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, store.hybridCalls, "bypass should reach the store")
}

func TestSearchCacheKeyedByLimit(t *testing.T) {
	store := &fakeStore{hybridHits: []vectorstore.ScoredPoint{hit("a", 0.9, nil)}}
	r := newTestRetriever(store, &fakeProvider{vec: []float32{1, 0}})

	_, _ = r.Search(context.Background(), "q", 5, Options{})
	_, _ = r.Search(context.Background(), "q", 10, Options{})
	assert.Equal(t, 2, store.hybridCalls)
}

func TestSearchInvalidLimit(t *testing.T) {
	r := newTestRetriever(&fakeStore{}, &fakeProvider{vec: []float32{1}})
	_, err := r.Search(context.Background(), "q", 0, Options{})
	assert.Error(t, err)
}

func TestResultCacheFIFO(t *testing.T) {
	c := newResultCache(2)
	c.put("a", []Candidate{{ID: "1"}})
	c.put("b", []Candidate{{ID: "2"}})
	c.put("c", []Candidate{{ID: "3"}})

	_, ok := c.get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestResultCacheCopyOnGet(t *testing.T) {
	c := newResultCache(2)
	c.put("a", []Candidate{{ID: "1"}})

	got, ok := c.get("a")
	require.True(t, ok)
	got[0].ID = "mutated"

	again, _ := c.get("a")
	assert.Equal(t, "1", again[0].ID)
}
