package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/docstore"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

type fakeSource struct {
	docs []docstore.Document
	err  error
}

func (f *fakeSource) Documents(context.Context) ([]docstore.Document, error) {
	return f.docs, f.err
}

type fakeStore struct {
	ensured  bool
	upserted []vectorstore.Point
}

func (f *fakeStore) EnsureCollection(context.Context) error { f.ensured = true; return nil }

func (f *fakeStore) Upsert(_ context.Context, points []vectorstore.Point) error {
	f.upserted = append(f.upserted, points...)
	return nil
}

type fakeProvider struct {
	err error
}

func (p *fakeProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, p.err
}

func (p *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (p *fakeProvider) Dimension() int { return 2 }
func (p *fakeProvider) Close() error   { return nil }

func docText() string {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("Webhooks deliver change events to registered endpoints. ")
		b.WriteString("Each delivery is retried with exponential backoff on failure.\n\n")
	}
	return b.String()
}

func newTestIngestor(source *fakeSource, store *fakeStore, provider embeddings.Provider) *Ingestor {
	return New(source, chunker.New(chunker.Config{}), provider,
		embeddings.NewTermEncoder(), store, zap.NewNop())
}

func TestRunIndexesDocuments(t *testing.T) {
	source := &fakeSource{docs: []docstore.Document{
		{ID: "p1", Title: "Webhooks", URL: "https://wiki.example.com/webhooks", Text: docText()},
	}}
	store := &fakeStore{}
	in := newTestIngestor(source, store, &fakeProvider{})

	stats, err := in.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, store.ensured)
	assert.Equal(t, 1, stats.Documents)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, stats.Chunks, len(store.upserted))
	require.NotEmpty(t, store.upserted)

	first := store.upserted[0]
	assert.Equal(t, "p1", first.Payload.DocumentID)
	assert.Equal(t, "Webhooks", first.Payload.Title)
	assert.NotEmpty(t, first.Dense)
	assert.False(t, first.Sparse.IsZero())
	assert.Equal(t, PointID("p1", first.Payload.ParentIndex, first.Payload.ChildIndex), first.ID)
}

func TestRunSkipsEmptyDocuments(t *testing.T) {
	source := &fakeSource{docs: []docstore.Document{
		{ID: "p1", Title: "Blank", URL: "https://wiki.example.com/blank", Text: "   \n  "},
	}}
	store := &fakeStore{}
	in := newTestIngestor(source, store, &fakeProvider{})

	stats, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Empty(t, store.upserted)
}

func TestRunCountsFailedDocuments(t *testing.T) {
	source := &fakeSource{docs: []docstore.Document{
		{ID: "p1", Title: "A", URL: "https://wiki.example.com/a", Text: docText()},
	}}
	in := newTestIngestor(source, &fakeStore{}, &fakeProvider{err: errors.New("embed down")})

	stats, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Documents)
}

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("doc1", 2, 3)
	b := PointID("doc1", 2, 3)
	c := PointID("doc1", 2, 4)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36, "uuid string form")
}
