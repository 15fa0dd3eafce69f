// Package ingest drives the offline indexing path: documents are chunked,
// embedded (dense and sparse), and upserted into the vector index under
// deterministic ids so re-ingestion updates points in place.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/docstore"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var tracer = otel.Tracer("ragd.ingest")

// pointNamespace seeds deterministic point ids. Changing it orphans every
// existing point, so it is fixed for the life of a collection.
var pointNamespace = uuid.MustParse("8a4b7c2e-1f6d-4e3a-9b5c-0d8e7f6a5b4c")

// Store is the vector index surface ingestion needs.
type Store interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []vectorstore.Point) error
}

// DocumentSource lists the documents to index.
type DocumentSource interface {
	Documents(ctx context.Context) ([]docstore.Document, error)
}

// Stats summarizes one ingestion run.
type Stats struct {
	Documents  int
	Chunks     int
	LowQuality int
	Failed     int
}

// Ingestor indexes documents end to end.
type Ingestor struct {
	source    DocumentSource
	chunker   *chunker.Chunker
	dense     embeddings.Provider
	sparse    embeddings.SparseEncoder
	store     Store
	batchSize int
	logger    *zap.Logger
}

// New creates an Ingestor.
func New(source DocumentSource, ch *chunker.Chunker, dense embeddings.Provider, sparse embeddings.SparseEncoder, store Store, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		source:    source,
		chunker:   ch,
		dense:     dense,
		sparse:    sparse,
		store:     store,
		batchSize: 64,
		logger:    logger,
	}
}

// Run ingests every document from the source. Per-document failures are
// logged and counted, not fatal; the run continues with the rest.
func (in *Ingestor) Run(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Ingestor.Run")
	defer span.End()

	var stats Stats

	if err := in.store.EnsureCollection(ctx); err != nil {
		return stats, err
	}

	docs, err := in.source.Documents(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading documents: %w", err)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n, lowQuality, err := in.ingestDocument(ctx, doc)
		if err != nil {
			stats.Failed++
			in.logger.Error("document ingestion failed",
				zap.String("document_id", doc.ID),
				zap.Error(err))
			continue
		}
		stats.Documents++
		stats.Chunks += n
		stats.LowQuality += lowQuality
	}

	span.SetAttributes(
		attribute.Int("documents", stats.Documents),
		attribute.Int("chunks", stats.Chunks),
		attribute.Int("failed", stats.Failed),
	)
	in.logger.Info("ingestion complete",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("low_quality", stats.LowQuality),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (in *Ingestor) ingestDocument(ctx context.Context, doc docstore.Document) (chunks, lowQuality int, err error) {
	pieces := in.chunker.Chunk(doc.Text)
	if len(pieces) == 0 {
		return 0, 0, nil
	}

	for start := 0; start < len(pieces); start += in.batchSize {
		end := start + in.batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.ChildText
		}
		vectors, err := in.dense.EmbedDocuments(ctx, texts)
		if err != nil {
			return chunks, lowQuality, fmt.Errorf("embedding batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return chunks, lowQuality, fmt.Errorf("embedding batch: got %d vectors for %d texts", len(vectors), len(batch))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, c := range batch {
			points[i] = vectorstore.Point{
				ID:     PointID(doc.ID, c.ParentIndex, c.ChildIndex),
				Dense:  vectors[i],
				Sparse: in.sparse.Encode(c.ChildText),
				Payload: vectorstore.Payload{
					DocumentID:   doc.ID,
					Title:        doc.Title,
					URL:          doc.URL,
					ChildText:    c.ChildText,
					ParentText:   c.ParentText,
					ParentIndex:  c.ParentIndex,
					ChildIndex:   c.ChildIndex,
					ContentType:  string(c.ContentType),
					QualityScore: c.Quality.Score,
				},
			}
			if c.Quality.Score < 50 {
				lowQuality++
			}
		}

		if err := in.store.Upsert(ctx, points); err != nil {
			return chunks, lowQuality, err
		}
		chunks += len(batch)
	}

	return chunks, lowQuality, nil
}

// PointID derives the stable point id for a chunk from its composite
// identity.
func PointID(documentID string, parentIndex, childIndex int) string {
	name := fmt.Sprintf("%s_%d_%d", documentID, parentIndex, childIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}
