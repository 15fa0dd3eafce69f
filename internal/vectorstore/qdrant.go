// Package vectorstore wraps Qdrant behind the retrieval pipeline's storage
// contract: named dense+sparse point storage, a fused nearest-neighbor query
// with server-side Reciprocal Rank Fusion, and full-collection paging for
// the lexical fallback index.
package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("ragd.vectorstore")

// Named vectors stored per point.
const (
	DenseVectorName  = "dense"
	SparseVectorName = "sparse"
)

// collectionNamePattern validates collection names: lowercase letters,
// numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Config holds configuration for the Qdrant gRPC client.
type Config struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (6334, not the 6333 REST port).
	Port int `koanf:"port"`

	// Collection is the collection holding indexed chunks.
	Collection string `koanf:"collection"`

	// VectorSize is the dense embedding dimensionality. Must match the
	// embedding provider's output.
	VectorSize uint64 `koanf:"vector_size"`

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff, doubling per attempt.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int `koanf:"max_message_size"`
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if !collectionNamePattern.MatchString(c.Collection) {
		return fmt.Errorf("%w: collection must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidConfig, c.Collection)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// IsTransientError reports whether an error should be retried.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Store is the Qdrant-backed vector index adapter. It uses the native gRPC
// transport so large parent payloads never hit HTTP body limits.
type Store struct {
	client *qdrant.Client
	config Config
}

// New creates a Store and verifies the connection with a health check.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s := &Store{client: client, config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return s, nil
}

// Close closes the Qdrant gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Collection returns the configured collection name.
func (s *Store) Collection() string { return s.config.Collection }

// retryOperation retries an operation with exponential backoff for
// transient errors.
func (s *Store) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// EnsureCollection creates the configured collection with named dense and
// sparse vector spaces if it does not already exist.
func (s *Store) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Store.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.config.Collection))

	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				DenseVectorName: {
					Size:     s.config.VectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				SparseVectorName: {},
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	span.SetStatus(codes.Ok, "created")
	return nil
}

// Upsert writes points into the collection. Point IDs are deterministic, so
// re-ingestion updates in place rather than duplicating.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	ctx, span := tracer.Start(ctx, "Store.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.Int("point_count", len(points)),
		attribute.String("collection", s.config.Collection),
	)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		vectors := map[string]*qdrant.Vector{
			DenseVectorName: qdrant.NewVectorDense(p.Dense),
		}
		if !p.Sparse.IsZero() {
			vectors[SparseVectorName] = qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectorsMap(vectors),
			Payload: toQdrantPayload(p.Payload),
		}
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         qdrantPoints,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// HybridQuery runs a fused dense+sparse query. Two prefetch sub-queries
// (dense and sparse, each capped at perQueryLimit) are fused server-side
// with Reciprocal Rank Fusion; the fused top `limit` hits come back ranked.
// Set withVectors to also return stored dense vectors for MMR.
func (s *Store) HybridQuery(ctx context.Context, dense []float32, sparse SparseQuery, perQueryLimit, limit uint64, withVectors bool) ([]ScoredPoint, error) {
	ctx, span := tracer.Start(ctx, "Store.HybridQuery")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("per_query_limit", int(perQueryLimit)),
		attribute.Int("limit", int(limit)),
		attribute.Bool("with_vectors", withVectors),
	)

	req := buildHybridQuery(s.config.Collection, dense, sparse, perQueryLimit, limit, withVectors)

	var hits []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "hybrid_query", func() error {
		res, err := s.client.Query(ctx, req)
		if err != nil {
			return err
		}
		hits = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	results, err := convertHits(hits)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// DenseQuery runs a dense-only nearest-neighbor query. The legacy lexical
// strategy uses it for the vector half of its weighted combination.
func (s *Store) DenseQuery(ctx context.Context, dense []float32, limit uint64) ([]ScoredPoint, error) {
	ctx, span := tracer.Start(ctx, "Store.DenseQuery")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("limit", int(limit)),
	)

	var hits []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "dense_query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQueryDense(dense),
			Using:          qdrant.PtrOf(DenseVectorName),
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		hits = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	results, err := convertHits(hits)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Scroll pages through every stored point, invoking fn per point. fn
// returning false stops the enumeration early. Points with malformed
// payloads are skipped; they cannot contribute to a lexical index.
func (s *Store) Scroll(ctx context.Context, fn func(ScoredPoint) bool) error {
	ctx, span := tracer.Start(ctx, "Store.Scroll")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.config.Collection))

	const pageSize = 256
	var offset *qdrant.PointId
	total := 0

	for {
		var resp *qdrant.ScrollResponse
		err := s.retryOperation(ctx, "scroll", func() error {
			var err error
			resp, err = s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
				CollectionName: s.config.Collection,
				Limit:          qdrant.PtrOf(uint32(pageSize)),
				WithPayload:    qdrant.NewWithPayload(true),
				Offset:         offset,
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%w: scroll: %v", ErrQueryFailed, err)
		}

		for _, point := range resp.GetResult() {
			payload, err := parsePayload(point.GetPayload())
			if err != nil {
				continue
			}
			total++
			if !fn(ScoredPoint{ID: point.GetId().GetUuid(), Payload: payload}) {
				span.SetAttributes(attribute.Int("points_scanned", total))
				return nil
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			break
		}
	}

	span.SetAttributes(attribute.Int("points_scanned", total))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// convertHits parses qdrant hits into ScoredPoints, failing on malformed
// payloads rather than silently defaulting fields.
func convertHits(hits []*qdrant.ScoredPoint) ([]ScoredPoint, error) {
	results := make([]ScoredPoint, 0, len(hits))
	for _, hit := range hits {
		payload, err := parsePayload(hit.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", hit.GetId().GetUuid(), err)
		}
		results = append(results, ScoredPoint{
			ID:      hit.GetId().GetUuid(),
			Payload: payload,
			Score:   hit.GetScore(),
			Vector:  denseFromOutput(hit.GetVectors()),
		})
	}
	return results, nil
}

// denseFromOutput extracts the named dense vector from a query response.
func denseFromOutput(out *qdrant.VectorsOutput) []float32 {
	if out == nil {
		return nil
	}
	if named := out.GetVectors(); named != nil {
		if v, ok := named.GetVectors()[DenseVectorName]; ok {
			return v.GetData()
		}
		return nil
	}
	if v := out.GetVector(); v != nil {
		return v.GetData()
	}
	return nil
}
