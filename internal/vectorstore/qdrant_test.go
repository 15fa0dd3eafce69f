package vectorstore

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "localhost", Port: 6334, Collection: "docs", VectorSize: 384}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: true},
		{name: "zero port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "uppercase collection", mutate: func(c *Config) { c.Collection = "Docs" }, wantErr: true},
		{name: "empty collection", mutate: func(c *Config) { c.Collection = "" }, wantErr: true},
		{name: "zero vector size", mutate: func(c *Config) { c.VectorSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down"), want: true},
		{name: "deadline exceeded", err: status.Error(codes.DeadlineExceeded, "slow"), want: true},
		{name: "aborted", err: status.Error(codes.Aborted, "conflict"), want: true},
		{name: "resource exhausted", err: status.Error(codes.ResourceExhausted, "quota"), want: true},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "bad"), want: false},
		{name: "not found", err: status.Error(codes.NotFound, "missing"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}

func TestBuildHybridQuery(t *testing.T) {
	dense := []float32{0.1, 0.2, 0.3}
	sparse := SparseQuery{Indices: []uint32{7, 42}, Values: []float32{1.0, 1.7}}

	req := buildHybridQuery("docs", dense, sparse, 30, 10, true)

	assert.Equal(t, "docs", req.CollectionName)
	require.Len(t, req.Prefetch, 2)

	assert.Equal(t, DenseVectorName, req.Prefetch[0].GetUsing())
	assert.Equal(t, uint64(30), req.Prefetch[0].GetLimit())
	assert.Equal(t, SparseVectorName, req.Prefetch[1].GetUsing())
	assert.Equal(t, uint64(30), req.Prefetch[1].GetLimit())

	// The outer query fuses the prefetch rankings with RRF.
	require.NotNil(t, req.Query.GetFusion())
	assert.Equal(t, qdrant.Fusion_RRF, req.Query.GetFusion())

	assert.Equal(t, uint64(10), req.GetLimit())
	assert.True(t, req.WithPayload.GetEnable())
	assert.True(t, req.WithVectors.GetEnable())
}

func TestBuildHybridQueryEmptySparse(t *testing.T) {
	req := buildHybridQuery("docs", []float32{0.5}, SparseQuery{}, 30, 10, false)

	require.Len(t, req.Prefetch, 1)
	assert.Equal(t, DenseVectorName, req.Prefetch[0].GetUsing())
	assert.False(t, req.WithVectors.GetEnable())
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{
		DocumentID:   "12345",
		Title:        "Setting up SSO",
		URL:          "https://docs.example.com/sso",
		ChildText:    "Enable SSO under security settings.",
		ParentText:   "Single sign-on configuration. Enable SSO under security settings. Requires admin.",
		ParentIndex:  2,
		ChildIndex:   1,
		ContentType:  "text",
		QualityScore: 70,
	}

	got, err := parsePayload(toQdrantPayload(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParsePayloadMissingRequired(t *testing.T) {
	raw := toQdrantPayload(Payload{
		DocumentID: "1", Title: "t", URL: "u", ChildText: "c", ParentText: "p",
	})
	delete(raw, "url")

	_, err := parsePayload(raw)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParsePayloadOptionalFields(t *testing.T) {
	raw := toQdrantPayload(Payload{
		DocumentID: "1", Title: "t", URL: "u", ChildText: "c", ParentText: "p",
	})
	delete(raw, "content_type")
	delete(raw, "quality_score")

	p, err := parsePayload(raw)
	require.NoError(t, err)
	assert.Empty(t, p.ContentType)
	assert.Zero(t, p.QualityScore)
}
