// Package config provides configuration loading for ragd.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/ragd/internal/httpapi"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/pipeline"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/telemetry"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Config is the full ragd configuration.
type Config struct {
	Server    httpapi.Config     `koanf:"server"`
	Logging   logging.Config     `koanf:"logging"`
	Telemetry telemetry.Config   `koanf:"telemetry"`
	Qdrant    vectorstore.Config `koanf:"qdrant"`
	Ollama    llm.Config         `koanf:"ollama"`
	Retrieval retriever.Config   `koanf:"retrieval"`
	Pipeline  pipeline.Config    `koanf:"pipeline"`

	// Embeddings selects the dense embedding model.
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	// Chunking tunes the ingestion chunker.
	Chunking ChunkingConfig `koanf:"chunking"`
	// Docstore points at the crawler's SQLite database.
	Docstore DocstoreConfig `koanf:"docstore"`
	// Rerank selects the reranking strategy.
	Rerank RerankConfig `koanf:"rerank"`
}

// EmbeddingsConfig holds embedding model configuration.
type EmbeddingsConfig struct {
	Model    string `koanf:"model"`
	CacheDir string `koanf:"cache_dir"`
}

// ChunkingConfig holds chunker configuration.
type ChunkingConfig struct {
	ParentSize    int `koanf:"parent_size"`
	ParentOverlap int `koanf:"parent_overlap"`
	ChildSize     int `koanf:"child_size"`
	ChildOverlap  int `koanf:"child_overlap"`
	MinWords      int `koanf:"min_words"`
}

// DocstoreConfig holds document store configuration.
type DocstoreConfig struct {
	Path string `koanf:"path"`
}

// RerankConfig selects the rerank strategy: "cross-encoder", "llm-judge"
// or "none".
type RerankConfig struct {
	Strategy string `koanf:"strategy"`
}

// applyDefaults fills in defaults for unset values.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ragd"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "ragd_chunks"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 384
	}
	cfg.Qdrant.ApplyDefaults()
	cfg.Ollama.ApplyDefaults()
	cfg.Retrieval.ApplyDefaults()
	cfg.Pipeline.ApplyDefaults()
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Docstore.Path == "" {
		cfg.Docstore.Path = "ragd.db"
	}
	if cfg.Rerank.Strategy == "" {
		cfg.Rerank.Strategy = "cross-encoder"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if err := c.Qdrant.Validate(); err != nil {
		return err
	}
	switch c.Rerank.Strategy {
	case "cross-encoder", "llm-judge", "none":
	default:
		return fmt.Errorf("invalid rerank strategy %q (want cross-encoder, llm-judge or none)", c.Rerank.Strategy)
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline top_k must be positive, got %d", c.Pipeline.TopK)
	}
	return nil
}
