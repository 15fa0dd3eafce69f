package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/docstore"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/pipeline"
	"github.com/fyrsmithlabs/ragd/internal/queryproc"
	"github.com/fyrsmithlabs/ragd/internal/reranker"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/selfrag"
	"github.com/fyrsmithlabs/ragd/internal/telemetry"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// app bundles the long-lived components every subcommand needs. Expensive
// resources (embedding model, vector store connection) are constructed once
// and shared.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *vectorstore.Store
	dense    embeddings.Provider
	sparse   *embeddings.TermEncoder
	docs     *docstore.Store
	llm      *llm.Client
	shutdown []func(context.Context) error
}

// newApp loads config and constructs the shared component graph.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	stopTracing, err := telemetry.Setup(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.shutdown = append(a.shutdown, stopTracing)

	store, err := vectorstore.New(cfg.Qdrant)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.shutdown = append(a.shutdown, func(context.Context) error { return store.Close() })

	dense, err := embeddings.NewFastEmbedProvider(embeddings.FastEmbedConfig{
		Model:    cfg.Embeddings.Model,
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("loading embedding model: %w", err)
	}
	a.dense = dense
	a.sparse = embeddings.NewTermEncoder()
	a.shutdown = append(a.shutdown, func(context.Context) error { return dense.Close() })

	docs, err := docstore.Open(cfg.Docstore.Path)
	if err != nil {
		return nil, err
	}
	a.docs = docs
	a.shutdown = append(a.shutdown, func(context.Context) error { return docs.Close() })

	client, err := llm.New(cfg.Ollama)
	if err != nil {
		return nil, err
	}
	a.llm = client

	return a, nil
}

// close tears components down in reverse construction order.
func (a *app) close(ctx context.Context) {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = logging.Sync(a.logger)
}

// newPipeline assembles the retrieval pipeline from the shared components.
func (a *app) newPipeline() *pipeline.Service {
	search := retriever.New(a.store, a.dense, a.sparse, a.cfg.Retrieval, a.logger)

	var rr reranker.Reranker
	switch a.cfg.Rerank.Strategy {
	case "llm-judge":
		rr = reranker.NewLLMJudge(a.llm, a.logger)
	case "none":
		rr = reranker.Noop{}
	default:
		rr = reranker.NewCrossEncoder(func() (reranker.Scorer, error) {
			return reranker.NewLexicalScorer(), nil
		}, a.logger)
	}

	filter := selfrag.New(a.llm, a.logger)

	return pipeline.New(queryproc.New(), search, rr, filter, a.llm, a.cfg.Pipeline, a.logger)
}
