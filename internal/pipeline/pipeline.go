// Package pipeline wires the retrieval stages into the two operations the
// API layer consumes: retrieve-and-rank and grounded answer generation with
// post-hoc citation verification.
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/assembler"
	"github.com/fyrsmithlabs/ragd/internal/citations"
	"github.com/fyrsmithlabs/ragd/internal/prompts"
	"github.com/fyrsmithlabs/ragd/internal/queryproc"
	"github.com/fyrsmithlabs/ragd/internal/reranker"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

var tracer = otel.Tracer("ragd.pipeline")

// Searcher is the retrieval surface the pipeline depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, opts retriever.Options) ([]retriever.Candidate, error)
}

// SupportFilter drops candidates judged unsupportive.
type SupportFilter interface {
	Apply(ctx context.Context, query string, candidates []retriever.Candidate) ([]retriever.Candidate, error)
}

// Generator produces answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// Config holds pipeline tuning knobs.
type Config struct {
	// TopK is the context budget: distinct parent passages shown to the
	// model.
	TopK int `koanf:"top_k"`
	// UseMMR enables diversity re-selection during retrieval.
	UseMMR bool `koanf:"use_mmr"`
	// RetrieveMultiplier and RerankMultiplier scale the candidate pools
	// handed to reranking and filtering relative to TopK.
	RetrieveMultiplier int `koanf:"retrieve_multiplier"`
	RerankMultiplier   int `koanf:"rerank_multiplier"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.RetrieveMultiplier == 0 {
		c.RetrieveMultiplier = 3
	}
	if c.RerankMultiplier == 0 {
		c.RerankMultiplier = 2
	}
}

// RetrievalResult is the output of RetrieveAndRank.
type RetrievalResult struct {
	Context string
	Sources []assembler.Source
	Query   queryproc.ProcessedQuery
	// NoContext is true when retrieval found nothing usable; Context then
	// holds the sentinel, not a real excerpt.
	NoContext bool
}

// Service runs the retrieval pipeline. Construct once at startup and share
// across requests; every stage is safe for concurrent use.
type Service struct {
	queryProc *queryproc.Processor
	searcher  Searcher
	reranker  reranker.Reranker
	filter    SupportFilter
	generator Generator
	config    Config
	logger    *zap.Logger
}

// New creates a Service.
func New(qp *queryproc.Processor, searcher Searcher, rr reranker.Reranker, filter SupportFilter, generator Generator, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		queryProc: qp,
		searcher:  searcher,
		reranker:  rr,
		filter:    filter,
		generator: generator,
		config:    cfg,
		logger:    logger,
	}
}

// RetrieveAndRank runs query processing, hybrid retrieval, reranking, the
// support filter, and context assembly for one query. A topK of zero or
// less falls back to the configured default. The processed query feeds the
// dense embedding while the expanded query feeds sparse matching.
func (s *Service) RetrieveAndRank(ctx context.Context, query string, topK int) (RetrievalResult, error) {
	ctx, span := tracer.Start(ctx, "Service.RetrieveAndRank")
	defer span.End()

	if topK <= 0 {
		topK = s.config.TopK
	}

	processed := s.queryProc.Process(query)
	span.SetAttributes(attribute.String("intent", string(processed.Intent)))

	candidates, err := s.searcher.Search(ctx, processed.Processed,
		topK*s.config.RetrieveMultiplier,
		retriever.Options{UseMMR: s.config.UseMMR, SparseText: processed.Expanded})
	if err != nil {
		span.RecordError(err)
		return RetrievalResult{}, fmt.Errorf("retrieving candidates: %w", err)
	}

	reranked, err := s.reranker.Rerank(ctx, processed.Processed, candidates,
		topK*s.config.RerankMultiplier)
	if err != nil {
		span.RecordError(err)
		return RetrievalResult{}, fmt.Errorf("reranking candidates: %w", err)
	}

	supported, err := s.filter.Apply(ctx, processed.Processed, reranked)
	if err != nil {
		span.RecordError(err)
		return RetrievalResult{}, fmt.Errorf("filtering candidates: %w", err)
	}

	contextText, sources := assembler.Assemble(supported, topK)
	noContext := contextText == assembler.NoContextSentinel

	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Bool("no_context", noContext),
	)
	s.logger.Debug("retrieval complete",
		zap.String("intent", string(processed.Intent)),
		zap.Int("candidates", len(candidates)),
		zap.Int("reranked", len(reranked)),
		zap.Int("supported", len(supported)),
		zap.Int("sources", len(sources)))

	return RetrievalResult{
		Context:   contextText,
		Sources:   sources,
		Query:     processed,
		NoContext: noContext,
	}, nil
}

// VerifyCitations checks an answer's citations against the sources it was
// given.
func (s *Service) VerifyCitations(answer string, sources []assembler.Source) citations.VerificationResult {
	converted := make([]citations.Source, len(sources))
	for i, src := range sources {
		converted[i] = citations.Source{Title: src.Title, URL: src.URL}
	}
	result := citations.Verify(answer, converted)
	if len(result.InvalidCitations) > 0 {
		s.logger.Warn("answer contains hallucinated citations",
			zap.Int("invalid", len(result.InvalidCitations)),
			zap.Float64("accuracy", result.CitationAccuracy))
	}
	return result
}

// AnswerStream is a streaming grounded answer.
type AnswerStream struct {
	Sources []assembler.Source
	Query   queryproc.ProcessedQuery
	// Tokens and Errs both close when generation ends. When retrieval
	// found no context, Tokens carries the insufficient-information
	// message and no generation happens.
	Tokens <-chan string
	Errs   <-chan error
}

// Answer retrieves context for the question and streams a grounded answer.
// The no-context sentinel short-circuits generation entirely.
func (s *Service) Answer(ctx context.Context, question string, history []prompts.Message) (AnswerStream, error) {
	ctx, span := tracer.Start(ctx, "Service.Answer")
	defer span.End()

	result, err := s.RetrieveAndRank(ctx, question, 0)
	if err != nil {
		return AnswerStream{}, err
	}

	if result.NoContext {
		tokens := make(chan string, 1)
		errs := make(chan error)
		tokens <- prompts.InsufficientInfoMessage
		close(tokens)
		close(errs)
		return AnswerStream{Query: result.Query, Tokens: tokens, Errs: errs}, nil
	}

	prompt := prompts.Answer(result.Context, history, question)
	tokens, errs := s.generator.GenerateStream(ctx, prompt)

	return AnswerStream{
		Sources: result.Sources,
		Query:   result.Query,
		Tokens:  tokens,
		Errs:    errs,
	}, nil
}
