// Package llm wraps the Ollama generation service behind the three call
// shapes the pipeline needs: complete text, strict-JSON judgment, and a
// cancellable token stream.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("ragd.llm")

// ErrGenerationFailed indicates the generation service was unreachable or
// returned a bad response.
var ErrGenerationFailed = errors.New("generation failed")

// Config holds LLM client configuration.
type Config struct {
	// ServerURL is the Ollama base URL.
	ServerURL string `koanf:"server_url"`
	// Model is the answer-generation model.
	Model string `koanf:"model"`
	// JudgeModel serves reranking and support-filter judgments. Defaults
	// to Model.
	JudgeModel string `koanf:"judge_model"`
	// Timeout bounds every non-streaming call.
	Timeout time.Duration `koanf:"timeout"`
	// JudgeRPS rate-limits judgment calls so a burst of rerank requests
	// cannot starve generation. 0 disables the limiter.
	JudgeRPS float64 `koanf:"judge_rps"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3.1"
	}
	if c.JudgeModel == "" {
		c.JudgeModel = c.Model
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}

// Client talks to Ollama. Two underlying model handles are kept: one for
// generation, one (JSON-constrained) for judgments.
type Client struct {
	generator *ollama.LLM
	judge     *ollama.LLM
	config    Config
	limiter   *rate.Limiter
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()

	generator, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation model: %w", err)
	}

	judge, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.JudgeModel),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating judge model: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.JudgeRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.JudgeRPS), 1)
	}

	return &Client{
		generator: generator,
		judge:     judge,
		config:    cfg,
		limiter:   limiter,
	}, nil
}

// Generate returns the complete answer text for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.Generate")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, c.generator, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return out, nil
}

// GenerateJSON runs a judgment call against the JSON-constrained judge
// model, honoring the judge rate limit.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.GenerateJSON")
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, c.judge, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return out, nil
}

// GenerateStream produces answer tokens as they arrive. Both channels close
// when the stream ends; the error channel carries at most one error.
// Canceling ctx tears down the underlying provider stream.
func (c *Client) GenerateStream(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	tokens := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)

		_, err := llms.GenerateFromSinglePrompt(ctx, c.generator, prompt,
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case tokens <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}()

	return tokens, errs
}
