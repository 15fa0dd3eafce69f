package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

// JudgeClient generates a JSON response from a prompt. The LLM judge and the
// support filter share this surface.
type JudgeClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// snippetLimit caps how much of each passage goes into the judge prompt.
const snippetLimit = 500

// LLMJudge reranks by asking the generation model to grade each passage's
// relevance on a 0-10 scale, then combining that grade with the retrieval
// score. Any judge failure falls back to the incoming order.
type LLMJudge struct {
	client JudgeClient
	logger *zap.Logger
}

// NewLLMJudge creates an LLM-backed reranker.
func NewLLMJudge(client JudgeClient, logger *zap.Logger) *LLMJudge {
	return &LLMJudge{client: client, logger: logger}
}

// Rerank grades candidates with the judge model. The combined score is the
// retrieval score plus the normalized judge grade, so a confident judge can
// reorder but not erase retrieval evidence.
func (r *LLMJudge) Rerank(ctx context.Context, query string, candidates []retriever.Candidate, topN int) ([]retriever.Candidate, error) {
	ctx, span := tracer.Start(ctx, "LLMJudge.Rerank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("top_n", topN),
	)

	if len(candidates) == 0 {
		return candidates, nil
	}

	response, err := r.client.GenerateJSON(ctx, buildJudgePrompt(query, candidates))
	if err != nil {
		r.logger.Warn("llm judge failed, passing candidates through", zap.Error(err))
		span.SetAttributes(attribute.Bool("degraded", true))
		return passthrough(candidates, topN), nil
	}

	grades := parseScores(response)
	if len(grades) == 0 {
		r.logger.Warn("llm judge returned no parseable scores",
			zap.String("response", truncate(response, 200)))
		span.SetAttributes(attribute.Bool("degraded", true))
		return passthrough(candidates, topN), nil
	}

	reranked := make([]retriever.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		if grade, ok := grades[i]; ok {
			reranked[i].Score += grade / 10
		}
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return passthrough(reranked, topN), nil
}

// buildJudgePrompt lists the passages with zero-based ids and asks for a
// JSON object mapping id to grade.
func buildJudgePrompt(query string, candidates []retriever.Candidate) string {
	var b strings.Builder
	b.WriteString("Rate how relevant each passage is to the question on a scale of 0 to 10.\n")
	b.WriteString("Respond with ONLY a JSON object mapping passage id to score, like {\"0\": 7, \"1\": 2}.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncate(c.Payload.ChildText, snippetLimit))
	}
	return b.String()
}

// parseScores extracts {index: grade} pairs from the judge response.
// Models wrap JSON in prose or fences, so the object is located by its
// outermost braces and any parse failure yields an empty map, never an
// error.
func parseScores(response string) map[int]float32 {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil
	}

	var raw map[string]json.Number
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil
	}

	grades := make(map[int]float32, len(raw))
	for key, num := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		val, err := num.Float64()
		if err != nil {
			continue
		}
		if val < 0 {
			val = 0
		}
		if val > 10 {
			val = 10
		}
		grades[idx] = float32(val)
	}
	return grades
}

// truncate cuts s to at most limit bytes, backing up so a multi-byte rune
// is never split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
