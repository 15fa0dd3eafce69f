// Package selfrag filters reranked candidates through a support check: the
// judge model is asked which passages actually help answer the question, and
// only those survive. The filter fails open, so a confused or unavailable
// judge never empties the context.
package selfrag

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

var tracer = otel.Tracer("ragd.selfrag")

// JudgeClient generates a JSON response from a prompt.
type JudgeClient interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// snippetLimit caps the passage text shown to the judge.
const snippetLimit = 500

// Filter removes candidates the judge considers unsupportive.
type Filter struct {
	client JudgeClient
	logger *zap.Logger
}

// New creates a support filter.
func New(client JudgeClient, logger *zap.Logger) *Filter {
	return &Filter{client: client, logger: logger}
}

// Apply asks the judge which passages support answering the query and keeps
// that subset in its original order. On judge failure, unparseable output,
// or an empty verdict, all candidates pass through unchanged.
func (f *Filter) Apply(ctx context.Context, query string, candidates []retriever.Candidate) ([]retriever.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Filter.Apply")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	if len(candidates) == 0 {
		return candidates, nil
	}

	response, err := f.client.GenerateJSON(ctx, buildPrompt(query, candidates))
	if err != nil {
		f.logger.Warn("support filter judge failed, keeping all candidates",
			zap.Error(err))
		span.SetAttributes(attribute.Bool("fail_open", true))
		return candidates, nil
	}

	keep := parseKeepSet(response, len(candidates))
	if len(keep) == 0 {
		f.logger.Warn("support filter kept nothing, failing open",
			zap.String("response", truncate(response, 200)))
		span.SetAttributes(attribute.Bool("fail_open", true))
		return candidates, nil
	}

	filtered := make([]retriever.Candidate, 0, len(keep))
	for i, c := range candidates {
		if keep[i] {
			filtered = append(filtered, c)
		}
	}
	span.SetAttributes(attribute.Int("kept", len(filtered)))
	return filtered, nil
}

// buildPrompt lists the passages with zero-based ids and asks for a JSON
// array of the ids worth keeping.
func buildPrompt(query string, candidates []retriever.Candidate) string {
	var b strings.Builder
	b.WriteString("Which of these passages contain information that helps answer the question?\n")
	b.WriteString("Respond with ONLY a JSON array of passage ids, like [0, 2].\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncate(c.Payload.ChildText, snippetLimit))
	}
	return b.String()
}

// parseKeepSet extracts the set of kept indices from the judge response.
// Ids may come back as numbers or strings; anything out of range is
// dropped. Returns an empty map when nothing valid parses.
func parseKeepSet(response string, n int) map[int]bool {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil
	}

	var raw []json.Number
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		// Some models quote the ids.
		var strs []string
		if err := json.Unmarshal([]byte(response[start:end+1]), &strs); err != nil {
			return nil
		}
		for _, s := range strs {
			raw = append(raw, json.Number(s))
		}
	}

	keep := make(map[int]bool)
	for _, num := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(num.String()))
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		keep[idx] = true
	}
	return keep
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
