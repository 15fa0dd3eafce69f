// Package assembler turns ranked candidates into the numbered context shown
// to the generation model, deduplicated by parent passage and capped at a
// top-K budget.
package assembler

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

// NoContextSentinel is returned in place of context when no candidate
// produced usable text. Callers treat it as "insufficient information" and
// skip generation.
const NoContextSentinel = "No relevant context found."

// Source is one citable source surfaced to the caller. Number matches the
// [n] marker in the assembled context and the source's 1-based position in
// the returned list.
type Source struct {
	Number int
	Title  string
	URL    string
}

// Assemble formats up to topK distinct parent passages into numbered
// context blocks. Candidates are consumed in their incoming order;
// duplicates of an already-accepted parent are skipped without consuming
// budget. Each unique URL is numbered once, on first appearance, and blocks
// from the same URL share its number.
func Assemble(candidates []retriever.Candidate, topK int) (string, []Source) {
	var (
		blocks      strings.Builder
		sources     []Source
		seenParents = make(map[string]bool)
		urlNumbers  = make(map[string]int)
		accepted    int
	)

	for _, c := range candidates {
		if accepted >= topK {
			break
		}

		text := c.Payload.ParentText
		if text == "" {
			text = c.Payload.ChildText
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		parentKey := fmt.Sprintf("%s:%d", c.Payload.DocumentID, c.Payload.ParentIndex)
		if seenParents[parentKey] {
			continue
		}
		seenParents[parentKey] = true

		number, ok := urlNumbers[c.Payload.URL]
		if !ok {
			number = len(sources) + 1
			urlNumbers[c.Payload.URL] = number
			sources = append(sources, Source{
				Number: number,
				Title:  c.Payload.Title,
				URL:    c.Payload.URL,
			})
		}

		fmt.Fprintf(&blocks, "[%d] %s (%s)\n\n%s\n\n", number, c.Payload.Title, c.Payload.URL, text)
		accepted++
	}

	if accepted == 0 {
		return NoContextSentinel, nil
	}
	return blocks.String(), sources
}
