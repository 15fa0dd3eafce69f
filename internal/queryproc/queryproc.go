// Package queryproc normalizes raw user queries before retrieval: cleanup,
// domain spell correction, synonym expansion, and lightweight intent
// classification. Processing is a pure transformation, nothing is persisted.
package queryproc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Intent classifies the shape of a query.
type Intent string

const (
	IntentProcedural      Intent = "procedural"
	IntentDefinitional    Intent = "definitional"
	IntentExplanatory     Intent = "explanatory"
	IntentComparison      Intent = "comparison"
	IntentTroubleshooting Intent = "troubleshooting"
	IntentNavigational    Intent = "navigational"
	IntentGeneral         Intent = "general"
)

// ProcessedQuery carries a query through its transformation stages.
type ProcessedQuery struct {
	Original        string
	Cleaned         string
	Processed       string
	Expanded        string
	Intent          Intent
	CorrectionsMade []string
	ExpansionsAdded []string
}

// Processor applies the query normalization pipeline.
type Processor struct {
	corrections       map[string]string
	expansions        map[string][]string
	maxExpansionTerms int
}

// Option customizes a Processor.
type Option func(*Processor)

// WithCorrections replaces the default spell-correction dictionary.
func WithCorrections(corrections map[string]string) Option {
	return func(p *Processor) { p.corrections = corrections }
}

// WithExpansions replaces the default synonym-expansion dictionary.
func WithExpansions(expansions map[string][]string) Option {
	return func(p *Processor) { p.expansions = expansions }
}

// WithMaxExpansionTerms caps how many synonyms expansion may append.
func WithMaxExpansionTerms(n int) Option {
	return func(p *Processor) { p.maxExpansionTerms = n }
}

// New creates a Processor with the built-in documentation-domain
// dictionaries.
func New(opts ...Option) *Processor {
	p := &Processor{
		corrections:       defaultCorrections,
		expansions:        defaultExpansions,
		maxExpansionTerms: 3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	whitespacePattern   = regexp.MustCompile(`\s+`)
	specialCharsPattern = regexp.MustCompile(`[^\w\s\-?.'"]`)
)

// Process runs clean, spell-correct, intent detection and expansion in
// order.
func (p *Processor) Process(query string) ProcessedQuery {
	cleaned := p.clean(query)
	corrected, corrections := p.spellCorrect(cleaned)
	intent := detectIntent(corrected)
	expanded, expansions := p.expand(corrected)

	return ProcessedQuery{
		Original:        query,
		Cleaned:         cleaned,
		Processed:       corrected,
		Expanded:        expanded,
		Intent:          intent,
		CorrectionsMade: corrections,
		ExpansionsAdded: expansions,
	}
}

// clean trims, collapses whitespace, lowercases and strips special
// characters other than common punctuation.
func (p *Processor) clean(query string) string {
	cleaned := strings.TrimSpace(query)
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.ToLower(cleaned)
	return specialCharsPattern.ReplaceAllString(cleaned, "")
}

func (p *Processor) spellCorrect(query string) (string, []string) {
	words := strings.Fields(query)
	var corrections []string
	for i, word := range words {
		if fixed, ok := p.corrections[strings.ToLower(word)]; ok {
			corrections = append(corrections, fmt.Sprintf("%s -> %s", word, fixed))
			words[i] = fixed
		}
	}
	return strings.Join(words, " "), corrections
}

// expand appends up to maxExpansionTerms synonyms for triggers present in
// the query. Terms already present are not re-added. Candidate terms are
// collected in sorted order so expansion is deterministic.
func (p *Processor) expand(query string) (string, []string) {
	queryWords := make(map[string]bool)
	for _, w := range strings.Fields(query) {
		queryWords[w] = true
	}
	lowerQuery := strings.ToLower(query)

	candidateSet := make(map[string]bool)
	for trigger, terms := range p.expansions {
		if !containsAllWords(queryWords, trigger) {
			continue
		}
		for _, term := range terms {
			if !strings.Contains(lowerQuery, strings.ToLower(term)) {
				candidateSet[term] = true
			}
		}
	}
	if len(candidateSet) == 0 {
		return query, nil
	}

	candidates := make([]string, 0, len(candidateSet))
	for term := range candidateSet {
		candidates = append(candidates, term)
	}
	sort.Strings(candidates)
	if len(candidates) > p.maxExpansionTerms {
		candidates = candidates[:p.maxExpansionTerms]
	}

	return query + " " + strings.Join(candidates, " "), candidates
}

func containsAllWords(queryWords map[string]bool, trigger string) bool {
	for _, w := range strings.Fields(strings.ToLower(trigger)) {
		if !queryWords[w] {
			return false
		}
	}
	return true
}

// detectIntent classifies the query, checking patterns from most to least
// specific.
func detectIntent(query string) Intent {
	q := strings.ToLower(query)

	for _, prefix := range []string{"how to", "how do i", "how can i", "steps to"} {
		if strings.HasPrefix(q, prefix) {
			return IntentProcedural
		}
	}
	for _, prefix := range []string{"what is", "what are", "define", "explain"} {
		if strings.HasPrefix(q, prefix) {
			return IntentDefinitional
		}
	}
	if strings.HasPrefix(q, "why") {
		return IntentExplanatory
	}
	if strings.Contains(q, " vs ") || strings.Contains(q, " versus ") || strings.Contains(q, "compare") {
		return IntentComparison
	}
	for _, word := range []string{"error", "issue", "problem", "fix", "bug", "failed", "not working"} {
		if strings.Contains(q, word) {
			return IntentTroubleshooting
		}
	}
	for _, prefix := range []string{"where is", "find", "locate", "link to"} {
		if strings.HasPrefix(q, prefix) {
			return IntentNavigational
		}
	}
	return IntentGeneral
}
