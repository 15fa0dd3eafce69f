package embeddings

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
)

// TermEncoder is a local sparse encoder mapping terms to hashed dimensions
// with log-scaled term-frequency weights. It needs no model download and
// pairs with the lexical half of a fused dense+sparse query.
type TermEncoder struct{}

// NewTermEncoder creates a sparse term encoder.
func NewTermEncoder() *TermEncoder { return &TermEncoder{} }

// Encode produces a sparse term-weight vector. Terms are lowercased,
// stripped of punctuation and stopwords, hashed into a 2^32 dimension space,
// and weighted by 1+ln(tf). Indices are sorted ascending; output is
// deterministic for a given input.
func (e *TermEncoder) Encode(text string) SparseVector {
	counts := map[uint32]float64{}
	for _, term := range Tokenize(text) {
		counts[hashTerm(term)]++
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(1 + math.Log(counts[idx]))
	}
	return SparseVector{Indices: indices, Values: values}
}

func hashTerm(term string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(term))
	return h.Sum32()
}

// Tokenize splits text into lowercase terms, dropping punctuation,
// stopwords and tokens shorter than three characters.
func Tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) > 2 && !stopwords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "you": true, "she": true, "they": true, "what": true,
	"which": true, "who": true, "when": true, "where": true, "why": true,
	"how": true, "not": true, "its": true, "his": true, "her": true,
}
