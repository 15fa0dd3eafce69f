package chunker

import "strings"

// Quality penalties. A chunk starts at 100 and loses points per failed check.
const (
	penaltyIncomplete = 30
	penaltyNoContext  = 40
	penaltyIncoherent = 30
)

// QualityScore describes how complete and coherent a chunk is.
type QualityScore struct {
	// Complete is true when the chunk ends at a sentence boundary or a
	// balanced table/code marker.
	Complete bool
	// HasContext is true when the chunk has enough words to be meaningful.
	HasContext bool
	// Coherent is true when no table row or code fence is split mid-way.
	Coherent bool
	// WordCount is the number of whitespace-separated words.
	WordCount int
	// Score is the overall quality in [0, 100].
	Score int
	// Issues lists the failed checks in human-readable form.
	Issues []string
}

// scoreChunk validates a chunk's quality. Empty chunks count as complete.
func scoreChunk(chunk string, minWords int) QualityScore {
	var issues []string

	words := strings.Fields(chunk)
	wordCount := len(words)
	hasContext := wordCount >= minWords
	if !hasContext {
		issues = append(issues, "too short")
	}

	// Only a chunk ending in a table row counts as table-complete; a pipe
	// mentioned mid-sentence does not.
	stripped := strings.TrimSpace(chunk)
	complete := stripped == "" ||
		strings.ContainsRune(".!?:", rune(stripped[len(stripped)-1])) ||
		strings.HasSuffix(stripped, "```") ||
		strings.HasSuffix(stripped, "|")
	if !complete {
		issues = append(issues, "ends mid-sentence")
	}

	// A line with exactly one pipe suggests a table row cut in half.
	coherent := true
	for _, line := range strings.Split(chunk, "\n") {
		if n := strings.Count(line, "|"); n == 1 {
			coherent = false
			issues = append(issues, "broken table row")
			break
		}
	}
	if strings.Count(chunk, "```")%2 != 0 {
		coherent = false
		issues = append(issues, "incomplete code block")
	}

	score := 100
	if !complete {
		score -= penaltyIncomplete
	}
	if !hasContext {
		score -= penaltyNoContext
	}
	if !coherent {
		score -= penaltyIncoherent
	}
	if score < 0 {
		score = 0
	}

	return QualityScore{
		Complete:   complete,
		HasContext: hasContext,
		Coherent:   coherent,
		WordCount:  wordCount,
		Score:      score,
		Issues:     issues,
	}
}
