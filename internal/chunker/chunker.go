// Package chunker splits document text into hierarchical parent/child chunks.
//
// Parent chunks retain larger spans for context while child chunks are the
// unit that gets embedded and searched. Tables and fenced code blocks are
// extracted before splitting so boundaries never cut through them, and each
// child chunk carries a quality score describing completeness.
package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// ContentType describes what a chunk predominantly contains.
type ContentType string

const (
	// ContentTypeText marks an ordinary prose chunk.
	ContentTypeText ContentType = "text"
	// ContentTypeTable marks a chunk dominated by table content. Table
	// chunks are never subdivided into children.
	ContentTypeTable ContentType = "table"
)

// tableDominanceRatio is the fraction of a parent span that must be table
// content for the parent to be emitted as a single table chunk.
const tableDominanceRatio = 0.5

var (
	tablePattern     = regexp.MustCompile(`(\|[^\n]+\|\n?)+`)
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
)

// separators are tried in priority order: paragraph break, line break,
// sentence terminators, clause separators, then word boundary.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// Chunk is one parent/child passage pair produced from a document.
type Chunk struct {
	ParentIndex int
	ChildIndex  int
	ParentText  string
	ChildText   string
	ContentType ContentType
	Quality     QualityScore
}

// Config controls chunk sizes and overlap.
type Config struct {
	ParentSize    int
	ParentOverlap int
	ChildSize     int
	ChildOverlap  int
	MinWords      int
}

// DefaultConfig returns the chunking defaults used for documentation pages.
func DefaultConfig() Config {
	return Config{
		ParentSize:    1400,
		ParentOverlap: 200,
		ChildSize:     400,
		ChildOverlap:  80,
		MinWords:      5,
	}
}

// Chunker splits text into parent/child chunks. It is safe for concurrent
// use; all state is immutable after construction.
type Chunker struct {
	cfg            Config
	parentSplitter textsplitter.RecursiveCharacter
	childSplitter  textsplitter.RecursiveCharacter
}

// New creates a Chunker. Zero config fields fall back to defaults.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.ParentSize <= 0 {
		cfg.ParentSize = def.ParentSize
	}
	if cfg.ParentOverlap <= 0 {
		cfg.ParentOverlap = def.ParentOverlap
	}
	if cfg.ChildSize <= 0 {
		cfg.ChildSize = def.ChildSize
	}
	if cfg.ChildOverlap <= 0 {
		cfg.ChildOverlap = def.ChildOverlap
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}

	return &Chunker{
		cfg: cfg,
		parentSplitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(separators),
			textsplitter.WithChunkSize(cfg.ParentSize),
			textsplitter.WithChunkOverlap(cfg.ParentOverlap),
		),
		childSplitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(separators),
			textsplitter.WithChunkSize(cfg.ChildSize),
			textsplitter.WithChunkOverlap(cfg.ChildOverlap),
		),
	}
}

// Chunk splits document text into parent/child chunks. Empty or
// whitespace-only input yields nil. The output is deterministic for a given
// configuration and input.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Extract tables and fenced code so splitting never cuts through them.
	placeholdered, regions := extractSpecial(text)

	parents, err := c.parentSplitter.SplitText(placeholdered)
	if err != nil || len(parents) == 0 {
		// The recursive splitter only fails on pathological separator
		// configs; fall back to the whole text as one parent.
		parents = []string{placeholdered}
	}

	var chunks []Chunk
	for parentIdx, parentText := range parents {
		parentText = restoreSpecial(parentText, regions)

		// A parent dominated by table content is emitted unsplit.
		if tableChars(parentText) > int(float64(len(parentText))*tableDominanceRatio) {
			trimmed := strings.TrimSpace(parentText)
			chunks = append(chunks, Chunk{
				ParentIndex: parentIdx,
				ChildIndex:  0,
				ParentText:  trimmed,
				ChildText:   trimmed,
				ContentType: ContentTypeTable,
				Quality:     scoreChunk(trimmed, c.cfg.MinWords),
			})
			continue
		}

		children, err := c.childSplitter.SplitText(parentText)
		if err != nil || len(children) == 0 {
			children = []string{parentText}
		}

		trimmedParent := strings.TrimSpace(parentText)
		for childIdx, childText := range children {
			childText = strings.TrimSpace(childText)
			chunks = append(chunks, Chunk{
				ParentIndex: parentIdx,
				ChildIndex:  childIdx,
				ParentText:  trimmedParent,
				ChildText:   childText,
				ContentType: ContentTypeText,
				Quality:     scoreChunk(childText, c.cfg.MinWords),
			})
		}
	}

	return chunks
}

// region is an extracted table or code block awaiting restoration.
type region struct {
	placeholder string
	content     string
}

// extractSpecial replaces table and fenced-code regions with placeholders so
// the splitters treat each region as a single token-like span.
func extractSpecial(text string) (string, []region) {
	var regions []region

	for i, match := range tablePattern.FindAllString(text, -1) {
		regions = append(regions, region{
			placeholder: "__TABLE_" + strconv.Itoa(i) + "__",
			content:     match,
		})
	}
	for i, match := range codeBlockPattern.FindAllString(text, -1) {
		regions = append(regions, region{
			placeholder: "__CODE_" + strconv.Itoa(i) + "__",
			content:     match,
		})
	}

	// Replace in reverse so earlier occurrences keep their positions.
	result := text
	for i := len(regions) - 1; i >= 0; i-- {
		result = strings.Replace(result, regions[i].content, regions[i].placeholder, 1)
	}
	return result, regions
}

// restoreSpecial substitutes extracted content back in place of placeholders.
func restoreSpecial(text string, regions []region) string {
	for _, r := range regions {
		text = strings.Replace(text, r.placeholder, r.content, 1)
	}
	return text
}

// tableChars returns the number of characters inside table regions.
func tableChars(text string) int {
	total := 0
	for _, match := range tablePattern.FindAllString(text, -1) {
		total += len(match)
	}
	return total
}
