// Package citations validates the citations an answer makes against the
// sources the model was actually shown. Validation produces a report; the
// answer text itself is never modified.
package citations

import (
	"regexp"
	"strings"
)

// Source is a (title, url) pair the model was allowed to cite.
type Source struct {
	Title string
	URL   string
}

// Citation is a single extracted citation occurrence.
type Citation struct {
	// Text is the citation as it appeared in the answer.
	Text string
	// Title is the link title, empty for bare URLs.
	Title string
	// URL is the link target, empty for bracket-only references.
	URL string
}

// VerificationResult reports citation quality for one generated answer.
type VerificationResult struct {
	ValidCitations   []Citation
	InvalidCitations []Citation
	TotalCitations   int
	// CitationAccuracy is valid/(valid+invalid), 1.0 with no citations.
	CitationAccuracy float64
	// SourcesUsed lists source titles the answer cited.
	SourcesUsed []string
	// SourcesNotCited lists source titles the answer never referenced.
	SourcesNotCited []string
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://[^\s)\]]+`)
	bracketPattern      = regexp.MustCompile(`\[([^\]]+)\]`)
)

// Verify checks every citation in the answer against the source list.
func Verify(answer string, sources []Source) VerificationResult {
	urlSet := make(map[string]string, len(sources))
	titleSet := make(map[string]string, len(sources))
	for _, s := range sources {
		urlSet[normalizeURL(s.URL)] = s.Title
		titleSet[normalizeTitle(s.Title)] = s.Title
	}

	used := make(map[string]bool)
	var result VerificationResult

	record := func(c Citation, valid bool, sourceTitle string) {
		if valid {
			result.ValidCitations = append(result.ValidCitations, c)
			if sourceTitle != "" {
				used[sourceTitle] = true
			}
		} else {
			result.InvalidCitations = append(result.InvalidCitations, c)
		}
	}

	// Markdown links: valid on a URL match, or failing that a title match.
	remaining := markdownLinkPattern.ReplaceAllStringFunc(answer, func(m string) string {
		groups := markdownLinkPattern.FindStringSubmatch(m)
		c := Citation{Text: m, Title: groups[1], URL: groups[2]}
		if title, ok := urlSet[normalizeURL(c.URL)]; ok {
			record(c, true, title)
		} else if title, ok := titleSet[normalizeTitle(c.Title)]; ok {
			record(c, true, title)
		} else {
			record(c, false, "")
		}
		return ""
	})

	// Bare URLs in whatever text the markdown pass left behind.
	for _, m := range bareURLPattern.FindAllString(remaining, -1) {
		c := Citation{Text: m, URL: m}
		if title, ok := urlSet[normalizeURL(m)]; ok {
			record(c, true, title)
		} else {
			record(c, false, "")
		}
	}

	// Bracket-only references count when they name a source title. A
	// non-matching bracket is incidental formatting, not a bad citation.
	for _, groups := range bracketPattern.FindAllStringSubmatch(remaining, -1) {
		if title, ok := titleSet[normalizeTitle(groups[1])]; ok {
			record(Citation{Text: groups[0], Title: groups[1]}, true, title)
		}
	}

	result.TotalCitations = len(result.ValidCitations) + len(result.InvalidCitations)
	if result.TotalCitations == 0 {
		result.CitationAccuracy = 1.0
	} else {
		result.CitationAccuracy = float64(len(result.ValidCitations)) / float64(result.TotalCitations)
	}

	for _, s := range sources {
		if used[s.Title] {
			result.SourcesUsed = append(result.SourcesUsed, s.Title)
		} else {
			result.SourcesNotCited = append(result.SourcesNotCited, s.Title)
		}
	}

	return result
}

// Annotate returns the answer with a warning marker appended to each
// invalid citation. The original answer is left untouched.
func Annotate(answer string, result VerificationResult) string {
	seen := make(map[string]bool)
	for _, c := range result.InvalidCitations {
		if seen[c.Text] {
			continue
		}
		seen[c.Text] = true
		answer = strings.ReplaceAll(answer, c.Text, c.Text+" ⚠️")
	}
	return answer
}

// normalizeURL lowercases, trims, strips the query string and any trailing
// slashes so equivalent URLs compare equal.
func normalizeURL(u string) string {
	u = strings.TrimSpace(strings.ToLower(u))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

func normalizeTitle(t string) string {
	return strings.TrimSpace(strings.ToLower(t))
}
