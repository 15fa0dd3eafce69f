package assembler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

func cand(docID string, parentIdx int, title, url, parentText string) retriever.Candidate {
	return retriever.Candidate{
		ID: fmt.Sprintf("%s-%d", docID, parentIdx),
		Payload: vectorstore.Payload{
			DocumentID:  docID,
			Title:       title,
			URL:         url,
			ParentText:  parentText,
			ChildText:   "child of " + parentText,
			ParentIndex: parentIdx,
		},
	}
}

func TestAssembleNumbersAndSources(t *testing.T) {
	candidates := []retriever.Candidate{
		cand("d1", 0, "Setup", "https://wiki.example.com/setup", "Install the agent."),
		cand("d2", 0, "API", "https://wiki.example.com/api", "Call the endpoint."),
	}

	context, sources := Assemble(candidates, 5)

	require.Len(t, sources, 2)
	assert.Equal(t, Source{Number: 1, Title: "Setup", URL: "https://wiki.example.com/setup"}, sources[0])
	assert.Equal(t, Source{Number: 2, Title: "API", URL: "https://wiki.example.com/api"}, sources[1])

	assert.Contains(t, context, "[1] Setup (https://wiki.example.com/setup)\n\nInstall the agent.")
	assert.Contains(t, context, "[2] API (https://wiki.example.com/api)\n\nCall the endpoint.")
}

func TestAssembleDedupByParent(t *testing.T) {
	candidates := []retriever.Candidate{
		cand("d1", 0, "Setup", "https://wiki.example.com/setup", "First parent."),
		cand("d1", 0, "Setup", "https://wiki.example.com/setup", "Duplicate parent, different child."),
		cand("d1", 1, "Setup", "https://wiki.example.com/setup", "Second parent."),
	}

	context, sources := Assemble(candidates, 5)

	// Same document and parent index collapse; the first occurrence wins.
	assert.Equal(t, 1, strings.Count(context, "First parent."))
	assert.NotContains(t, context, "Duplicate parent")
	assert.Contains(t, context, "Second parent.")
	// Both surviving blocks share the single URL's number.
	require.Len(t, sources, 1)
	assert.Equal(t, 2, strings.Count(context, "[1] Setup"))
}

func TestAssembleDuplicatesDoNotConsumeBudget(t *testing.T) {
	candidates := []retriever.Candidate{
		cand("d1", 0, "A", "https://wiki.example.com/a", "Parent A."),
		cand("d1", 0, "A", "https://wiki.example.com/a", "Parent A duplicate."),
		cand("d2", 0, "B", "https://wiki.example.com/b", "Parent B."),
	}

	context, _ := Assemble(candidates, 2)

	assert.Contains(t, context, "Parent A.")
	assert.Contains(t, context, "Parent B.")
}

func TestAssembleBudget(t *testing.T) {
	var candidates []retriever.Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, cand(fmt.Sprintf("d%d", i), 0,
			fmt.Sprintf("T%d", i), fmt.Sprintf("https://wiki.example.com/%d", i),
			fmt.Sprintf("Parent %d.", i)))
	}

	_, sources := Assemble(candidates, 3)
	assert.Len(t, sources, 3)
}

func TestAssembleNumberingMatchesListPosition(t *testing.T) {
	candidates := []retriever.Candidate{
		cand("d1", 0, "A", "https://wiki.example.com/a", "Parent A."),
		cand("d2", 0, "B", "https://wiki.example.com/b", "Parent B."),
		cand("d1", 1, "A", "https://wiki.example.com/a", "Parent A2."),
	}

	context, sources := Assemble(candidates, 5)

	for i, s := range sources {
		assert.Equal(t, i+1, s.Number)
		assert.Contains(t, context, fmt.Sprintf("[%d] %s (%s)", s.Number, s.Title, s.URL))
	}
}

func TestAssembleIdempotent(t *testing.T) {
	candidates := []retriever.Candidate{
		cand("d1", 0, "A", "https://wiki.example.com/a", "Parent A."),
		cand("d2", 0, "B", "https://wiki.example.com/b", "Parent B."),
	}

	ctx1, src1 := Assemble(candidates, 5)
	ctx2, src2 := Assemble(candidates, 5)
	assert.Equal(t, ctx1, ctx2)
	assert.Equal(t, src1, src2)
}

func TestAssembleSentinel(t *testing.T) {
	context, sources := Assemble(nil, 5)
	assert.Equal(t, NoContextSentinel, context)
	assert.Empty(t, sources)

	empty := cand("d1", 0, "A", "https://wiki.example.com/a", "")
	empty.Payload.ChildText = "   "
	context, sources = Assemble([]retriever.Candidate{empty}, 5)
	assert.Equal(t, NoContextSentinel, context)
	assert.Empty(t, sources)
}

func TestAssembleFallsBackToChildText(t *testing.T) {
	c := cand("d1", 0, "A", "https://wiki.example.com/a", "")
	c.Payload.ChildText = "Only the child survived."

	context, _ := Assemble([]retriever.Candidate{c}, 5)
	assert.Contains(t, context, "Only the child survived.")
}
