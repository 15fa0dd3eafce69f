package selfrag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

type fakeJudge struct {
	response string
	err      error
}

func (f *fakeJudge) GenerateJSON(context.Context, string) (string, error) {
	return f.response, f.err
}

func candidates(ids ...string) []retriever.Candidate {
	out := make([]retriever.Candidate, len(ids))
	for i, id := range ids {
		out[i] = retriever.Candidate{
			ID:      id,
			Payload: vectorstore.Payload{DocumentID: id, ChildText: "text " + id},
		}
	}
	return out
}

func TestApplyKeepsJudgedSubset(t *testing.T) {
	f := New(&fakeJudge{response: `[0, 2]`}, zap.NewNop())

	got, err := f.Apply(context.Background(), "q", candidates("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestApplyFailsOpenOnError(t *testing.T) {
	f := New(&fakeJudge{err: errors.New("judge down")}, zap.NewNop())

	got, err := f.Apply(context.Background(), "q", candidates("a", "b"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestApplyFailsOpenOnEmptyVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "empty array", response: `[]`},
		{name: "prose only", response: "none of these are relevant"},
		{name: "all out of range", response: `[7, 9]`},
		{name: "malformed", response: `[0,`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(&fakeJudge{response: tt.response}, zap.NewNop())
			got, err := f.Apply(context.Background(), "q", candidates("a", "b"))
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}

func TestApplyAcceptsQuotedIDs(t *testing.T) {
	f := New(&fakeJudge{response: `["1"]`}, zap.NewNop())

	got, err := f.Apply(context.Background(), "q", candidates("a", "b"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestApplyWrappedInProse(t *testing.T) {
	f := New(&fakeJudge{response: "Relevant passages: [1] based on my analysis."}, zap.NewNop())

	got, err := f.Apply(context.Background(), "q", candidates("a", "b"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("界", snippetLimit)

	got := truncate(long, snippetLimit)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
}

func TestApplyEmptyInput(t *testing.T) {
	f := New(&fakeJudge{response: `[0]`}, zap.NewNop())
	got, err := f.Apply(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
