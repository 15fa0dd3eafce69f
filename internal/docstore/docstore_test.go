package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDocumentsEmpty(t *testing.T) {
	s := openTestStore(t)

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(
		`INSERT INTO pages (id, title, url, text, version) VALUES (?, ?, ?, ?, ?)`,
		"p1", "Setup", "https://wiki.example.com/setup", "Install the agent.", "v3")
	require.NoError(t, err)

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, Document{
		ID: "p1", Title: "Setup", URL: "https://wiki.example.com/setup",
		Text: "Install the agent.", Version: "v3",
	}, docs[0])
}

func TestSaveFeedbackAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveFeedback(ctx, Feedback{
		Question: "how to enable sso?",
		Answer:   "See [Setup](https://wiki.example.com/setup).",
		Sources:  []FeedbackSource{{Title: "Setup", URL: "https://wiki.example.com/setup"}},
		Type:     "positive",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.SaveFeedback(ctx, Feedback{
		Question: "why is search slow?", Answer: "n/a", Type: "negative",
	})
	require.NoError(t, err)

	stats, err := s.FeedbackStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"positive": 1, "negative": 1}, stats)
}
