package reranker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

func candidate(id, childText string, score float32) retriever.Candidate {
	return retriever.Candidate{
		ID:    id,
		Score: score,
		Payload: vectorstore.Payload{
			DocumentID: id,
			ChildText:  childText,
		},
	}
}

type fixedScorer struct {
	scores []float32
	err    error
}

func (s *fixedScorer) Score(context.Context, string, []string) ([]float32, error) {
	return s.scores, s.err
}

func TestCrossEncoderReordersByScore(t *testing.T) {
	r := NewCrossEncoder(func() (Scorer, error) {
		return &fixedScorer{scores: []float32{0.1, 0.9, 0.5}}, nil
	}, zap.NewNop())

	in := []retriever.Candidate{
		candidate("a", "x", 0.9),
		candidate("b", "y", 0.8),
		candidate("c", "z", 0.7),
	}

	got, err := r.Rerank(context.Background(), "q", in, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestCrossEncoderDegradedPassthrough(t *testing.T) {
	r := NewCrossEncoder(func() (Scorer, error) {
		return nil, errors.New("model not found")
	}, zap.NewNop())

	in := []retriever.Candidate{
		candidate("a", "x", 0.9),
		candidate("b", "y", 0.8),
		candidate("c", "z", 0.7),
	}

	got, err := r.Rerank(context.Background(), "q", in, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	// The loader failed once; later calls stay degraded without retrying.
	got, err = r.Rerank(context.Background(), "q", in, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestCrossEncoderScoreErrorPassthrough(t *testing.T) {
	r := NewCrossEncoder(func() (Scorer, error) {
		return &fixedScorer{err: errors.New("inference failed")}, nil
	}, zap.NewNop())

	in := []retriever.Candidate{candidate("a", "x", 0.9), candidate("b", "y", 0.8)}

	got, err := r.Rerank(context.Background(), "q", in, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestCrossEncoderConcurrentLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	r := NewCrossEncoder(func() (Scorer, error) {
		loads.Add(1)
		return &fixedScorer{scores: []float32{0.1, 0.9}}, nil
	}, zap.NewNop())

	in := []retriever.Candidate{candidate("a", "x", 0.9), candidate("b", "y", 0.8)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Rerank(context.Background(), "q", in, 2)
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load(), "scorer must load exactly once")
}

func TestCrossEncoderEmptyInput(t *testing.T) {
	r := NewCrossEncoder(func() (Scorer, error) {
		return &fixedScorer{}, nil
	}, zap.NewNop())

	got, err := r.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCrossEncoderStableTies(t *testing.T) {
	r := NewCrossEncoder(func() (Scorer, error) {
		return &fixedScorer{scores: []float32{0.5, 0.5, 0.5}}, nil
	}, zap.NewNop())

	in := []retriever.Candidate{
		candidate("a", "x", 0.9),
		candidate("b", "y", 0.8),
		candidate("c", "z", 0.7),
	}

	got, err := r.Rerank(context.Background(), "q", in, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestLexicalScorer(t *testing.T) {
	s := NewLexicalScorer()
	scores, err := s.Score(context.Background(), "configure confluence webhooks", []string{
		"how to configure webhooks in confluence",
		"installing the database",
		"",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	assert.InDelta(t, 0.0, scores[2], 1e-6)
}

func TestLexicalScorerEmptyQuery(t *testing.T) {
	s := NewLexicalScorer()
	scores, err := s.Score(context.Background(), "the and of", []string{"anything"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, scores)
}
