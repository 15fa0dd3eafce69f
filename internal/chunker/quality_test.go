package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreChunk(t *testing.T) {
	tests := []struct {
		name      string
		chunk     string
		wantScore int
		wantIssue string
	}{
		{
			name:      "complete sentence",
			chunk:     "The ingestion pipeline runs nightly and refreshes every page.",
			wantScore: 100,
		},
		{
			name:      "too short",
			chunk:     "Setup guide.",
			wantScore: 60,
			wantIssue: "too short",
		},
		{
			name:      "mid sentence truncation",
			chunk:     "The retention policy applies to all spaces and the default is",
			wantScore: 70,
			wantIssue: "ends mid-sentence",
		},
		{
			name:      "broken table row",
			chunk:     "values are listed below\nname | and then the line was cut",
			wantScore: 40, // also ends mid-sentence
			wantIssue: "broken table row",
		},
		{
			name:      "pipe mention does not mask truncation",
			chunk:     "pipe characters | like these | do not end the chunk and it trails",
			wantScore: 70,
			wantIssue: "ends mid-sentence",
		},
		{
			name:      "table row ending counts as complete",
			chunk:     "supported values:\n| name | default |",
			wantScore: 100,
		},
		{
			name:      "unbalanced code fence",
			chunk:     "Run the following command to restart everything properly:\n```bash\nsystemctl restart ragd",
			wantScore: 40,
			wantIssue: "incomplete code block",
		},
		{
			name:      "empty counts as complete",
			chunk:     "",
			wantScore: 60, // loses context points only
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreChunk(tt.chunk, 5)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.GreaterOrEqual(t, got.Score, 0)
			assert.LessOrEqual(t, got.Score, 100)
			if tt.wantIssue != "" {
				assert.Contains(t, got.Issues, tt.wantIssue)
			}
		})
	}
}

func TestScoreChunkFloor(t *testing.T) {
	// Short, mid-sentence and incoherent at once must floor at 0.
	got := scoreChunk("```go\nx | y", 5)
	assert.Equal(t, 0, got.Score)
}
