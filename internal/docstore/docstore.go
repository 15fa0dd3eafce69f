// Package docstore reads crawled documents and persists user feedback in a
// local SQLite database. The crawler owns the pages table; ragd only reads
// it. The feedback table is ragd's own.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Document is one crawled page.
type Document struct {
	ID      string
	Title   string
	URL     string
	Text    string
	Version string
}

// Feedback is one user verdict on a generated answer.
type Feedback struct {
	ID        int64
	Question  string
	Answer    string
	Sources   []FeedbackSource
	Type      string
	UserID    string
	Comment   string
	CreatedAt time.Time
}

// FeedbackSource records one source shown with the judged answer.
type FeedbackSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL enabled,
// and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	text TEXT NOT NULL,
	version TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources TEXT NOT NULL DEFAULT '[]',
	feedback_type TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_type ON feedback(feedback_type);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating document store: %w", err)
	}
	return nil
}

// Documents returns every crawled page.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, url, text, version FROM pages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.URL, &d.Text, &d.Version); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SaveFeedback persists one feedback record and returns its id.
func (s *Store) SaveFeedback(ctx context.Context, f Feedback) (int64, error) {
	sources, err := json.Marshal(f.Sources)
	if err != nil {
		return 0, fmt.Errorf("encoding feedback sources: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (question, answer, sources, feedback_type, user_id, comment)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Question, f.Answer, string(sources), f.Type, f.UserID, f.Comment)
	if err != nil {
		return 0, fmt.Errorf("saving feedback: %w", err)
	}
	return res.LastInsertId()
}

// FeedbackStats returns feedback counts grouped by type.
func (s *Store) FeedbackStats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`)
	if err != nil {
		return nil, fmt.Errorf("aggregating feedback: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("scanning feedback stats: %w", err)
		}
		stats[typ] = count
	}
	return stats, rows.Err()
}
