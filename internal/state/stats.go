package state

import (
	"context"
	"fmt"
	"os"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

// Stats summarises persisted selection state.
type Stats struct {
	Backend   string   `json:"backend"`
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Processed int      `json:"processed"`
	History   []string `json:"history"`
	Runs      int      `json:"runs,omitempty"`
	LastRunAt string   `json:"last_run_at,omitempty"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{Backend: "sqlite", Path: dbPath, History: []string{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.SizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed`).Scan(&st.Processed); err != nil {
		return st, fmt.Errorf("count processed: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.Runs); err != nil {
		return st, fmt.Errorf("count runs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), '') FROM runs`).Scan(&st.LastRunAt); err != nil {
		return st, fmt.Errorf("last run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rotation ORDER BY seq`)
	if err != nil {
		return st, fmt.Errorf("query rotation: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return st, fmt.Errorf("scan rotation: %w", err)
		}
		st.History = append(st.History, id)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("query rotation: %w", err)
	}
	return st, nil
}

// Stats reports the two list files without trimming history.
func (f *FileStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "file", Path: f.Dir, History: []string{}}
	for _, p := range []string{f.processedPath(), f.historyPath()} {
		if info, err := os.Stat(p); err == nil {
			st.SizeBytes += info.Size()
		}
	}
	processed, err := readLines(f.processedPath())
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	history, err := readLines(f.historyPath())
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	full := model.Snapshot{Processed: processed, History: history}.State()
	st.Processed = len(full.Processed)
	st.History = append(st.History, full.History...)
	return st, nil
}
