package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

// SQLiteStore implements Store using SQLite. Each Save is one transaction and
// is recorded as a run.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
	now     func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path. A file
// that is not a readable database is moved aside to <path>.corrupt and a fresh
// database is created; the store is then returned together with an error
// wrapping ErrStateCorrupt.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	s, err := openSQLite(dbPath)
	if err == nil || !isCorrupt(err) {
		return s, err
	}

	corrupt := err
	if err := os.Rename(dbPath, dbPath+".corrupt"); err != nil {
		return nil, fmt.Errorf("move corrupt db aside: %w", err)
	}
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")

	s, err = openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	return s, fmt.Errorf("%w: %w", ErrStateCorrupt, corrupt)
}

func openSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// isCorrupt reports whether err says the file is not a usable database.
func isCorrupt(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") || strings.Contains(msg, "malformed")
}

// NewID returns a new ULID, time-ordered so runs sort chronologically.
func (s *SQLiteStore) NewID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed (
		id          TEXT PRIMARY KEY,
		first_run   TEXT,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rotation (
		seq         INTEGER PRIMARY KEY,
		id          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		selected    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads processed ids and the rotation history in order.
func (s *SQLiteStore) Load(ctx context.Context, memory int) (*model.SelectionState, error) {
	st := model.NewSelectionState()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM processed`)
	if err != nil {
		return model.NewSelectionState(), fmt.Errorf("%w: query processed: %w", ErrStateCorrupt, err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return model.NewSelectionState(), fmt.Errorf("%w: scan processed: %w", ErrStateCorrupt, err)
		}
		st.Processed[id] = true
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT id FROM rotation ORDER BY seq`)
	if err != nil {
		return model.NewSelectionState(), fmt.Errorf("%w: query rotation: %w", ErrStateCorrupt, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.NewSelectionState(), fmt.Errorf("%w: scan rotation: %w", ErrStateCorrupt, err)
		}
		st.Processed[id] = true
		st.History = append(st.History, id)
	}
	if err := rows.Err(); err != nil {
		return model.NewSelectionState(), fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}

	st.Trim(memory)
	return st, nil
}

// Save replaces the persisted state in a single transaction and records a run
// listing the identifiers that were new to the processed set.
func (s *SQLiteStore) Save(ctx context.Context, st *model.SelectionState) error {
	return s.SaveRun(ctx, st, model.Run{ID: s.NewID(), CreatedAt: s.now()})
}

// SaveRun is Save with caller-supplied run metadata. A nil run.Selected is
// filled with the newly processed identifiers.
func (s *SQLiteStore) SaveRun(ctx context.Context, st *model.SelectionState, run model.Run) error {
	if run.ID == "" {
		run.ID = s.NewID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	created := run.CreatedAt.UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var fresh []string
	for _, id := range st.ProcessedList() {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO processed (id, first_run, created_at) VALUES (?, ?, ?)`,
			id, run.ID, created)
		if err != nil {
			return fmt.Errorf("insert processed: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			fresh = append(fresh, id)
		}
	}

	if err := pruneProcessed(ctx, tx, st); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rotation`); err != nil {
		return fmt.Errorf("clear rotation: %w", err)
	}
	for i, id := range st.History {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rotation (seq, id) VALUES (?, ?)`, i, id); err != nil {
			return fmt.Errorf("insert rotation: %w", err)
		}
	}

	selected := run.Selected
	if selected == nil {
		selected = fresh
	}
	if selected == nil {
		selected = []string{}
	}
	sel, _ := json.Marshal(selected)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, selected) VALUES (?, ?, ?)`,
		run.ID, created, string(sel)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return tx.Commit()
}

// pruneProcessed deletes processed rows that st no longer holds, so Save
// replaces the processed set as FileStore does.
func pruneProcessed(ctx context.Context, tx *sql.Tx, st *model.SelectionState) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM processed`)
	if err != nil {
		return fmt.Errorf("query processed: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan processed: %w", err)
		}
		if !st.IsProcessed(id) {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("query processed: %w", err)
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM processed WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete processed: %w", err)
		}
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, selected FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var createdAt, selected string
		if err := rows.Scan(&r.ID, &createdAt, &selected); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: parse created_at: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(selected), &r.Selected); err != nil {
			return nil, fmt.Errorf("run %s: decode selected: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
