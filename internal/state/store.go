// Package state persists selection bookkeeping between runs.
package state

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

// ErrStateCorrupt is returned by Load when persisted state cannot be read or
// parsed. The returned state is empty and safe to use.
var ErrStateCorrupt = errors.New("selection state corrupt")

// Store defines the selection state storage interface.
type Store interface {
	// Load reads the persisted state, trimming history to memory entries.
	// Missing state is not an error.
	Load(ctx context.Context, memory int) (*model.SelectionState, error)

	// Save atomically replaces the persisted state.
	Save(ctx context.Context, st *model.SelectionState) error

	// Close releases resources held by the store.
	Close() error
}

// RunRecorder is implemented by stores that keep a log of committed runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, st *model.SelectionState, run model.Run) error
}

// Open picks a backend from path: files ending in .db or .sqlite open a
// SQLite store, anything else is treated as a directory for a FileStore.
// When the error wraps ErrStateCorrupt the returned store is still usable and
// starts empty.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		s, err := NewSQLiteStore(path)
		if s == nil {
			return nil, err
		}
		return s, err
	}
	return NewFileStore(path), nil
}

// MemoryStore keeps state in memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *model.SelectionState
	Saves int
}

// NewMemoryStore returns a MemoryStore seeded with st (may be nil).
func NewMemoryStore(st *model.SelectionState) *MemoryStore {
	return &MemoryStore{state: st.Clone()}
}

func (m *MemoryStore) Load(ctx context.Context, memory int) (*model.SelectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state.Clone()
	st.Trim(memory)
	return st, nil
}

func (m *MemoryStore) Save(ctx context.Context, st *model.SelectionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st.Clone()
	m.Saves++
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Export loads the full state from s as a snapshot.
func Export(ctx context.Context, s Store, memory int) (model.Snapshot, error) {
	st, err := s.Load(ctx, memory)
	if err != nil {
		return model.Snapshot{}, err
	}
	return st.Snapshot(), nil
}

// Import merges snap into the state held by s. Existing processed ids are
// kept; imported history entries are appended after the existing ones.
func Import(ctx context.Context, s Store, snap model.Snapshot, memory int) (*model.SelectionState, error) {
	st, err := s.Load(ctx, memory)
	if err != nil && !errors.Is(err, ErrStateCorrupt) {
		return nil, err
	}
	in := snap.State()
	for id := range in.Processed {
		st.Processed[id] = true
	}
	st.History = append(st.History, in.History...)
	st.Trim(memory)
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
