// Package model defines the core content and selection state types.
package model

import (
	"sort"
	"time"
)

// ContentItem is one unit of source material eligible for a newsletter run.
type ContentItem struct {
	ID             string    `json:"id"`
	Path           string    `json:"path,omitempty"`
	ModifiedAt     time.Time `json:"modified_at"`
	CreatedAt      time.Time `json:"created_at"`
	HasFrontMatter bool      `json:"has_front_matter"`
}

// SelectionState is the bookkeeping carried between runs.
type SelectionState struct {
	Processed map[string]bool `json:"-"`
	History   []string        `json:"history"`
}

// NewSelectionState returns an empty state.
func NewSelectionState() *SelectionState {
	return &SelectionState{Processed: map[string]bool{}}
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (s *SelectionState) Clone() *SelectionState {
	out := NewSelectionState()
	if s == nil {
		return out
	}
	for id := range s.Processed {
		out.Processed[id] = true
	}
	out.History = append([]string(nil), s.History...)
	return out
}

// IsProcessed reports whether id was selected in any past run.
func (s *SelectionState) IsProcessed(id string) bool {
	return s != nil && s.Processed[id]
}

// InHistory reports whether id is in the rotation history.
func (s *SelectionState) InHistory(id string) bool {
	if s == nil {
		return false
	}
	for _, h := range s.History {
		if h == id {
			return true
		}
	}
	return false
}

// ProcessedList returns the processed identifiers sorted ascending.
func (s *SelectionState) ProcessedList() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Processed))
	for id := range s.Processed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Record marks ids as processed and appends them to the history, keeping at
// most memory entries (oldest evicted first). A memory of zero or less keeps
// no history.
func (s *SelectionState) Record(ids []string, memory int) {
	if s.Processed == nil {
		s.Processed = map[string]bool{}
	}
	for _, id := range ids {
		s.Processed[id] = true
	}
	s.History = append(s.History, ids...)
	s.Trim(memory)
}

// Trim drops the oldest history entries beyond memory.
func (s *SelectionState) Trim(memory int) {
	if memory <= 0 {
		s.History = nil
		return
	}
	if over := len(s.History) - memory; over > 0 {
		s.History = append([]string(nil), s.History[over:]...)
	}
}

// Snapshot is the portable JSON form of a SelectionState.
type Snapshot struct {
	Processed []string `json:"processed"`
	History   []string `json:"history"`
}

// Snapshot converts the state into its export form.
func (s *SelectionState) Snapshot() Snapshot {
	snap := Snapshot{Processed: s.ProcessedList(), History: []string{}}
	if snap.Processed == nil {
		snap.Processed = []string{}
	}
	if s != nil {
		snap.History = append(snap.History, s.History...)
	}
	return snap
}

// State rebuilds a SelectionState from a snapshot. History entries are also
// marked processed so the superset invariant holds for hand-edited exports.
func (snap Snapshot) State() *SelectionState {
	st := NewSelectionState()
	for _, id := range snap.Processed {
		if id != "" {
			st.Processed[id] = true
		}
	}
	for _, id := range snap.History {
		if id == "" {
			continue
		}
		st.Processed[id] = true
		st.History = append(st.History, id)
	}
	return st
}

// Run is one committed selection.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Selected  []string  `json:"selected"`
}
