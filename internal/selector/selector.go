// Package selector picks which content items appear in a newsletter run.
//
// Items are ranked lexicographically: never-selected items first, then items
// modified within the recency window, then items with front-matter, then the
// most recently modified. With forced rotation enabled, previously selected
// slots are only filled from items absent from the rotation history, and a run
// that surfaces too few new items also gives up new slots to such items, so
// successive runs do not repeat themselves.
package selector

import (
	"math/rand"
	"sort"
	"time"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

const (
	DefaultMaxCount       = 6
	DefaultDaysAgo        = 30
	DefaultRotationCount  = 2
	DefaultRotationMemory = 10
)

// Config controls a selection.
type Config struct {
	MaxCount       int  `yaml:"max_count" json:"max_count"`
	DaysAgo        int  `yaml:"days_ago" json:"days_ago"`
	ForceRotation  bool `yaml:"force_rotation" json:"force_rotation"`
	RotationCount  int  `yaml:"rotation_count" json:"rotation_count"`
	RotationMemory int  `yaml:"rotation_memory" json:"rotation_memory"`

	// Rand, when set, breaks exact ties between candidates. Seed it for
	// reproducible runs.
	Rand *rand.Rand `yaml:"-" json:"-"`
}

// DefaultConfig returns the default selection parameters.
func DefaultConfig() Config {
	return Config{
		MaxCount:       DefaultMaxCount,
		DaysAgo:        DefaultDaysAgo,
		RotationCount:  DefaultRotationCount,
		RotationMemory: DefaultRotationMemory,
	}
}

func (c Config) clamped() Config {
	c.MaxCount = max(c.MaxCount, 0)
	c.DaysAgo = max(c.DaysAgo, 0)
	c.RotationCount = max(c.RotationCount, 0)
	c.RotationMemory = max(c.RotationMemory, 0)
	return c
}

// Result is the outcome of a selection.
type Result struct {
	RunID      string                `json:"run_id,omitempty"`
	Selected   []Candidate           `json:"selected"`
	Rotated    bool                  `json:"rotated"`
	RotatedIn  []string              `json:"rotated_in,omitempty"`
	RotatedOut []string              `json:"rotated_out,omitempty"`
	Ranked     []Candidate           `json:"-"`
	State      *model.SelectionState `json:"-"`
}

// IDs returns the selected identifiers in presentation order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Selected))
	for i, c := range r.Selected {
		ids[i] = c.ID
	}
	return ids
}

// Rank scores every item against st and returns them best first. Duplicate
// identifiers collapse to the last occurrence.
func Rank(items []model.ContentItem, st *model.SelectionState, cfg Config, now time.Time) []Candidate {
	cfg = cfg.clamped()
	cutoff := now.Add(-time.Duration(cfg.DaysAgo) * 24 * time.Hour)

	byID := make(map[string]model.ContentItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ranked := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		c := newCandidate(byID[id], st, cutoff)
		if cfg.Rand != nil {
			c.tiebreak = cfg.Rand.Int63()
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return outranks(ranked[i], ranked[j]) })
	return ranked
}

// Select chooses up to cfg.MaxCount items and returns them with the updated
// state. st is not modified.
func Select(items []model.ContentItem, st *model.SelectionState, cfg Config, now time.Time) *Result {
	cfg = cfg.clamped()
	ranked := Rank(items, st, cfg, now)

	n := min(cfg.MaxCount, len(ranked))
	provisional := ranked[:n]
	res := &Result{Ranked: ranked, Selected: append([]Candidate(nil), provisional...)}

	if cfg.ForceRotation {
		keep := cfg.MaxCount
		if needsRotation(provisional, cfg) {
			keep = max(cfg.MaxCount-cfg.RotationCount, 0)
		}
		res.Selected = rotate(ranked, provisional, keep, cfg.MaxCount)
		res.RotatedIn, res.RotatedOut = diff(provisional, res.Selected)
		res.Rotated = len(res.RotatedIn) > 0 || len(res.RotatedOut) > 0
	}

	res.State = st.Clone()
	res.State.Record(res.IDs(), cfg.RotationMemory)
	return res
}

// needsRotation reports whether the provisional pick surfaces too few new
// items, in which case new items give up slots to rotated ones. When the rotation count covers the whole selection, the threshold
// is the rotation count itself.
func needsRotation(provisional []Candidate, cfg Config) bool {
	fresh := countNew(provisional)
	keep := max(cfg.MaxCount-cfg.RotationCount, 0)
	if keep == 0 {
		return fresh < cfg.RotationCount
	}
	return fresh < keep
}

// rotate keeps at most keep new items from the provisional pick and fills up
// to limit with the best non-new items missing from the pre-run history. It
// under-fills rather than repeat a recently rotated item.
func rotate(ranked, provisional []Candidate, keep, limit int) []Candidate {
	var out []Candidate
	taken := map[string]bool{}
	for _, c := range provisional {
		if c.IsNew && len(out) < keep {
			out = append(out, c)
			taken[c.ID] = true
		}
	}
	for _, c := range ranked {
		if len(out) >= limit {
			break
		}
		if taken[c.ID] || c.IsNew || c.InHistory {
			continue
		}
		out = append(out, c)
		taken[c.ID] = true
	}

	sort.SliceStable(out, func(i, j int) bool { return outranks(out[i], out[j]) })
	return out
}

func countNew(cs []Candidate) int {
	n := 0
	for _, c := range cs {
		if c.IsNew {
			n++
		}
	}
	return n
}

func diff(before, after []Candidate) (in, out []string) {
	was := map[string]bool{}
	for _, c := range before {
		was[c.ID] = true
	}
	kept := map[string]bool{}
	for _, c := range after {
		kept[c.ID] = true
		if !was[c.ID] {
			in = append(in, c.ID)
		}
	}
	for _, c := range before {
		if !kept[c.ID] {
			out = append(out, c.ID)
		}
	}
	return in, out
}
