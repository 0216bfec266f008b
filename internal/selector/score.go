package selector

import (
	"time"

	"github.com/rcliao/newsletter-rotation/internal/model"
)

// Display weights for Candidate.Points. Ordering uses the tiers directly.
const (
	newPoints    = 1000
	recentPoints = 100
	metaPoints   = 25
)

// Candidate is a content item with its scoring tiers resolved against a
// state and a point in time.
type Candidate struct {
	model.ContentItem
	IsNew     bool `json:"is_new"`
	IsRecent  bool `json:"is_recent"`
	InHistory bool `json:"in_history"`
	Points    int  `json:"points"`

	tiebreak int64
}

func newCandidate(item model.ContentItem, st *model.SelectionState, cutoff time.Time) Candidate {
	c := Candidate{
		ContentItem: item,
		IsNew:       !st.IsProcessed(item.ID),
		IsRecent:    !item.ModifiedAt.Before(cutoff),
		InHistory:   st.InHistory(item.ID),
	}
	if c.IsNew {
		c.Points += newPoints
	}
	if c.IsRecent {
		c.Points += recentPoints
	}
	if c.HasFrontMatter {
		c.Points += metaPoints
	}
	return c
}

// outranks orders candidates by new, then recent, then front-matter, then
// newest modification. Exact ties fall back to the tiebreak draw (zero unless
// a random source is configured) and finally to the identifier.
func outranks(a, b Candidate) bool {
	if a.IsNew != b.IsNew {
		return a.IsNew
	}
	if a.IsRecent != b.IsRecent {
		return a.IsRecent
	}
	if a.HasFrontMatter != b.HasFrontMatter {
		return a.HasFrontMatter
	}
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	if a.tiebreak != b.tiebreak {
		return a.tiebreak > b.tiebreak
	}
	return a.ID < b.ID
}
