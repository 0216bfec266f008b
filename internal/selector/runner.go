package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/model"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

var (
	// ErrStoreUnavailable means the content directory could not be listed.
	ErrStoreUnavailable = content.ErrStoreUnavailable
	// ErrStateCorrupt means persisted state was unreadable and a fresh state was used.
	ErrStateCorrupt = state.ErrStateCorrupt
	// ErrPersistence means the selection succeeded but the updated state was not saved.
	ErrPersistence = errors.New("selection state not persisted")
)

// RunOptions tweaks a single Run.
type RunOptions struct {
	// DryRun computes the selection without saving state.
	DryRun bool
}

// Runner loads content and state, selects, and saves the updated state.
type Runner struct {
	Source content.Source
	State  state.Store
	Config Config
	Now    func() time.Time
	Logger logrus.FieldLogger
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Run performs one selection. On ErrStoreUnavailable the result is empty and
// state is untouched. On ErrPersistence the returned result is still valid.
// A corrupt state is logged and replaced by an empty one.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	now := r.now()
	runID := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	log := r.log().WithField("run_id", runID)

	items, err := r.Source.List(ctx)
	if err != nil {
		log.WithError(err).Error("content store unavailable")
		return &Result{RunID: runID, Selected: []Candidate{}}, fmt.Errorf("list content: %w", err)
	}

	st, err := r.State.Load(ctx, r.Config.RotationMemory)
	if err != nil {
		if !errors.Is(err, ErrStateCorrupt) {
			return &Result{RunID: runID, Selected: []Candidate{}}, fmt.Errorf("load state: %w", err)
		}
		log.WithError(err).Warn("selection state corrupt, starting fresh")
		st = model.NewSelectionState()
	}

	res := Select(items, st, r.Config, now)
	res.RunID = runID

	log.WithFields(logrus.Fields{
		"candidates": len(res.Ranked),
		"selected":   len(res.Selected),
		"rotated":    res.Rotated,
	}).Info("selection complete")
	for _, c := range res.Selected {
		log.WithFields(logrus.Fields{
			"item":   c.ID,
			"new":    c.IsNew,
			"recent": c.IsRecent,
			"meta":   c.HasFrontMatter,
			"points": c.Points,
		}).Debug("selected")
	}
	if res.Rotated {
		log.WithFields(logrus.Fields{
			"in":  res.RotatedIn,
			"out": res.RotatedOut,
		}).Info("forced rotation")
	}

	if opts.DryRun {
		return res, nil
	}

	if err := r.save(ctx, res, now); err != nil {
		log.WithError(err).Error("persist selection state")
		return res, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return res, nil
}

func (r *Runner) save(ctx context.Context, res *Result, now time.Time) error {
	if rec, ok := r.State.(state.RunRecorder); ok {
		return rec.SaveRun(ctx, res.State, model.Run{ID: res.RunID, CreatedAt: now, Selected: res.IDs()})
	}
	return r.State.Save(ctx, res.State)
}
