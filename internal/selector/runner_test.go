package selector

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/model"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

type failingStore struct {
	state.MemoryStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, st *model.SelectionState) error {
	return f.saveErr
}

type corruptStore struct{ state.MemoryStore }

func (c *corruptStore) Load(ctx context.Context, memory int) (*model.SelectionState, error) {
	return model.NewSelectionState(), state.ErrStateCorrupt
}

func newRunner(src content.Source, st state.Store) *Runner {
	return &Runner{
		Source: src,
		State:  st,
		Config: DefaultConfig(),
		Now:    func() time.Time { return testNow },
	}
}

func sampleSource() content.Static {
	return content.Static{
		item("a.md", daysAgo(1), false),
		item("b.md", daysAgo(2), true),
		item("c.md", daysAgo(3), false),
	}
}

func TestRunnerCommitsState(t *testing.T) {
	ctx := context.Background()
	mem := state.NewMemoryStore(nil)
	r := newRunner(sampleSource(), mem)

	res, err := r.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.RunID == "" {
		t.Error("expected run id")
	}
	if len(res.Selected) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(res.Selected))
	}

	st, _ := mem.Load(ctx, 10)
	if len(st.Processed) != 3 || len(st.History) != 3 {
		t.Errorf("state not committed: %+v", st)
	}

	// Second run sees nothing new.
	res, _ = r.Run(ctx, RunOptions{})
	for _, c := range res.Selected {
		if c.IsNew {
			t.Errorf("%s should no longer be new", c.ID)
		}
	}
}

func TestRunnerDryRun(t *testing.T) {
	ctx := context.Background()
	mem := state.NewMemoryStore(nil)
	r := newRunner(sampleSource(), mem)

	first, _ := r.Run(ctx, RunOptions{DryRun: true})
	second, _ := r.Run(ctx, RunOptions{DryRun: true})

	if mem.Saves != 0 {
		t.Errorf("dry run saved state %d times", mem.Saves)
	}
	if strings.Join(first.IDs(), ",") != strings.Join(second.IDs(), ",") {
		t.Errorf("dry runs differ: %v vs %v", first.IDs(), second.IDs())
	}
}

func TestRunnerStoreUnavailable(t *testing.T) {
	mem := state.NewMemoryStore(nil)
	r := newRunner(content.NewDir(filepath.Join(t.TempDir(), "missing")), mem)

	res, err := r.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if res == nil || len(res.Selected) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if mem.Saves != 0 {
		t.Error("state must be unchanged")
	}
}

func TestRunnerCorruptStateStartsFresh(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	r := newRunner(sampleSource(), &corruptStore{})
	r.Logger = logger

	res, err := r.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("corrupt state should not fail the run: %v", err)
	}
	for _, c := range res.Selected {
		if !c.IsNew {
			t.Errorf("%s should look new after corrupt state", c.ID)
		}
	}
	if !strings.Contains(buf.String(), "starting fresh") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestRunnerPersistenceFailure(t *testing.T) {
	r := newRunner(sampleSource(), &failingStore{saveErr: errors.New("disk full")})

	res, err := r.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if res == nil || len(res.Selected) != 3 {
		t.Errorf("selection should still be returned, got %+v", res)
	}
}

func TestRunnerWithFileAndSQLiteStores(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	os.MkdirAll(docs, 0o755)
	for _, name := range []string{"one.md", "two.md", "three.md"} {
		os.WriteFile(filepath.Join(docs, name), []byte("# "+name), 0o644)
	}

	for _, path := range []string{filepath.Join(root, "tracking"), filepath.Join(root, "state.db")} {
		st, err := state.Open(path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		r := &Runner{Source: content.NewDir(docs), State: st, Config: DefaultConfig()}
		if _, err := r.Run(ctx, RunOptions{}); err != nil {
			t.Fatalf("run with %s: %v", path, err)
		}
		loaded, err := st.Load(ctx, 10)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if len(loaded.Processed) != 3 {
			t.Errorf("%s: expected 3 processed, got %d", path, len(loaded.Processed))
		}
		st.Close()
	}
}
