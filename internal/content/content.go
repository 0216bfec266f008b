// Package content enumerates Markdown content items from a directory.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rcliao/newsletter-rotation/internal/markdown"
	"github.com/rcliao/newsletter-rotation/internal/model"
)

// ErrStoreUnavailable is returned when the content directory is missing or unreadable.
var ErrStoreUnavailable = errors.New("content store unavailable")

// DefaultExt is the file extension treated as content.
const DefaultExt = ".md"

// Source lists content items.
type Source interface {
	List(ctx context.Context) ([]model.ContentItem, error)
}

// Dir is a Source backed by a directory tree of Markdown files.
type Dir struct {
	Root string
	Ext  string // defaults to DefaultExt
}

// NewDir returns a Dir source rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root, Ext: DefaultExt}
}

// List walks the directory and returns one item per content file, sorted by
// identifier. Hidden files and directories are skipped.
func (d *Dir) List(ctx context.Context) ([]model.ContentItem, error) {
	ext := d.Ext
	if ext == "" {
		ext = DefaultExt
	}

	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStoreUnavailable, d.Root)
	}

	var items []model.ContentItem
	err = filepath.WalkDir(d.Root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if path == d.Root {
				return err
			}
			// Unreadable subtree: skip it rather than failing the whole listing.
			if de != nil && de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := de.Name()
		if path != d.Root && strings.HasPrefix(name, ".") {
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if de.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) {
			return nil
		}

		fi, err := de.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return nil
		}
		abs, _ := filepath.Abs(path)
		items = append(items, model.ContentItem{
			ID:             filepath.ToSlash(rel),
			Path:           abs,
			ModifiedAt:     fi.ModTime(),
			CreatedAt:      createdAt(fi),
			HasFrontMatter: hasFrontMatter(path),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func hasFrontMatter(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return markdown.HasFrontMatter(string(b))
}

// Static is an in-memory Source.
type Static []model.ContentItem

// List returns a copy of the items.
func (s Static) List(ctx context.Context) ([]model.ContentItem, error) {
	return append([]model.ContentItem(nil), s...), nil
}
