package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"
)

func writeFile(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
}

func TestDirList(t *testing.T) {
	root := t.TempDir()
	mod := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(root, "b.md"), "---\ntitle: B\n---\nbody", mod)
	writeFile(t, filepath.Join(root, "a.md"), "# A\n\nplain", mod)
	writeFile(t, filepath.Join(root, "sub", "c.MD"), "c", mod)
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored", mod)
	writeFile(t, filepath.Join(root, ".hidden", "d.md"), "ignored", mod)
	writeFile(t, filepath.Join(root, ".e.md"), "ignored", mod)

	items, err := NewDir(root).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d: %+v", len(items), items)
	}

	want := []string{"a.md", "b.md", "sub/c.MD"}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("item %d: expected %s, got %s", i, id, items[i].ID)
		}
	}
	if items[0].HasFrontMatter {
		t.Error("a.md should have no front-matter")
	}
	if !items[1].HasFrontMatter {
		t.Error("b.md should have front-matter")
	}
	if !items[0].ModifiedAt.Equal(mod) {
		t.Errorf("expected mod time %v, got %v", mod, items[0].ModifiedAt)
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("expected created time to be set")
	}
	if !filepath.IsAbs(items[0].Path) {
		t.Errorf("expected absolute path, got %s", items[0].Path)
	}
}

func TestDirListMissing(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestDirListNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, path, "x", time.Time{})
	_, err := NewDir(path).List(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestDirListCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "a", time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDir(root).List(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadWithFrontMatter(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "p.md")
	writeFile(t, path, "---\ntitle: Project\ndescription: Short\ntags: [go]\nurl: https://x\n---\n# Ignored\n\nBody text.", time.Time{})

	items, err := NewDir(root).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	doc, err := Read(items[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Meta.Title != "Project" || doc.Meta.Description != "Short" || doc.Meta.URL != "https://x" {
		t.Errorf("unexpected meta %+v", doc.Meta)
	}
	if len(doc.Meta.Tags) != 1 || doc.Meta.Tags[0] != "go" {
		t.Errorf("unexpected tags %v", doc.Meta.Tags)
	}
	if doc.Summary != "Ignored Body text." {
		t.Errorf("unexpected summary %q", doc.Summary)
	}
}

func TestReadDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "my-side_project.md"), "Just some words about #golang.", time.Time{})
	writeFile(t, filepath.Join(root, "plain.md"), "Nothing tagged.", time.Time{})

	items, _ := NewDir(root).List(context.Background())

	doc, err := Read(items[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.Meta.Title != "My Side Project" {
		t.Errorf("expected title from file name, got %q", doc.Meta.Title)
	}
	if doc.Meta.Description != "Just some words about #golang." {
		t.Errorf("unexpected description %q", doc.Meta.Description)
	}
	if len(doc.Meta.Tags) != 1 || doc.Meta.Tags[0] != "golang" {
		t.Errorf("expected hashtag tags, got %v", doc.Meta.Tags)
	}

	doc, _ = Read(items[1])
	if len(doc.Meta.Tags) != 1 || doc.Meta.Tags[0] != defaultTag {
		t.Errorf("expected default tag, got %v", doc.Meta.Tags)
	}
}

func TestTitleFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes/my-project.md", "My Project"},
		{"été-projet.md", "Été Projet"},
		{"über_cool idea.md", "Über Cool Idea"},
		{"ñ.md", "Ñ"},
		{"2024-recap.md", "2024 Recap"},
	}
	for _, tt := range tests {
		got := titleFromPath(tt.in)
		if got != tt.want {
			t.Errorf("titleFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("titleFromPath(%q) produced invalid UTF-8 %q", tt.in, got)
		}
	}
}

func TestReadVanished(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.md")
	writeFile(t, path, "x", time.Time{})
	items, _ := NewDir(root).List(context.Background())
	os.Remove(path)

	if _, err := Read(items[0]); err == nil {
		t.Error("expected error reading removed file")
	}
}
