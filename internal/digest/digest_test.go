package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/model"
)

var day = time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)

func doc(title, desc, url string, tags ...string) *content.Document {
	return &content.Document{
		Item:    model.ContentItem{ID: strings.ToLower(title) + ".md"},
		Meta:    content.Meta{Title: title, Description: desc, URL: url, Tags: tags},
		Summary: "Summary of " + title,
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(day); got != "newsletter_20240309.md" {
		t.Errorf("FileName = %q", got)
	}
}

func TestRenderSections(t *testing.T) {
	out, err := Render(day, []*content.Document{
		doc("Alpha", "First project", "https://example.com/alpha", "go", "cli"),
		doc("Beta", "", ""),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)

	for _, want := range []string{
		"# Newsletter Portfolio - 09/03/2024",
		"## Alpha\n\nFirst project\n\nSummary of Alpha",
		"**Tags**: #go, #cli",
		"[Read more](https://example.com/alpha)",
		"## Beta\n\nSummary of Beta",
		"[Read more](#)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in:\n%s", want, s)
		}
	}
	if strings.Index(s, "## Alpha") > strings.Index(s, "## Beta") {
		t.Error("sections out of order")
	}
	if strings.Count(s, "**Tags**") != 1 {
		t.Error("untagged document should have no tags line")
	}
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render(day, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), emptyBody) {
		t.Errorf("expected empty notice, got %q", out)
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Write(dir, day, []*content.Document{doc("Alpha", "d", "")})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "newsletter_20240309.md" {
		t.Errorf("path = %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "## Alpha") {
		t.Errorf("unexpected digest %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the digest in %s, got %d entries", dir, len(entries))
	}
}
