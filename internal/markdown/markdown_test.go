package markdown

import (
	"strings"
	"testing"
)

func TestSplitFrontMatter(t *testing.T) {
	doc := "---\ntitle: Hello\ntags: [a, b]\n---\n\n# Body\n\nText."
	front, body, ok := SplitFrontMatter(doc)
	if !ok {
		t.Fatal("expected front-matter")
	}
	if !strings.Contains(front, "title: Hello") {
		t.Errorf("unexpected front %q", front)
	}
	if !strings.HasPrefix(body, "# Body") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHasFrontMatter(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"valid", "---\ntitle: x\n---\nbody", true},
		{"empty block", "---\n---\nbody", true},
		{"no block", "# Title\n\nbody", false},
		{"unterminated", "---\ntitle: x\nbody", false},
		{"bad yaml", "---\ntitle: [unclosed\n---\nbody", false},
		{"dashes not alone", "--- not yaml\n---\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFrontMatter(tt.doc); got != tt.want {
				t.Errorf("HasFrontMatter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFrontMatterInto(t *testing.T) {
	var meta struct {
		Title string   `yaml:"title"`
		Tags  []string `yaml:"tags"`
	}
	body, ok := ParseFrontMatter("---\ntitle: Hello\ntags: [go, cli]\n---\nBody", &meta)
	if !ok {
		t.Fatal("expected parse ok")
	}
	if meta.Title != "Hello" || len(meta.Tags) != 2 {
		t.Errorf("unexpected meta %+v", meta)
	}
	if body != "Body" {
		t.Errorf("expected body 'Body', got %q", body)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("intro\n\n## Second *level*\n\n# First"); got != "Second level" {
		t.Errorf("expected 'Second level', got %q", got)
	}
	if got := Title("no headings here"); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

func TestPlainText(t *testing.T) {
	body := "# Title\n\nSome **bold** and [a link](http://x).\n\n```go\ncode()\n```\n\nEnd."
	got := PlainText(body)
	want := "Title Some bold and a link. End."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := Excerpt("héllo world", 5); got != "héllo..." {
		t.Errorf("unexpected %q", got)
	}
}

func TestHashtags(t *testing.T) {
	got := Hashtags("# Heading\n\nBuilt with #go and #sqlite, again #go.")
	if len(got) != 2 || got[0] != "go" || got[1] != "sqlite" {
		t.Errorf("unexpected tags %v", got)
	}
}
