package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/newsletter-rotation/internal/markdown"
	"github.com/rcliao/newsletter-rotation/internal/model"
)

const (
	descriptionLen = 150
	summaryLen     = 250
	defaultTag     = "portfolio"
)

// Meta is the front-matter of a content item, with defaults filled in.
type Meta struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tags        []string `yaml:"tags" json:"tags"`
	URL         string   `yaml:"url" json:"url,omitempty"`
	Image       string   `yaml:"image" json:"image,omitempty"`
}

// Document is a content item read from disk.
type Document struct {
	Item    model.ContentItem `json:"item"`
	Meta    Meta              `json:"meta"`
	Summary string            `json:"summary"`
	Body    string            `json:"-"`
}

// Read loads item from disk and resolves its metadata. Missing title,
// description and tags are derived from the body.
func Read(item model.ContentItem) (*Document, error) {
	b, err := os.ReadFile(item.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", item.ID, err)
	}
	raw := string(b)

	var meta Meta
	body, ok := markdown.ParseFrontMatter(raw, &meta)
	if !ok {
		meta = Meta{}
		body = raw
	}

	text := markdown.PlainText(body)
	if meta.Title == "" {
		meta.Title = markdown.Title(body)
	}
	if meta.Title == "" {
		meta.Title = titleFromPath(item.ID)
	}
	if meta.Description == "" {
		meta.Description = markdown.Excerpt(text, descriptionLen)
	}
	if len(meta.Tags) == 0 {
		meta.Tags = markdown.Hashtags(body)
	}
	if len(meta.Tags) == 0 {
		meta.Tags = []string{defaultTag}
	}

	return &Document{
		Item:    item,
		Meta:    meta,
		Summary: markdown.Excerpt(text, summaryLen),
		Body:    body,
	}, nil
}

// titleFromPath turns "notes/my-project.md" into "My Project".
func titleFromPath(id string) string {
	base := strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
