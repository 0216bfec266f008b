// Package digest renders a selection as a Markdown newsletter.
package digest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

const emptyBody = "No recent content available for this newsletter.\n"

var funcs = template.FuncMap{
	"hashtags": func(tags []string) string {
		out := make([]string, len(tags))
		for i, t := range tags {
			out[i] = "#" + t
		}
		return strings.Join(out, ", ")
	},
	"link": func(url string) string {
		if url == "" {
			return "#"
		}
		return url
	},
}

var tmpl = template.Must(template.New("digest").Funcs(funcs).Parse(`# Newsletter Portfolio - {{.Date.Format "02/01/2006"}}

{{if .Docs}}The latest projects and write-ups.

{{range .Docs}}## {{.Meta.Title}}

{{with .Meta.Description}}{{.}}

{{end}}{{with .Summary}}{{.}}

{{end}}{{with .Meta.Tags}}**Tags**: {{hashtags .}}

{{end}}[Read more]({{link .Meta.URL}})

---

{{end}}{{else}}` + emptyBody + `{{end}}`))

// FileName returns the digest file name for date.
func FileName(date time.Time) string {
	return fmt.Sprintf("newsletter_%s.md", date.Format("20060102"))
}

// Render returns the Markdown digest for docs in order.
func Render(date time.Time, docs []*content.Document) ([]byte, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Date time.Time
		Docs []*content.Document
	}{date, docs})
	if err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders docs into dir and returns the path written. An existing
// digest for the same date is replaced.
func Write(dir string, date time.Time, docs []*content.Document) (string, error) {
	data, err := Render(date, docs)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(date))
	if err := state.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}
