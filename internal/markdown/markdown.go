// Package markdown extracts front-matter, titles and plain-text excerpts from
// Markdown documents.
package markdown

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

var parser = goldmark.New().Parser()

// SplitFrontMatter separates a leading "---" delimited block from the body.
// ok is false when the document has no complete front-matter block.
func SplitFrontMatter(content string) (front, body string, ok bool) {
	if !strings.HasPrefix(content, delimiter) {
		return "", content, false
	}
	lines := strings.SplitAfter(content, "\n")
	if strings.TrimSpace(lines[0]) != delimiter {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			front = strings.Join(lines[1:i], "")
			body = strings.Join(lines[i+1:], "")
			return front, strings.TrimSpace(body), true
		}
	}
	return "", content, false
}

// ParseFrontMatter decodes the front-matter block into out. It returns the
// body and whether a well-formed block was found and decoded.
func ParseFrontMatter(content string, out any) (string, bool) {
	front, body, ok := SplitFrontMatter(content)
	if !ok {
		return content, false
	}
	if err := yaml.Unmarshal([]byte(front), out); err != nil {
		return content, false
	}
	return body, true
}

// HasFrontMatter reports whether content declares parseable YAML front-matter.
func HasFrontMatter(content string) bool {
	var v any
	_, ok := ParseFrontMatter(content, &v)
	return ok
}

// Title returns the text of the first heading, or "" if there is none.
func Title(body string) string {
	src := []byte(body)
	doc := parser.Parse(text.NewReader(src))

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(collectText(h, src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// PlainText renders body to whitespace-normalised text, dropping markup and
// code blocks.
func PlainText(body string) string {
	src := []byte(body)
	doc := parser.Parse(text.NewReader(src))

	var buf bytes.Buffer
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		writeInline(&buf, n, src)
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Excerpt truncates s to at most n runes, appending "..." when cut.
func Excerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

var hashtagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_]+)`)

// Hashtags returns the distinct inline #tags found in body, sorted.
func Hashtags(body string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, m := range hashtagRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			tags = append(tags, m[1])
		}
	}
	sort.Strings(tags)
	return tags
}

func collectText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			writeInline(&buf, c, src)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch t := n.(type) {
	case *ast.Text:
		buf.Write(t.Segment.Value(src))
		if t.SoftLineBreak() || t.HardLineBreak() {
			buf.WriteByte(' ')
		}
	case *ast.String:
		buf.Write(t.Value)
	}
}
