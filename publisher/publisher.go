// Package publisher renders saved drafts and history posts for export as
// plain text, Markdown or paste-ready HTML.
package publisher

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/store"
)

// Format selects the export rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

const exportTitle = "LinkedIn Posts Export"

// ParseFormat parses a format name; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "txt":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case FormatText, FormatMarkdown, FormatHTML:
		return f, nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported export format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	default:
		return "txt"
	}
}

// Entry is one exported post.
type Entry struct {
	Topic     string
	Tone      string
	Length    string
	Body      string
	Hashtags  []string
	Score     int
	CreatedAt time.Time
}

// FromDrafts converts drafts to entries, keeping their order.
func FromDrafts(drafts []store.Draft) []Entry {
	out := make([]Entry, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, Entry{
			Tone:      string(d.Tone),
			Length:    string(d.Length),
			Body:      d.Body,
			Hashtags:  d.Hashtags,
			Score:     d.Score,
			CreatedAt: d.CreatedAt,
		})
	}
	return out
}

// FromPosts converts history posts to entries, keeping their order.
func FromPosts(posts []store.Post) []Entry {
	out := make([]Entry, 0, len(posts))
	for _, p := range posts {
		out = append(out, Entry{
			Topic:     p.Topic,
			Tone:      string(p.Tone),
			Length:    string(p.Length),
			Body:      p.Body,
			Hashtags:  p.Hashtags,
			Score:     p.Score,
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}

// Export writes entries to w in format f.
func Export(w io.Writer, f Format, entries []Entry) error {
	var (
		out []byte
		err error
	)
	switch f {
	case FormatText:
		out = renderText(entries)
	case FormatMarkdown:
		out = renderMarkdown(entries)
	case FormatHTML:
		out, err = renderHTML(entries)
	default:
		return apperr.Newf(apperr.CodeInvalidInput, "unsupported export format %q", f)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func created(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// hashtagsMissing reports whether some tag is not already part of body.
func hashtagsMissing(body string, tags []string) bool {
	for _, tag := range tags {
		if !strings.Contains(body, tag) {
			return true
		}
	}
	return false
}

func renderText(entries []Entry) []byte {
	var b bytes.Buffer
	b.WriteString(exportTitle + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "Post #%d\n", i+1)
		fmt.Fprintf(&b, "Topic: %s\n", orNA(e.Topic))
		fmt.Fprintf(&b, "Tone: %s\n", orNA(e.Tone))
		fmt.Fprintf(&b, "Created: %s\n", created(e.CreatedAt))
		fmt.Fprintf(&b, "Engagement score: %d/100\n", e.Score)
		fmt.Fprintf(&b, "\nContent:\n%s\n", e.Body)
		if len(e.Hashtags) > 0 {
			fmt.Fprintf(&b, "\nHashtags: %s\n", strings.Join(e.Hashtags, " "))
		}
		b.WriteString("\n" + strings.Repeat("-", 50) + "\n\n")
	}
	return b.Bytes()
}

func renderMarkdown(entries []Entry) []byte {
	var b bytes.Buffer
	b.WriteString("# " + exportTitle + "\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "## Post #%d\n\n", i+1)
		fmt.Fprintf(&b, "- **Topic:** %s\n", orNA(e.Topic))
		fmt.Fprintf(&b, "- **Tone:** %s\n", orNA(e.Tone))
		fmt.Fprintf(&b, "- **Length:** %s\n", orNA(e.Length))
		fmt.Fprintf(&b, "- **Created:** %s\n", created(e.CreatedAt))
		fmt.Fprintf(&b, "- **Engagement score:** %d/100\n\n", e.Score)
		b.WriteString(e.Body + "\n\n")
		if hashtagsMissing(e.Body, e.Hashtags) {
			b.WriteString(strings.Join(e.Hashtags, " ") + "\n\n")
		}
		b.WriteString("---\n\n")
	}
	return b.Bytes()
}

var md = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

func renderHTML(entries []Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n", exportTitle, exportTitle)
	for i, e := range entries {
		body, err := bodyToHTML(e.Body)
		if err != nil {
			return nil, fmt.Errorf("render post %d: %w", i+1, err)
		}
		b.WriteString("<article>\n")
		fmt.Fprintf(&b, "<h2>Post #%d</h2>\n", i+1)
		fmt.Fprintf(&b, "<p><strong>Topic:</strong> %s | <strong>Tone:</strong> %s | <strong>Score:</strong> %d/100 | <strong>Created:</strong> %s</p>\n",
			html.EscapeString(orNA(e.Topic)), html.EscapeString(orNA(e.Tone)), e.Score, created(e.CreatedAt))
		b.WriteString(body)
		if hashtagsMissing(e.Body, e.Hashtags) {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(strings.Join(e.Hashtags, " ")))
		}
		b.WriteString("</article>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

// bodyToHTML converts a post body to HTML. Raw HTML in the body is dropped
// by goldmark's safe renderer.
func bodyToHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return flattenLists(buf.String()), nil
}

var (
	olRe = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
)

// flattenLists rewrites list markup as numbered or bulleted paragraphs. The
// LinkedIn editor drops list elements on paste, which merges the items.
func flattenLists(s string) string {
	s = olRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>\n", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})
	return ulRe.ReplaceAllStringFunc(s, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "<p>• %s</p>\n", strings.TrimSpace(item[1]))
		}
		return b.String()
	})
}
