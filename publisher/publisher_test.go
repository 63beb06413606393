package publisher

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
	"linkedin_post_generator/store"
)

var created0 = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

func sampleEntries() []Entry {
	return []Entry{
		{
			Topic:     "remote work",
			Tone:      "casual",
			Length:    "short",
			Body:      "Remote work changed everything.\nWhat changed for you? #remote",
			Hashtags:  []string{"#remote"},
			Score:     75,
			CreatedAt: created0,
		},
		{
			Tone:     "educational",
			Body:     "Three tips:\n\n1. Write it down\n2. Ship it\n\n- bonus",
			Hashtags: []string{"#Tips"},
			Score:    40,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TXT": FormatText, "md": FormatMarkdown, "html": FormatHTML, " markdown ": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))

	assert.Equal(t, "text/html; charset=utf-8", FormatHTML.ContentType())
	assert.Equal(t, "md", FormatMarkdown.Extension())
}

func TestExportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatText, sampleEntries()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "LinkedIn Posts Export\n"+strings.Repeat("=", 50)))
	assert.Contains(t, out, "Post #1\nTopic: remote work\nTone: casual\nCreated: 2024-03-09 14:30 UTC\n")
	assert.Contains(t, out, "Post #2\nTopic: N/A\n")
	assert.Contains(t, out, "Created: N/A")
	assert.Contains(t, out, "\nHashtags: #Tips\n")
	assert.Equal(t, 2, strings.Count(out, strings.Repeat("-", 50)))
}

func TestExportMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatMarkdown, sampleEntries()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# LinkedIn Posts Export\n"))
	assert.Contains(t, out, "## Post #1")
	assert.Contains(t, out, "- **Engagement score:** 75/100")
	// tags already in the body are not repeated
	assert.Equal(t, 1, strings.Count(out, "#remote"))
	assert.Contains(t, out, "#Tips\n")
}

func TestExportHTML(t *testing.T) {
	entries := append(sampleEntries(), Entry{Topic: "<b>xss</b>", Body: "<script>alert(1)</script>"})

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatHTML, entries))
	out := buf.String()

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<h2>Post #1</h2>")
	assert.Contains(t, out, "Remote work changed everything.<br")
	assert.Contains(t, out, "<p>1. Write it down</p>")
	assert.Contains(t, out, "<p>2. Ship it</p>")
	assert.Contains(t, out, "<p>• bonus</p>")
	assert.NotContains(t, out, "<ol>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;b&gt;xss&lt;/b&gt;")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	err := Export(&bytes.Buffer{}, Format("pdf"), nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}

func TestFromDraftsAndPosts(t *testing.T) {
	drafts := []store.Draft{{ID: 1, Body: "draft body", Hashtags: []string{"#a"}, Tone: generator.ToneCasual, Length: generator.LengthShort, Score: 10, CreatedAt: created0}}
	entries := FromDrafts(drafts)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Tone: "casual", Length: "short", Body: "draft body", Hashtags: []string{"#a"}, Score: 10, CreatedAt: created0}, entries[0])

	posts := []store.Post{{ID: 2, Topic: "t", Tone: generator.ToneProfessional, Length: generator.LengthLong, Body: "post body"}}
	pe := FromPosts(posts)
	require.Len(t, pe, 1)
	assert.Equal(t, "t", pe[0].Topic)
	assert.Equal(t, "professional", pe[0].Tone)
}
