package generator

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkedin_post_generator/apperr"
)

// MaxSynthesizedHashtags bounds the topic-derived fallback hashtags.
const MaxSynthesizedHashtags = 3

var (
	hashtagRe      = regexp.MustCompile(`#[A-Za-z0-9_]+`)
	hashtagTokenRe = regexp.MustCompile(`^#[A-Za-z0-9_]+$`)
	wordRe    = regexp.MustCompile(`[A-Za-z0-9]+`)

	variantMarkerRe = regexp.MustCompile(`(?mi)^[ \t]*-{2,}[ \t]*VARIANT[ \t-]*\d+[ \t]*-{2,}[ \t]*$`)
	variantLabelRe  = regexp.MustCompile(`(?mi)^[ \t]*(?:\*\*|#+[ \t]*)?(?:variation|version|option|alternative)[ \t]*\d+[ \t]*(?:\*\*)?[ \t]*[:.)](?:\*\*)?`)

	preambleRe     = regexp.MustCompile(`(?i)^(?:here(?:'s|’s| is| are)|sure|certainly|of course|absolutely)\b.*:\s*$|^(?:linkedin\s+)?post:\s*$`)
	hashtagLabelRe = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?hashtags?:(?:\*\*)?[ \t]*`)
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "about": {}, "from": {}, "into": {}, "your": {},
	"you": {}, "our": {}, "how": {}, "why": {}, "what": {}, "when": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "are": {}, "was": {}, "were": {}, "will": {}, "can": {}, "its": {},
	"not": {}, "but": {}, "more": {}, "most": {}, "very": {}, "just": {}, "all": {}, "new": {},
	"who": {}, "has": {}, "have": {}, "get": {}, "than": {}, "then": {}, "over": {},
}

// Process turns raw completion text into a GenerationResult. It never fails:
// a variations response without recognizable segments is recovered into a
// single degraded candidate holding the raw text.
func Process(raw string, req GenerationRequest) GenerationResult {
	result := GenerationResult{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}

	if req.Mode() != ModeVariations {
		result.Candidates = []PostCandidate{newCandidate(cleanBody(raw), req)}
		return result
	}

	segments, err := splitVariations(raw)
	if err != nil {
		result.Degraded = true
		result.Candidates = []PostCandidate{newCandidate(strings.TrimSpace(raw), req)}
		return result
	}
	for _, seg := range segments {
		result.Candidates = append(result.Candidates, newCandidate(cleanBody(seg), req))
	}
	return result
}

func newCandidate(body string, req GenerationRequest) PostCandidate {
	tags := ExtractHashtags(body)
	if len(tags) == 0 {
		tags = SynthesizeHashtags(req.Topic())
	}
	return PostCandidate{
		Body:     body,
		Hashtags: tags,
		Score:    CandidateScore(body, tags, req.Length().Band()),
		Stats:    ComputeTextStats(body),
	}
}

// splitVariations cuts raw on variant marker lines, falling back to
// "Variation n:" style labels. At most VariationCount segments are kept.
func splitVariations(raw string) ([]string, error) {
	idx := variantMarkerRe.FindAllStringIndex(raw, -1)
	if len(idx) == 0 {
		idx = variantLabelRe.FindAllStringIndex(raw, -1)
	}

	var segments []string
	for i, loc := range idx {
		end := len(raw)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		seg := strings.TrimSpace(raw[loc[1]:end])
		if seg == "" {
			continue
		}
		segments = append(segments, seg)
		if len(segments) == VariationCount {
			break
		}
	}
	if len(segments) == 0 {
		return nil, apperr.New(apperr.CodeMalformedResponse, "no variation segments found")
	}
	return segments, nil
}

// cleanBody strips model scaffolding around the post text.
func cleanBody(s string) string {
	s = strings.TrimSpace(s)
	s = stripFences(s)
	s = variantMarkerRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if first, rest, ok := strings.Cut(s, "\n"); ok && preambleRe.MatchString(strings.TrimSpace(first)) {
		s = strings.TrimSpace(rest)
	}
	s = hashtagLabelRe.ReplaceAllString(s, "")

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && strings.Count(s, `"`) == 2 {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if _, rest, ok := strings.Cut(s, "\n"); ok {
		s = rest
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// ExtractHashtags returns every #tag in text, deduplicated case-insensitively
// and in first-seen order.
func ExtractHashtags(text string) []string {
	matches := hashtagRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		key := strings.ToLower(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// CheckHashtags rejects any tag that is not a single #token and drops
// case-insensitive duplicates, keeping the first spelling.
func CheckHashtags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !hashtagTokenRe.MatchString(t) {
			return nil, apperr.Newf(apperr.CodeInvalidInput, "invalid hashtag %q", t)
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// SynthesizeHashtags derives up to MaxSynthesizedHashtags tags from the
// salient words of topic.
func SynthesizeHashtags(topic string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, w := range wordRe.FindAllString(topic, -1) {
		lw := strings.ToLower(w)
		if len(lw) < 3 || isDigits(lw) {
			continue
		}
		if _, stop := stopwords[lw]; stop {
			continue
		}
		if _, dup := seen[lw]; dup {
			continue
		}
		seen[lw] = struct{}{}
		out = append(out, "#"+strings.ToUpper(lw[:1])+lw[1:])
		if len(out) == MaxSynthesizedHashtags {
			break
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseHooks extracts "Hook n: ..." lines; the whole response is returned
// when none match.
func ParseHooks(raw string) []string {
	var hooks []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "*")
		if !strings.HasPrefix(strings.ToLower(line), "hook") {
			continue
		}
		if _, text, ok := strings.Cut(line, ":"); ok {
			line = text
		}
		if line = strings.Trim(line, "* \t"); line != "" {
			hooks = append(hooks, line)
		}
	}
	if len(hooks) == 0 {
		return []string{strings.TrimSpace(raw)}
	}
	return hooks
}

var listItemRe = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)

// ParseCTAs extracts numbered or bulleted lines; the whole response is
// returned when none match.
func ParseCTAs(raw string) []string {
	var ctas []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		loc := listItemRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if text := strings.TrimSpace(line[loc[1]:]); text != "" {
			ctas = append(ctas, text)
		}
	}
	if len(ctas) == 0 {
		return []string{strings.TrimSpace(raw)}
	}
	return ctas
}
