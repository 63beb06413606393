package generator

import (
	"math"
	"strings"
)

const (
	MinScore = 0
	MaxScore = 100

	// idealMaxHashtags is the upper end of the ideal hashtag range (1..5).
	idealMaxHashtags = 5
)

// ctaPhrases are matched case-insensitively as substrings.
var ctaPhrases = []string{
	"comment",
	"share",
	"thoughts",
	"what do you",
	"agree",
	"let me know",
	"your experience",
	"join the conversation",
	"follow",
}

// EngagementScore rates text on [MinScore, MaxScore] as the rounded mean of
// four factors in [0,1]: word count against band, hashtag count, presence of
// a question and presence of a call-to-action phrase.
func EngagementScore(text string, band WordBand) int {
	return score(text, len(ExtractHashtags(text)), band)
}

// CandidateScore is EngagementScore with the hashtag factor taken from the
// candidate's final tag set, which may be synthesized rather than in text.
// Empty text still scores MinScore.
func CandidateScore(text string, hashtags []string, band WordBand) int {
	if strings.TrimSpace(text) == "" {
		return MinScore
	}
	return score(text, len(hashtags), band)
}

func score(text string, hashtags int, band WordBand) int {
	factors := [...]float64{
		wordFactor(len(strings.Fields(text)), band),
		hashtagFactor(hashtags),
		boolFactor(strings.Contains(text, "?")),
		boolFactor(hasCTA(text)),
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}
	v := int(math.Round(sum / float64(len(factors)) * MaxScore))
	return min(max(v, MinScore), MaxScore)
}

func wordFactor(words int, band WordBand) float64 {
	switch {
	case words <= 0:
		return 0
	case words < band.Min:
		return float64(words) / float64(band.Min)
	case words > band.Max:
		return float64(band.Max) / float64(words)
	default:
		return 1
	}
}

func hashtagFactor(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n <= idealMaxHashtags:
		return 1
	default:
		return float64(idealMaxHashtags) / float64(n)
	}
}

func boolFactor(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func hasCTA(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range ctaPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
