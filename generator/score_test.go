package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngagementScoreEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, EngagementScore("", LengthShort.Band()))
	assert.Equal(t, 0, EngagementScore("   \n", LengthLong.Band()))
}

func TestEngagementScorePerfectPost(t *testing.T) {
	text := strings.Repeat("word ", 54) + "What do you think? Share below. #a #b #c"
	assert.Equal(t, MaxScore, EngagementScore(text, LengthShort.Band()))
}

func TestEngagementScoreFactors(t *testing.T) {
	band := LengthShort.Band()
	inBand := strings.TrimSpace(strings.Repeat("word ", 60))

	assert.Equal(t, 25, EngagementScore(inBand, band), "word band only")
	assert.Equal(t, 50, EngagementScore(inBand+"?", band), "word band and question")
	assert.Equal(t, 75, EngagementScore(inBand+"? #go", band), "plus a hashtag")
	assert.Equal(t, 100, EngagementScore(inBand+"? #go agree", band), "plus a call to action")
}

func TestEngagementScoreBounds(t *testing.T) {
	inputs := []string{
		"#a #b #c #d #e #f #g #h #i #j #k #l",
		strings.Repeat("long ", 1000) + "?",
		"?",
		"Let me know your thoughts! #one",
		"🚀",
	}
	for _, length := range Lengths {
		for _, in := range inputs {
			s := EngagementScore(in, length.Band())
			assert.GreaterOrEqual(t, s, MinScore)
			assert.LessOrEqual(t, s, MaxScore)
		}
	}
}

func TestWordFactor(t *testing.T) {
	band := WordBand{Min: 50, Max: 80}
	assert.Equal(t, 0.0, wordFactor(0, band))
	assert.InDelta(t, 0.5, wordFactor(25, band), 1e-9)
	assert.Equal(t, 1.0, wordFactor(50, band))
	assert.Equal(t, 1.0, wordFactor(80, band))
	assert.InDelta(t, 0.5, wordFactor(160, band), 1e-9)
}

func TestHashtagFactor(t *testing.T) {
	assert.Equal(t, 0.0, hashtagFactor(0))
	assert.Equal(t, 1.0, hashtagFactor(1))
	assert.Equal(t, 1.0, hashtagFactor(5))
	assert.InDelta(t, 0.5, hashtagFactor(10), 1e-9)
}

func TestCandidateScoreUsesGivenHashtags(t *testing.T) {
	band := LengthShort.Band()
	assert.Equal(t, MinScore, CandidateScore("", []string{"#Go"}, band))
	assert.Equal(t, MinScore, CandidateScore("   ", []string{"#Go"}, band))

	text := "No tags here. What do you think?"
	assert.Greater(t, CandidateScore(text, []string{"#Go"}, band), EngagementScore(text, band))
	assert.Equal(t, EngagementScore(text+" #go", band), CandidateScore(text+" #go", []string{"#go"}, band))
}
