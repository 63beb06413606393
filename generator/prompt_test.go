package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkedin_post_generator/apperr"
)

func TestBuildCareerGrowthExample(t *testing.T) {
	p, err := Build("career growth", "motivational", "short", "single")
	require.NoError(t, err)

	assert.Contains(t, p.User, "career growth")
	assert.Contains(t, p.User, "Tone: motivational.")
	assert.Contains(t, p.User, toneDirectives[ToneMotivational])
	assert.Contains(t, p.User, "Target length: 50-80 words.")
	assert.Equal(t, int64(400), p.MaxTokens)
	assert.InDelta(t, 0.8, p.Temperature, 1e-9)
	assert.NotEmpty(t, p.System)
}

func TestBuildDeterministicForAllCombinations(t *testing.T) {
	for _, tone := range Tones {
		for _, length := range Lengths {
			for _, mode := range []Mode{ModeSingle, ModeVariations} {
				a, err := Build("remote team rituals", string(tone), string(length), string(mode))
				require.NoError(t, err)
				b, err := Build("remote team rituals", string(tone), string(length), string(mode))
				require.NoError(t, err)

				assert.Equal(t, a, b)
				assert.Contains(t, a.User, "remote team rituals")
				band := length.Band()
				assert.Contains(t, a.User, fmt.Sprintf("%d-%d words", band.Min, band.Max))
			}
		}
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name                      string
		topic, tone, length, mode string
	}{
		{"empty topic", "", "casual", "short", "single"},
		{"whitespace topic", "   \n\t", "casual", "short", "single"},
		{"unknown tone", "ai", "sarcastic", "short", "single"},
		{"empty tone", "ai", "", "short", "single"},
		{"unknown length", "ai", "casual", "epic", "single"},
		{"empty length", "ai", "casual", "", "single"},
		{"unknown mode", "ai", "casual", "short", "haiku"},
		{"refine without prior body", "ai", "casual", "short", "refine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.topic, tt.tone, tt.length, tt.mode)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeInvalidInput), "got %v", err)
		})
	}
}

func TestBuildVariationsUsesMarkers(t *testing.T) {
	p, err := Build("ai ethics", "educational", "medium", "variations")
	require.NoError(t, err)

	for i := 1; i <= VariationCount; i++ {
		assert.Contains(t, p.User, VariantMarker(i))
	}
	assert.Contains(t, p.User, "exactly 3")
	assert.Equal(t, int64(700*VariationCount), p.MaxTokens)
}

func TestBuildRefineIncludesPriorBodyAndDirective(t *testing.T) {
	req, err := NewRequest(RequestInput{
		Topic:      "shipping fast",
		Tone:       "casual",
		Length:     "long",
		Mode:       "refine",
		PriorBody:  "We shipped three releases this week.",
		Refinement: "formalize",
	})
	require.NoError(t, err)

	p := BuildPrompt(req)
	assert.Contains(t, p.User, "We shipped three releases this week.")
	assert.Contains(t, p.User, refinementDirectives[RefineFormalize])
	assert.Contains(t, p.User, "200-300 words")
	assert.InDelta(t, 0.7, p.Temperature, 1e-9)
}

func TestBuildEmbedsTrimmedTopic(t *testing.T) {
	p, err := Build("  career  growth \n", "casual", "short", "single")
	require.NoError(t, err)
	assert.Contains(t, p.User, "about: career  growth\n")
}

func TestBuildRefineAddEmojis(t *testing.T) {
	req, err := NewRequest(RequestInput{
		Topic:      "shipping fast",
		Tone:       "professional",
		Length:     "short",
		Mode:       "refine",
		PriorBody:  "We shipped three releases this week.",
		Refinement: "add-emojis",
	})
	require.NoError(t, err)
	assert.Equal(t, RefineAddEmojis, req.Refinement())

	p := BuildPrompt(req)
	assert.Contains(t, p.User, "We shipped three releases this week.")
	assert.Contains(t, p.User, "Add 2-3 relevant and professional emojis")
	assert.InDelta(t, 0.6, p.Temperature, 1e-9)
}

func TestBuildPostTypeStructure(t *testing.T) {
	req, err := NewRequest(RequestInput{Topic: "go generics", Tone: "educational", Length: "medium", PostType: "tips"})
	require.NoError(t, err)
	assert.Contains(t, BuildPrompt(req).User, postTypeStructures[PostTypeTips])

	general, err := NewRequest(RequestInput{Topic: "go generics", Tone: "educational", Length: "medium"})
	require.NoError(t, err)
	assert.NotContains(t, BuildPrompt(general).User, "Structure:")
}

func TestHooksAndCTAPrompts(t *testing.T) {
	p, err := BuildHooksPrompt("burnout")
	require.NoError(t, err)
	assert.Contains(t, p.User, "burnout")
	assert.Contains(t, p.User, "Hook 1:")

	p, err = BuildCTAPrompt("burnout")
	require.NoError(t, err)
	assert.Contains(t, p.User, "1. [CTA 1]")

	_, err = BuildHooksPrompt(" ")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}
