package generator

import (
	"fmt"
	"strings"

	"linkedin_post_generator/apperr"
)

// Prompt is the message pair and sampling budget sent to the completion API.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
}

// VariantMarker returns the delimiter line that precedes variation n (1-based).
func VariantMarker(n int) string {
	return fmt.Sprintf("---VARIANT-%d---", n)
}

const systemPrompt = `You are an expert LinkedIn content creator with years of experience crafting engaging, professional posts that drive high engagement. You understand LinkedIn best practices and write content that resonates with professionals across industries. Output only the post text, never commentary about it.`

var toneDirectives = map[Tone]string{
	ToneProfessional:      "Professional, authoritative and insightful. Use relevant industry terminology and end with a thought-provoking question or call-to-action.",
	ToneCasual:            "Friendly, conversational and relatable. Use simple language, a personal anecdote and 1-2 emojis, and end with an engaging question.",
	ToneMotivational:      "Uplifting, inspiring and encouraging. Share a powerful lesson with storytelling elements and end with an inspiring call-to-action.",
	ToneEducational:       "Informative and helpful. Share actionable tips or key takeaways, use a short list where it helps, and invite readers to discuss.",
	ToneStorytelling:      "Narrative and personal. Follow a story arc with specific details and emotion, and end with a lesson or reflection.",
	ToneThoughtLeadership: "Authoritative and visionary. Challenge conventional thinking with a unique perspective and end with a forward-looking view.",
}

var postTypeStructures = map[PostType]string{
	PostTypeAnnouncement:    "Announce news or an update: the clear announcement, key details, why it matters, a call to action.",
	PostTypeTips:            "A tips post: a short introduction, 3-5 numbered tips, a quick summary, an engagement question.",
	PostTypeQuestion:        "A discussion post: 2-3 lines of context, one main question that sparks discussion, why it matters, an invitation to share thoughts.",
	PostTypeAchievement:     "Celebrate an achievement: the achievement, a brief journey, gratitude or a lesson learned, humble in tone.",
	PostTypeIndustryInsight: "Share an industry insight: a current trend, your analysis, what it means for professionals, an engaging question.",
}

var refinementDirectives = map[Refinement]string{
	RefineShorten:      "Rewrite the post to be 30-40% shorter while keeping the core message and impact.",
	RefineLengthen:     "Expand the post by 40-50% with relevant details, examples or insights while keeping the flow.",
	RefineFormalize:    "Make the post more professional and polished: elevate the language and remove overly casual elements.",
	RefineStorytelling: "Rewrite the post with narrative structure and relatable personal elements, keeping the core message.",
	RefineAddCTA:       "Keep the post and add a natural, engaging call-to-action at the end that invites comments or discussion.",
	RefineAddEmojis:    "Add 2-3 relevant and professional emojis, placed naturally where they enhance the message. Don't overdo it and keep the wording unchanged.",
}

const hashtagInstruction = "Finish with one final line containing 3-5 relevant hashtags (each starting with #, no spaces inside a hashtag)."

// tokenBudget maps the length band to max output tokens for one post.
var tokenBudget = map[Length]int64{
	LengthShort:  400,
	LengthMedium: 700,
	LengthLong:   1200,
}

// Build validates the arguments and returns the prompt for a single or
// variations request. Refine prompts need a prior body; use BuildPrompt.
func Build(topic, tone, length, mode string) (Prompt, error) {
	req, err := NewRequest(RequestInput{Topic: topic, Tone: tone, Length: length, Mode: mode})
	if err != nil {
		return Prompt{}, err
	}
	return BuildPrompt(req), nil
}

// BuildPrompt renders req deterministically.
func BuildPrompt(req GenerationRequest) Prompt {
	band := req.Length().Band()
	budget := tokenBudget[req.Length()]

	var sb strings.Builder
	switch req.Mode() {
	case ModeRefine:
		sb.WriteString("Refine the following LinkedIn post.\n\n")
		sb.WriteString("Original post:\n")
		sb.WriteString(req.PriorBody())
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic()))
		sb.WriteString("Requirements:\n")
		sb.WriteString(fmt.Sprintf("- %s\n", refinementDirectives[req.Refinement()]))
		sb.WriteString(fmt.Sprintf("- Keep the tone %s: %s\n", req.Tone(), toneDirectives[req.Tone()]))
	default:
		sb.WriteString(fmt.Sprintf("Create a LinkedIn post about: %s\n\n", req.Topic()))
		sb.WriteString("Requirements:\n")
		sb.WriteString(fmt.Sprintf("- Tone: %s. %s\n", req.Tone(), toneDirectives[req.Tone()]))
		if s, ok := postTypeStructures[req.PostType()]; ok {
			sb.WriteString(fmt.Sprintf("- Structure: %s\n", s))
		}
		sb.WriteString("- Start with a strong hook in the first line.\n")
		sb.WriteString("- Use line breaks for readability.\n")
	}
	sb.WriteString(fmt.Sprintf("- Target length: %d-%d words.\n", band.Min, band.Max))
	sb.WriteString(fmt.Sprintf("- %s\n", hashtagInstruction))

	p := Prompt{System: systemPrompt, MaxTokens: budget}
	switch req.Mode() {
	case ModeVariations:
		sb.WriteString(fmt.Sprintf("\nWrite exactly %d clearly different alternatives of this post. ", VariationCount))
		sb.WriteString("Put each marker below alone on its own line immediately before its alternative, and write nothing before the first marker:\n")
		for i := 1; i <= VariationCount; i++ {
			sb.WriteString(VariantMarker(i))
			sb.WriteString("\n")
		}
		p.MaxTokens = budget * VariationCount
		p.Temperature = 0.9
	case ModeRefine:
		sb.WriteString("\nReturn only the refined post.")
		p.Temperature = 0.7
		if req.Refinement() == RefineAddEmojis {
			p.Temperature = 0.6
		}
	default:
		sb.WriteString("\nWrite the post now.")
		p.Temperature = 0.8
	}
	p.User = sb.String()
	return p
}

// BuildHooksPrompt asks for three opening hooks.
func BuildHooksPrompt(topic string) (Prompt, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Prompt{}, apperr.New(apperr.CodeInvalidInput, "topic cannot be empty")
	}
	user := fmt.Sprintf(`Generate 3 attention-grabbing opening hooks for a LinkedIn post about: %s

Each hook should be at most 2 lines, immediately engaging, and use one technique: a question, a bold statement, a surprising fact, or a personal confession.

Format:
Hook 1: [first hook]
Hook 2: [second hook]
Hook 3: [third hook]`, topic)
	return Prompt{System: systemPrompt, User: user, MaxTokens: 300, Temperature: 0.9}, nil
}

// BuildCTAPrompt asks for three call-to-action lines.
func BuildCTAPrompt(topic string) (Prompt, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Prompt{}, apperr.New(apperr.CodeInvalidInput, "topic cannot be empty")
	}
	user := fmt.Sprintf(`Generate 3 engaging call-to-action statements for a LinkedIn post about: %s

Each should encourage comments, shares or discussion, feel natural rather than pushy, and fit on one line.

Format:
1. [CTA 1]
2. [CTA 2]
3. [CTA 3]`, topic)
	return Prompt{System: systemPrompt, User: user, MaxTokens: 300, Temperature: 0.7}, nil
}
