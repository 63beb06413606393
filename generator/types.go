package generator

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"linkedin_post_generator/apperr"
)

// MaxTopicLength bounds the topic in runes.
const MaxTopicLength = 500

// Tone is the voice of the post.
type Tone string

const (
	ToneProfessional      Tone = "professional"
	ToneCasual            Tone = "casual"
	ToneMotivational      Tone = "motivational"
	ToneEducational       Tone = "educational"
	ToneStorytelling      Tone = "storytelling"
	ToneThoughtLeadership Tone = "thought-leadership"
)

// Tones lists every supported tone in display order.
var Tones = []Tone{
	ToneProfessional,
	ToneCasual,
	ToneMotivational,
	ToneEducational,
	ToneStorytelling,
	ToneThoughtLeadership,
}

// Length selects a target word band.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Lengths lists every supported length.
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// WordBand is an inclusive word-count range.
type WordBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Band returns the fixed word band for l.
func (l Length) Band() WordBand {
	switch l {
	case LengthShort:
		return WordBand{Min: 50, Max: 80}
	case LengthLong:
		return WordBand{Min: 200, Max: 300}
	default:
		return WordBand{Min: 100, Max: 150}
	}
}

// Mode selects the generation flow.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeVariations Mode = "variations"
	ModeRefine     Mode = "refine"
)

// VariationCount is the number of alternatives requested in variations mode.
const VariationCount = 3

// PostType selects a structural template on top of the tone.
type PostType string

const (
	PostTypeGeneral         PostType = "general"
	PostTypeAnnouncement    PostType = "announcement"
	PostTypeTips            PostType = "tips"
	PostTypeQuestion        PostType = "question"
	PostTypeAchievement     PostType = "achievement"
	PostTypeIndustryInsight PostType = "industry_insight"
)

// PostTypes lists every supported post type.
var PostTypes = []PostType{
	PostTypeGeneral,
	PostTypeAnnouncement,
	PostTypeTips,
	PostTypeQuestion,
	PostTypeAchievement,
	PostTypeIndustryInsight,
}

// Refinement is the transformation applied in refine mode.
type Refinement string

const (
	RefineShorten      Refinement = "shorten"
	RefineLengthen     Refinement = "lengthen"
	RefineFormalize    Refinement = "formalize"
	RefineStorytelling Refinement = "storytelling"
	RefineAddCTA       Refinement = "add_cta"
	RefineAddEmojis    Refinement = "add_emojis"
)

// Refinements lists every supported refinement.
var Refinements = []Refinement{RefineShorten, RefineLengthen, RefineFormalize, RefineStorytelling, RefineAddCTA, RefineAddEmojis}

// RequestInput is the raw, unvalidated form of a GenerationRequest.
type RequestInput struct {
	Topic      string `json:"topic"`
	Tone       string `json:"tone"`
	Length     string `json:"length"`
	Mode       string `json:"mode,omitempty"`
	PostType   string `json:"post_type,omitempty"`
	PriorBody  string `json:"prior_body,omitempty"`
	Refinement string `json:"refinement,omitempty"`
}

// GenerationRequest is a validated, immutable generation request.
// Build it with NewRequest.
type GenerationRequest struct {
	topic      string
	tone       Tone
	length     Length
	mode       Mode
	postType   PostType
	priorBody  string
	refinement Refinement
}

func (r GenerationRequest) Topic() string          { return r.topic }
func (r GenerationRequest) Tone() Tone             { return r.tone }
func (r GenerationRequest) Length() Length         { return r.length }
func (r GenerationRequest) Mode() Mode             { return r.mode }
func (r GenerationRequest) PostType() PostType     { return r.postType }
func (r GenerationRequest) PriorBody() string      { return r.priorBody }
func (r GenerationRequest) Refinement() Refinement { return r.refinement }

// Input returns the request in its raw form.
func (r GenerationRequest) Input() RequestInput {
	return RequestInput{
		Topic:      r.topic,
		Tone:       string(r.tone),
		Length:     string(r.length),
		Mode:       string(r.mode),
		PostType:   string(r.postType),
		PriorBody:  r.priorBody,
		Refinement: string(r.refinement),
	}
}

// MarshalJSON encodes the request as its RequestInput.
func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Input())
}

// NewRequest validates in and returns the request, or an invalid_input error.
func NewRequest(in RequestInput) (GenerationRequest, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return GenerationRequest{}, apperr.New(apperr.CodeInvalidInput, "topic cannot be empty")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return GenerationRequest{}, apperr.Newf(apperr.CodeInvalidInput, "topic exceeds %d characters", MaxTopicLength)
	}

	tone, err := ParseTone(in.Tone)
	if err != nil {
		return GenerationRequest{}, err
	}
	length, err := ParseLength(in.Length)
	if err != nil {
		return GenerationRequest{}, err
	}
	mode, err := ParseMode(in.Mode)
	if err != nil {
		return GenerationRequest{}, err
	}
	postType, err := ParsePostType(in.PostType)
	if err != nil {
		return GenerationRequest{}, err
	}

	req := GenerationRequest{
		topic:    topic,
		tone:     tone,
		length:   length,
		mode:     mode,
		postType: postType,
	}
	if mode != ModeRefine {
		return req, nil
	}

	prior := strings.TrimSpace(in.PriorBody)
	if prior == "" {
		return GenerationRequest{}, apperr.New(apperr.CodeInvalidInput, "refine mode requires the prior post body")
	}
	ref, err := ParseRefinement(in.Refinement)
	if err != nil {
		return GenerationRequest{}, err
	}
	req.priorBody = prior
	req.refinement = ref
	return req, nil
}

// Refined derives a refine-mode request from r.
func (r GenerationRequest) Refined(priorBody string, ref Refinement) (GenerationRequest, error) {
	in := r.Input()
	in.Mode = string(ModeRefine)
	in.PriorBody = priorBody
	in.Refinement = string(ref)
	return NewRequest(in)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseTone parses a tone name. Underscores are accepted for hyphens.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ReplaceAll(normalize(s), "_", "-"))
	for _, known := range Tones {
		if t == known {
			return t, nil
		}
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported tone %q", s)
}

// ParseLength parses a length name.
func ParseLength(s string) (Length, error) {
	l := Length(normalize(s))
	for _, known := range Lengths {
		if l == known {
			return l, nil
		}
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported length %q", s)
}

// ParseMode parses a mode name; empty means single.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(normalize(s)); m {
	case "":
		return ModeSingle, nil
	case ModeSingle, ModeVariations, ModeRefine:
		return m, nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported mode %q", s)
}

// ParsePostType parses a post type; empty means general.
func ParsePostType(s string) (PostType, error) {
	p := PostType(strings.ReplaceAll(normalize(s), "-", "_"))
	if p == "" {
		return PostTypeGeneral, nil
	}
	for _, known := range PostTypes {
		if p == known {
			return p, nil
		}
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported post type %q", s)
}

// ParseRefinement parses a refinement directive.
func ParseRefinement(s string) (Refinement, error) {
	r := Refinement(strings.ReplaceAll(normalize(s), "-", "_"))
	for _, known := range Refinements {
		if r == known {
			return r, nil
		}
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unsupported refinement %q", s)
}

// PostCandidate is one generated post.
type PostCandidate struct {
	Body     string    `json:"body"`
	Hashtags []string  `json:"hashtags"`
	Score    int       `json:"engagement_score"`
	Stats    TextStats `json:"stats"`
}

// GenerationResult is the output of one pipeline run.
type GenerationResult struct {
	ID         string            `json:"id"`
	Request    GenerationRequest `json:"request"`
	Candidates []PostCandidate   `json:"candidates"`
	// Degraded is set when a variations response could not be split.
	Degraded  bool      `json:"degraded,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn records one pipeline run within a session.
type Turn struct {
	Directive string           `json:"directive"`
	Result    GenerationResult `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
}
