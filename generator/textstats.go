package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const wordsPerMinute = 200

var (
	sentenceEndRe = regexp.MustCompile(`[.!?]+`)
	urlRe         = regexp.MustCompile(`https?://`)
)

// TextStats are surface statistics of a post body.
type TextStats struct {
	Words              int  `json:"words"`
	Characters         int  `json:"characters"`
	CharactersNoSpaces int  `json:"characters_no_spaces"`
	Lines              int  `json:"lines"`
	Sentences          int  `json:"sentences"`
	Hashtags           int  `json:"hashtags"`
	ReadTimeSeconds    int  `json:"read_time_seconds"`
	HasQuestion        bool `json:"has_question"`
	HasCTA             bool `json:"has_cta"`
	HasEmoji           bool `json:"has_emoji"`
	HasURL             bool `json:"has_url"`
}

// ComputeTextStats measures text.
func ComputeTextStats(text string) TextStats {
	if text == "" {
		return TextStats{}
	}
	words := len(strings.Fields(text))
	return TextStats{
		Words:              words,
		Characters:         utf8.RuneCountInString(text),
		CharactersNoSpaces: utf8.RuneCountInString(strings.ReplaceAll(text, " ", "")),
		Lines:              strings.Count(text, "\n") + 1,
		Sentences:          len(sentenceEndRe.FindAllStringIndex(text, -1)),
		Hashtags:           len(ExtractHashtags(text)),
		ReadTimeSeconds:    words * 60 / wordsPerMinute,
		HasQuestion:        strings.Contains(text, "?"),
		HasCTA:             hasCTA(text),
		HasEmoji:           strings.IndexFunc(text, isEmoji) >= 0,
		HasURL:             urlRe.MatchString(text),
	}
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return false
}
