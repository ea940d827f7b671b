package chunker

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens gives a rough token count for reporting. Chunk sizes are
// measured in runes, so this never drives a split.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 1.33 tokens per English word.
	tokens := int(float64(words) * 1.33)
	// Scripts without spaces (CJK) come out as a handful of "words"; fall back
	// to ~1 token per 2 runes for those.
	if byRunes := utf8.RuneCountInString(text) / 2; byRunes > tokens*3 {
		tokens = byRunes
	}
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
