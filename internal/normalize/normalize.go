// Package normalize turns subtitle files into plain running text.
package normalize

import (
	"regexp"
	"strings"
)

var (
	reHeader = regexp.MustCompile(`\AWEBVTT[^\n]*\n`)

	// index line followed by a time-range line (SRT uses ',', VTT uses '.')
	reCueBlock  = regexp.MustCompile(`(?m)^\d+[ \t]*\n\d{2}:\d{2}:\d{2}[,.]\d{3} --> \d{2}:\d{2}:\d{2}[,.]\d{3}[^\n]*\n`)
	reCueTiming = regexp.MustCompile(`(?m)^(?:\d{2}:)?\d{2}:\d{2}[,.]\d{3} --> (?:\d{2}:)?\d{2}:\d{2}[,.]\d{3}[^\n]*$`)
	reTimeRange = regexp.MustCompile(`(?:\d{2}:)?\d{2}:\d{2}[,.]\d{3} --> (?:\d{2}:)?\d{2}:\d{2}[,.]\d{3}`)
	reAngleTag  = regexp.MustCompile(`<[^>]*>`)
	reASSTag    = regexp.MustCompile(`\{\\[^}]*\}`)
	reBracket   = regexp.MustCompile(`\[[^\]\n]*\]`)
	reSpace     = regexp.MustCompile(`\s+`)
)

// Normalize strips cue numbers, time ranges and markup tags from subtitle text
// and collapses whitespace. Content order is preserved; only spans are removed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(markedUp string) string {
	s := strings.ReplaceAll(markedUp, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reHeader.ReplaceAllString(s, "")

	// Removing a tag can splice a new time range or tag together, so repeat
	// until a pass changes nothing. Each changing pass removes characters or
	// turns non-space whitespace into spaces, so this terminates.
	for {
		next := pass(s)
		if next == s {
			return next
		}
		s = next
	}
}

func pass(s string) string {
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = reCueBlock.ReplaceAllString(s, "")
	s = reCueTiming.ReplaceAllString(s, "")
	s = reTimeRange.ReplaceAllString(s, "")
	s = reAngleTag.ReplaceAllString(s, "")
	s = reASSTag.ReplaceAllString(s, "")
	s = reBracket.ReplaceAllString(s, "")
	return Clean(s)
}

// Clean collapses every whitespace run to a single space and trims the ends.
func Clean(text string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(text, " "))
}
