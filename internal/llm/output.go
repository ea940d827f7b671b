package llm

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrEmptyOutput is returned when a model answers with nothing but whitespace.
var ErrEmptyOutput = errors.New("empty output from model")

var codeBlockRe = regexp.MustCompile("(?s)^```(?:[a-zA-Z]+)?\\s*(.*?)\\s*```$")

// CleanOutput trims model output and unwraps a reply fenced as a code block.
func CleanOutput(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	if s == "" {
		return "", ErrEmptyOutput
	}
	return s, nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
