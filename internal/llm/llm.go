// Package llm provides the text generators behind summarization: Anthropic,
// OpenAI, Gemini and a fixed-response mock, plus the rate limiting, retry and
// latency decorators wrapped around them.
package llm

import "context"

const (
	systemPrompt = "You are a helpful assistant that summarizes text."

	DefaultMaxOutputTokens = 1024
)

// Generator is a text generator bound to one model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}
