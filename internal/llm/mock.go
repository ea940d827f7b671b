package llm

import (
	"context"
	"log/slog"
)

// DefaultMockResponse is what Mock answers when no response is configured.
const DefaultMockResponse = "这是一个模拟的总结内容，基于提供的文本。"

// Mock answers every prompt with a fixed response. It is used for local runs
// without credentials and in tests.
type Mock struct {
	response string
	log      *slog.Logger
}

func NewMock(response string, log *slog.Logger) *Mock {
	if response == "" {
		response = DefaultMockResponse
	}
	return &Mock{response: response, log: log}
}

func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.log.Debug("mock llm call", "prompt", truncate(prompt, 100))
	return m.response, nil
}

func (m *Mock) Model() string {
	return "mock"
}
