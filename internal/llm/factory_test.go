package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew_Mock(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "Mock", MockResponse: "canned", MaxRetries: -1}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	got, err := c.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "canned" {
		t.Errorf("expected canned response, got %q", got)
	}
	if c.Provider() != ProviderMock || c.Model() != "mock" {
		t.Errorf("unexpected provider/model: %s/%s", c.Provider(), c.Model())
	}
	if snap := c.Stats.Snapshot(); snap.Count != 1 {
		t.Errorf("expected the call to be measured, got %+v", snap)
	}
}

func TestNew_MockDefaultResponseAndCancellation(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: ProviderMock, Timeout: time.Second}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.Generate(context.Background(), "p")
	if err != nil || got != DefaultMockResponse {
		t.Fatalf("expected default mock response, got %q, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_Providers(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: ProviderAnthropic, AnthropicModel: "claude-x"}, discardLogger())
	if err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if c.Model() != "claude-x" {
		t.Errorf("expected claude-x, got %q", c.Model())
	}
	c.Close()

	c, err = New(context.Background(), Config{Provider: ProviderOpenAI, OpenAIModel: "gpt-x"}, discardLogger())
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if c.Model() != "gpt-x" {
		t.Errorf("expected gpt-x, got %q", c.Model())
	}

	if _, err := New(context.Background(), Config{Provider: ProviderGemini}, discardLogger()); err == nil {
		t.Error("expected gemini without keys to fail")
	}
	if _, err := New(context.Background(), Config{Provider: "llama"}, discardLogger()); err == nil {
		t.Error("expected unknown provider to fail")
	}
}
