package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderMock}

// Config selects and tunes a provider.
type Config struct {
	Provider string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKeys   []string
	GeminiModel     string
	MockResponse    string

	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetries      int
	RatePerSecond   float64
	Burst           int
	StatsWindow     time.Duration
}

// Client is the generator the rest of the service uses: the selected provider
// wrapped with per-call timeout, latency stats, rate limiting and retries.
type Client struct {
	provider string
	model    string
	gen      Generator
	close    func()

	Stats *LLMStats
}

// New builds the configured provider and its decorators.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	log = log.With("component", "llm")
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var (
		base    Generator
		closeFn = func() {}
	)
	switch provider {
	case ProviderAnthropic:
		c := NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxOutputTokens, cfg.Timeout)
		base, closeFn = c, c.Close
	case ProviderOpenAI:
		base = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxOutputTokens)
	case ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKeys, cfg.GeminiModel, cfg.MaxOutputTokens, log)
		if err != nil {
			return nil, err
		}
		base = c
	case ProviderMock:
		base = NewMock(cfg.MockResponse, log)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q (have %s)", cfg.Provider, strings.Join(Providers, ", "))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	stats := NewLLMStats(cfg.StatsWindow)
	var gen Generator = NewMeasured(withTimeout(base, cfg.Timeout), stats)
	gen = NewRateLimited(gen, cfg.RatePerSecond, cfg.Burst)
	gen = NewRetrying(gen, maxRetries, log)

	log.Info("llm ready", "provider", provider, "model", base.Model(), "max_retries", maxRetries, "rate_per_second", cfg.RatePerSecond)
	return &Client{
		provider: provider,
		model:    base.Model(),
		gen:      gen,
		close:    closeFn,
		Stats:    stats,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.gen.Generate(ctx, prompt)
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) Model() string {
	return c.model
}

// Close releases resources.
func (c *Client) Close() {
	c.close()
}

// timeoutGenerator bounds each attempt.
type timeoutGenerator struct {
	Generator
	timeout time.Duration
}

func withTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return g
	}
	return &timeoutGenerator{Generator: g, timeout: timeout}
}

func (t *timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Generator.Generate(ctx, prompt)
}
