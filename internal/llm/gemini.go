package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// contentModel is the part of *genai.Models the client uses.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API, rotating through API keys when one hits
// its quota.
type GeminiClient struct {
	model           string
	maxOutputTokens int32
	log             *slog.Logger

	mu      sync.Mutex
	keys    []contentModel
	current int
}

// NewGeminiClient creates one API client per key up front.
func NewGeminiClient(ctx context.Context, apiKeys []string, model string, maxOutputTokens int, log *slog.Logger) (*GeminiClient, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("gemini: at least one API key is required")
	}
	keys := make([]contentModel, 0, len(apiKeys))
	for i, key := range apiKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client for key %d: %w", i+1, err)
		}
		keys = append(keys, client.Models)
	}
	return newGeminiClient(keys, model, maxOutputTokens, log), nil
}

func newGeminiClient(keys []contentModel, model string, maxOutputTokens int, log *slog.Logger) *GeminiClient {
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	return &GeminiClient{
		model:           model,
		maxOutputTokens: int32(maxOutputTokens),
		log:             log,
		keys:            keys,
	}
}

// Generate tries each key at most once per call, starting from the current one.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   c.maxOutputTokens,
	}

	var lastErr error
	for range c.keys {
		idx, models := c.currentKey()
		result, err := models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
		if err != nil {
			if isQuotaError(err) {
				c.log.Warn("gemini key rate limited, rotating", "key", idx+1, "keys", len(c.keys))
				c.rotateFrom(idx)
				lastErr = err
				continue
			}
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && apiErr.Code >= 500 {
				return "", &RetryableError{StatusCode: apiErr.Code, Err: err}
			}
			return "", fmt.Errorf("generate content: %w", err)
		}
		return CleanOutput(responseText(result))
	}
	return "", &RetryableError{
		StatusCode: http.StatusTooManyRequests,
		Err:        fmt.Errorf("all %d gemini keys exhausted: %w", len(c.keys), lastErr),
	}
}

func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) currentKey() (int, contentModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.keys[c.current]
}

// rotateFrom advances past idx unless another call already moved on.
func (c *GeminiClient) rotateFrom(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == idx {
		c.current = (c.current + 1) % len(c.keys)
	}
}

func isQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
