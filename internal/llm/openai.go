package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIClient calls OpenAI's Responses API.
type OpenAIClient struct {
	client          openai.Client
	model           string
	maxOutputTokens int64
	limitTokens     int64
}

// NewOpenAIClient builds a client. The SDK's own retries are disabled; the
// Retrying decorator owns that policy.
func NewOpenAIClient(apiKey, model string, maxOutputTokens int, opts ...option.RequestOption) *OpenAIClient {
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &OpenAIClient{
		client:          openai.NewClient(append(base, opts...)...),
		model:           model,
		maxOutputTokens: int64(maxOutputTokens),
		limitTokens:     int64(maxOutputTokens) * 4,
	}
}

// Generate asks for a response to prompt. A response cut short by the output
// token cap is retried with a doubled cap, up to four times the configured one.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	maxOutputTokens := c.maxOutputTokens
	for {
		resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           shared.ResponsesModel(c.model),
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Instructions:    openai.String(systemPrompt),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500) {
				return "", &RetryableError{StatusCode: apiErr.StatusCode, Err: err}
			}
			return "", fmt.Errorf("openai request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < c.limitTokens {
				maxOutputTokens = min(maxOutputTokens*2, c.limitTokens)
				continue
			}
			return "", fmt.Errorf("openai response incomplete (reason = %s, max_output_tokens = %d)",
				resp.IncompleteDetails.Reason, maxOutputTokens)
		}

		return CleanOutput(resp.OutputText())
	}
}

func (c *OpenAIClient) Model() string {
	return c.model
}
