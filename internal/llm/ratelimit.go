package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited spaces out calls to the wrapped generator.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls per second with the given burst.
// A non-positive rate disables limiting.
func NewRateLimited(next Generator, perSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}

func (r *RateLimited) Model() string {
	return r.next.Model()
}
