package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// DefaultMaxRetries is used when no retry count is configured.
const DefaultMaxRetries = 3

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retrying retries calls that fail with a RetryableError.
type Retrying struct {
	next       Generator
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

func NewRetrying(next Generator, maxRetries int, log *slog.Logger) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retrying{next: next, maxRetries: maxRetries, backoff: Backoff, log: log}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil || !IsRetryable(err) {
			return out, err
		}
		if attempt >= r.maxRetries {
			return "", fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		wait := r.backoff(attempt)
		r.log.Warn("retryable llm error", "model", r.next.Model(), "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (r *Retrying) Model() string {
	return r.next.Model()
}
