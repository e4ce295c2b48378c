package inpaint

import (
	"context"
	"math/rand"
	"time"
)

// Retrier wraps a Client with an exponential backoff policy for
// transient failures (rate limiting, server errors, timeouts). Fatal
// errors pass through untouched on the first occurrence.
type Retrier struct {
	client Client

	// Attempts is the total number of tries, the first call included.
	Attempts int
	// BaseDelay is the backoff before the second attempt; it doubles
	// on every further attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewRetrier wraps the client with the default backoff policy.
func NewRetrier(client Client, attempts int, baseDelay time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Retrier{
		client:    client,
		Attempts:  attempts,
		BaseDelay: baseDelay,
		MaxDelay:  time.Minute,
	}
}

// Inpaint implements the Client interface.
func (r *Retrier) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	var lastErr error

	delay := r.BaseDelay
	for attempt := 0; attempt < r.Attempts; attempt++ {
		if attempt > 0 {
			// Full jitter keeps concurrent callers from thundering
			// against a rate limited endpoint at the same instant.
			wait := time.Duration(rand.Int63n(int64(delay)) + 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			if delay *= 2; delay > r.MaxDelay {
				delay = r.MaxDelay
			}
		}

		reply, err := r.client.Inpaint(ctx, image, mask, prompt)
		if err == nil {
			return reply, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
