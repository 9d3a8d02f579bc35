package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces an adapter's minimum inter-request delay (spec.md
// §4.1: PubMed ~334ms, Elsevier/Wiley/Taylor & Francis ~1000ms) by allowing
// exactly one token per interval with no burst.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing one request per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request is allowed or ctx is cancelled — one
// of the suspension points every adapter task must observe cancellation at
// (spec.md §5).
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
