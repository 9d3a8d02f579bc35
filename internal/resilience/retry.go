package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

// fullJitterBackoff implements the spec's retry schedule exactly: delay =
// min(base * multiplier^attempt, cap) * U(jitterMin, jitterMax). go-retry's
// own WithJitterPercent jitters around the computed delay (±pct%); the spec
// instead wants "full jitter" — a uniform draw across [jitterMin*delay,
// jitterMax*delay] — so this is a custom retry.BackoffFunc rather than a
// stock Backoff.
func fullJitterBackoff(cfg config.RetryConfig) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay := float64(cfg.BaseDelay()) * pow(cfg.BackoffMultiplier, attempt)
		if cap := float64(cfg.MaxDelay()); delay > cap {
			delay = cap
		}
		attempt++
		jitter := cfg.JitterMin + rand.Float64()*(cfg.JitterMax-cfg.JitterMin)
		return time.Duration(delay * jitter), false
	})
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// RetryPolicy wraps an operation with the spec's retry predicate and
// backoff schedule.
type RetryPolicy struct {
	cfg config.RetryConfig
}

// NewRetryPolicy builds a RetryPolicy from cfg.
func NewRetryPolicy(cfg config.RetryConfig) *RetryPolicy {
	return &RetryPolicy{cfg: cfg}
}

// Do runs op, retrying according to the retry predicate in spec.md §4.2/§7:
// network errors, HTTP 5xx, and HTTP 429 are retried; 4xx-non-429, parse
// errors, and anything else is terminal on the first attempt. The final
// failure (if any) carries the last error, tagged with its original Kind.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (attempts int, err error) {
	backoff := retry.WithMaxRetries(uint64(max(p.cfg.MaxAttempts-1, 0)), fullJitterBackoff(p.cfg))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		if corerr.Retryable(opErr) {
			return retry.RetryableError(opErr)
		}
		return opErr
	})
	return attempts, err
}
