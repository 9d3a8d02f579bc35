package resilience

import (
	"context"
	"time"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

// Layer is the ResilienceLayer of spec.md §4.2: every adapter call runs
// through a single Layer instance, which enforces the per-adapter rate
// limit, retries retryable failures with full-jitter backoff, short-circuits
// via a breaker once the failure threshold trips, bounds the call with a
// timeout, and appends a CallRecord to its history ring buffer — all in one
// place, rather than each adapter re-implementing its own mix.
type Layer[T any] struct {
	name    string
	limiter *RateLimiter
	retry   *RetryPolicy
	breaker *Breaker[T]
	timeout time.Duration
	history *History
}

// NewLayer builds a Layer for one adapter. interval is the adapter's minimum
// inter-request delay (spec.md §4.1); timeout bounds a single call,
// including all of its retries.
func NewLayer[T any](name string, interval, timeout time.Duration, retryCfg config.RetryConfig, circuitCfg config.CircuitConfig, history *History) *Layer[T] {
	return &Layer[T]{
		name:    name,
		limiter: NewRateLimiter(interval),
		retry:   NewRetryPolicy(retryCfg),
		breaker: NewBreaker[T](name, circuitCfg),
		timeout: timeout,
		history: history,
	}
}

// Call runs op through the full resilience stack: rate limit wait, circuit
// breaker (skipping op entirely when open), bounded retry loop, and a
// CallRecord appended to history regardless of outcome.
func (l *Layer[T]) Call(ctx context.Context, method, url string, op func(ctx context.Context) (T, error)) (T, error) {
	rec := CallRecord{
		RequestID: NewRequestID(),
		URL:       url,
		Method:    method,
		Start:     time.Now(),
	}

	var zero T
	if err := l.limiter.Wait(ctx); err != nil {
		rec.End = time.Now()
		rec.Error = err.Error()
		rec.CircuitState = l.breaker.State()
		l.history.Append(rec)
		return zero, err
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var attempts int
	result, err := l.breaker.Execute(func() (T, error) {
		var last T
		n, retryErr := l.retry.Do(callCtx, func(ctx context.Context) error {
			v, opErr := op(ctx)
			last = v
			return opErr
		})
		attempts = n
		return last, retryErr
	})

	rec.End = time.Now()
	rec.RetryAttempts = attempts
	rec.CircuitState = l.breaker.State()
	if err != nil {
		rec.Error = err.Error()
		rec.Status = statusFor(err)
	}
	l.history.Append(rec)

	return result, err
}

func statusFor(err error) int {
	switch corerr.KindOf(err) {
	case corerr.RateLimited:
		return 429
	case corerr.CircuitOpen:
		return 503
	case corerr.UpstreamServer:
		return 502
	case corerr.UpstreamClient:
		return 400
	default:
		return 0
	}
}
