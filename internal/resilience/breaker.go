package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

// CircuitState mirrors spec.md §4.2's CLOSED/OPEN/HALF_OPEN vocabulary over
// gobreaker's own State type, so callers (SearchStatus reporting, tests)
// don't need to import gobreaker directly.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

func fromGobreakerState(s gobreaker.State) CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// Breaker is one adapter's circuit breaker instance, process-wide for the
// lifetime of the adapter. T is the adapter call's result type.
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]

	mu        sync.Mutex
	openedAt  time.Time
	resetAfter time.Duration
}

// NewBreaker builds a Breaker configured from cfg: failureThreshold
// consecutive qualifying failures open it, resetTimeout governs how long it
// stays open before allowing a half-open probe. "Expected" errors (4xx
// other than 429, per corerr.CountsAgainstBreaker) never count against it.
func NewBreaker[T any](name string, cfg config.CircuitConfig) *Breaker[T] {
	b := &Breaker[T]{name: name, resetAfter: cfg.ResetTimeout()}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !corerr.CountsAgainstBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.openedAt = time.Now()
				b.mu.Unlock()
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker[T](settings)
	return b
}

// Execute runs op through the breaker. When the breaker is open, op is not
// called and Execute returns a corerr.CircuitOpen error carrying the next
// allowed attempt time.
func (b *Breaker[T]) Execute(op func() (T, error)) (T, error) {
	result, err := b.cb.Execute(op)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		b.mu.Lock()
		next := b.openedAt.Add(b.resetAfter)
		b.mu.Unlock()
		var zero T
		return zero, corerr.CircuitOpenUntil(next)
	}
	return result, err
}

// State reports the breaker's current state.
func (b *Breaker[T]) State() CircuitState {
	return fromGobreakerState(b.cb.State())
}
