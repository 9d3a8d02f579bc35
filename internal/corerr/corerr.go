// Package corerr defines the tagged error taxonomy every adapter, resilience
// layer, and core operation uses. This replaces string-matching on error
// messages (the "dynamic error dispatching" anti-pattern called out in the
// spec's design notes) with a typed Kind every caller can switch on.
package corerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why an operation failed, independent of its message.
type Kind int

const (
	// Unknown covers errors that did not originate from this package's
	// constructors; it should not be produced by core code directly.
	Unknown Kind = iota
	Network
	Timeout
	RateLimited
	UpstreamClient // 4xx other than 429: terminal
	UpstreamServer // 5xx: retryable
	Parse
	CircuitOpen
	ValidationInput
	NotFound
	ConflictState
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "NETWORK"
	case Timeout:
		return "TIMEOUT"
	case RateLimited:
		return "RATE_LIMITED"
	case UpstreamClient:
		return "UPSTREAM_4XX"
	case UpstreamServer:
		return "UPSTREAM_5XX"
	case Parse:
		return "PARSE"
	case CircuitOpen:
		return "CIRCUIT_OPEN"
	case ValidationInput:
		return "VALIDATION_INPUT"
	case NotFound:
		return "NOT_FOUND"
	case ConflictState:
		return "CONFLICT_STATE"
	default:
		return "UNKNOWN"
	}
}

// Error is the tagged error value carried across adapter, resilience, and
// core boundaries. It wraps an optional cause and, for the two kinds that
// carry a "try again later" hint, either a delay (RetryAfter) or a
// timestamp (NextAttempt).
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// RetryAfter is set on RateLimited errors when the upstream provided a
	// Retry-After hint.
	RetryAfter time.Duration
	// NextAttempt is set on CircuitOpen errors: the time the breaker will
	// allow its next probe.
	NextAttempt time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags an existing error with a Kind, preserving it as the cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// RateLimitedWithRetryAfter builds a RateLimited error carrying the
// upstream's Retry-After hint, if any.
func RateLimitedWithRetryAfter(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: RateLimited, Message: message, RetryAfter: retryAfter}
}

// CircuitOpenUntil builds a CircuitOpen error carrying the next allowed
// attempt time.
func CircuitOpenUntil(next time.Time) *Error {
	return &Error{Kind: CircuitOpen, Message: "circuit breaker open", NextAttempt: next}
}

// KindOf extracts the Kind from err, returning Unknown if err is not (or
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return Unknown
}

// Retryable reports whether the retry predicate in spec.md §4.2/§7 should
// retry an error of this kind: network errors, 5xx, and 429 are retryable;
// everything else (4xx-non-429, parse errors, circuit-open, validation
// input, not-found, conflict-state) is terminal.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Network, Timeout, UpstreamServer, RateLimited:
		return true
	default:
		return false
	}
}

// CountsAgainstBreaker reports whether an error of this kind should count
// as a qualifying failure for the circuit breaker. RateLimited and
// UpstreamClient are "expected" errors per spec.md §4.2/§7 and never trip
// the breaker.
func CountsAgainstBreaker(err error) bool {
	switch KindOf(err) {
	case Network, Timeout, UpstreamServer:
		return true
	default:
		return false
	}
}
