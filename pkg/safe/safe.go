// Package safe provides panic-recovering goroutine launch. The
// orchestrator's per-adapter search tasks are started through GoNamed
// rather than the bare go keyword, so a single malformed upstream response
// can't take the whole search down with it. (The manual name search fans
// out through errgroup instead, and validation runs no goroutines.)
package safe

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// PanicError captures a recovered panic: when it happened, what was passed
// to panic(), the stack trace at that point, and optionally the name of the
// task that panicked (set via GoNamed/WithRecoverNamed — the orchestrator
// uses this to attribute a panic to the adapter source that caused it).
type PanicError struct {
	time  time.Time
	info  any
	stack []byte
	name  string
	cache atomic.Pointer[string]
}

func (e *PanicError) Error() string {
	if e.cache.Load() == nil {
		label := e.name
		if label == "" {
			label = "unnamed task"
		}
		msg := fmt.Sprintf("panic in %s: timestamp=%s info=%+v\n%s", label, e.time.Format(time.RFC3339Nano), e.info, e.stack)
		e.cache.Store(&msg)
	}
	return *e.cache.Load()
}

// Name returns the label passed to GoNamed/WithRecoverNamed, or "" when the
// panic was recovered through the unnamed Go/WithRecover entry points.
func (e *PanicError) Name() string { return e.name }

// NewPanicError builds a PanicError from a recover() value and stack trace.
func NewPanicError(info any, stack []byte) error {
	return &PanicError{time: time.Now(), info: info, stack: stack}
}

// Go launches fn in a new goroutine with panic recovery. Any panic is
// converted to a PanicError and handed to each of onPanic in turn; the
// goroutine does not propagate the panic further.
func Go(fn func(), onPanic ...func(error)) {
	GoNamed("", fn, onPanic...)
}

// GoNamed is Go with a label attached to any recovered panic, so a fan-out
// over several named tasks (one goroutine per search adapter, for example)
// can tell which one failed without parsing the panic message.
func GoNamed(name string, fn func(), onPanic ...func(error)) {
	wrapped := WithRecoverNamed(name, fn, onPanic...)
	if wrapped == nil {
		return
	}
	go wrapped()
}

// WithRecover wraps fn so that a panic is recovered and reported to onPanic
// instead of crashing the caller. Useful when recovery is needed without
// spawning a new goroutine (e.g. inside an errgroup task).
func WithRecover(fn func(), onPanic ...func(error)) func() {
	return WithRecoverNamed("", fn, onPanic...)
}

// WithRecoverNamed is WithRecover with a label attached to any recovered
// panic (see GoNamed).
func WithRecoverNamed(name string, fn func(), onPanic ...func(error)) func() {
	if fn == nil {
		return nil
	}
	return func() {
		defer func() {
			if r := recover(); r != nil {
				err := &PanicError{time: time.Now(), info: r, stack: debug.Stack(), name: name}
				for _, h := range onPanic {
					h(err)
				}
			}
		}()
		fn()
	}
}
