// Package xsync adapts the teacher's pkg/sync concurrency helpers (Limiter,
// Go) under a name that doesn't shadow the standard library's sync package,
// since every caller here also needs sync.Mutex/sync.WaitGroup side by side.
package xsync

import "github.com/Saaimurugan/manuscript-match-core/pkg/safe"

// Limiter is a counting semaphore bounding how many concurrent operations
// may run at once. Each search adapter holds one to honour the spec's "at
// most one outbound call in flight" resource ceiling.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a Limiter allowing at most max concurrent holders.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is available.
func (l *Limiter) Acquire() {
	l.slots <- struct{}{}
}

// TryAcquire acquires a slot without blocking, reporting whether it
// succeeded.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
func (l *Limiter) Release() {
	<-l.slots
}

// Go runs fn under panic recovery, same as safe.Go. Re-exported here so
// orchestrator/validation code only needs one import for "launch a
// supervised goroutine".
func Go(fn func(), onPanic ...func(error)) {
	safe.Go(fn, onPanic...)
}
