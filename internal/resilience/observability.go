package resilience

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallRecord is one outbound call's observability trail, consumed by an
// external HealthCheck collaborator (out of scope for this module, per
// spec.md §6). Recorded per call: requestId, url, method, timing, status,
// retry attempts, circuit state, and error.
type CallRecord struct {
	RequestID     string
	URL           string
	Method        string
	Start         time.Time
	End           time.Time
	Status        int
	RetryAttempts int
	CircuitState  CircuitState
	Error         string
}

// History is a fixed-capacity ring buffer of CallRecords. The spec's design
// notes flag "per-request metrics map keyed by generated id" as a leak —
// unbounded growth across a long-lived process — so this is a ring buffer,
// not a map, and overwrites its oldest entry once full.
type History struct {
	mu       sync.Mutex
	records  []CallRecord
	next     int
	full     bool
}

// NewHistory creates a History with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 512
	}
	return &History{records: make([]CallRecord, capacity)}
}

// NewRequestID generates a fresh request id for a CallRecord.
func NewRequestID() string {
	return uuid.NewString()
}

// Append records rec, overwriting the oldest entry once the buffer is full.
func (h *History) Append(rec CallRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

// Snapshot returns a copy of the currently retained records, oldest first.
func (h *History) Snapshot() []CallRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		out := make([]CallRecord, h.next)
		copy(out, h.records[:h.next])
		return out
	}
	out := make([]CallRecord, len(h.records))
	copy(out, h.records[h.next:])
	copy(out[len(h.records)-h.next:], h.records[:h.next])
	return out
}
