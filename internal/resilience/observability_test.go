package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRingBufferWraps(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(CallRecord{RequestID: NewRequestID(), URL: "u"})
	}
	snap := h.Snapshot()
	assert.Len(t, snap, 3, "capacity must cap retained records, not grow unbounded")
}

func TestHistorySnapshotBeforeFull(t *testing.T) {
	h := NewHistory(5)
	h.Append(CallRecord{URL: "a"})
	h.Append(CallRecord{URL: "b"})
	snap := h.Snapshot()
	if assert.Len(t, snap, 2) {
		assert.Equal(t, "a", snap[0].URL)
		assert.Equal(t, "b", snap[1].URL)
	}
}

func TestNewHistoryDefaultsCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Len(t, h.records, 512)
}
