package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

func TestLayerCallSuccessRecordsHistory(t *testing.T) {
	history := NewHistory(10)
	layer := NewLayer[string]("test", time.Millisecond, time.Second,
		config.RetryConfig{MaxAttempts: 1, BaseDelayMS: 1, MaxDelayMS: 1, BackoffMultiplier: 1, JitterMin: 1, JitterMax: 1},
		config.CircuitConfig{FailureThreshold: 5, ResetTimeoutMS: 60000},
		history,
	)

	result, err := layer.Call(context.Background(), "GET", "http://example.test", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	snap := history.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "http://example.test", snap[0].URL)
	assert.Equal(t, CircuitClosed, snap[0].CircuitState)
}

func TestLayerCallFailureRecordsStatus(t *testing.T) {
	history := NewHistory(10)
	layer := NewLayer[string]("test", time.Millisecond, time.Second,
		config.RetryConfig{MaxAttempts: 1, BaseDelayMS: 1, MaxDelayMS: 1, BackoffMultiplier: 1, JitterMin: 1, JitterMax: 1},
		config.CircuitConfig{FailureThreshold: 5, ResetTimeoutMS: 60000},
		history,
	)

	_, err := layer.Call(context.Background(), "GET", "http://example.test", func(ctx context.Context) (string, error) {
		return "", corerr.New(corerr.UpstreamClient, "bad request")
	})
	require.Error(t, err)

	snap := history.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 400, snap[0].Status)
}
