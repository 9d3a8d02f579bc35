package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterEnforcesInterval(t *testing.T) {
	rl := NewRateLimiter(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx))
	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
}

func TestRateLimiterRespectsCancellation(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Wait(ctx)
	assert.Error(t, err)
}
