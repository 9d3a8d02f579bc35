package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

func TestRetryPolicyDo(t *testing.T) {
	cfg := config.RetryConfig{MaxAttempts: 3, BaseDelayMS: 1, MaxDelayMS: 5, BackoffMultiplier: 2, JitterMin: 1, JitterMax: 1}

	t.Run("succeeds without retry", func(t *testing.T) {
		p := NewRetryPolicy(cfg)
		attempts, err := p.Do(context.Background(), func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries retryable errors up to maxAttempts", func(t *testing.T) {
		p := NewRetryPolicy(cfg)
		calls := 0
		_, err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return corerr.New(corerr.Network, "transient")
		})
		require.Error(t, err)
		assert.Equal(t, cfg.MaxAttempts, calls)
	})

	t.Run("does not retry a terminal error", func(t *testing.T) {
		p := NewRetryPolicy(cfg)
		calls := 0
		_, err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return corerr.New(corerr.UpstreamClient, "bad request")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		p := NewRetryPolicy(cfg)
		calls := 0
		_, err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 2 {
				return corerr.New(corerr.UpstreamServer, "flaky")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("respects context cancellation between attempts", func(t *testing.T) {
		p := NewRetryPolicy(cfg)
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := p.Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return corerr.New(corerr.Network, "transient")
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled) || calls < cfg.MaxAttempts)
	})
}
