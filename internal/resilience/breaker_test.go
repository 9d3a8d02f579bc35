package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := config.CircuitConfig{FailureThreshold: 3, ResetTimeoutMS: 60000}
	b := NewBreaker[int]("test", cfg)

	failing := func() (int, error) { return 0, corerr.New(corerr.UpstreamServer, "boom") }

	for i := 0; i < cfg.FailureThreshold; i++ {
		_, err := b.Execute(failing)
		require.Error(t, err)
		assert.NotEqual(t, corerr.CircuitOpen, corerr.KindOf(err), "failures below threshold must not yet report CircuitOpen")
	}

	_, err := b.Execute(failing)
	require.Error(t, err)
	assert.Equal(t, corerr.CircuitOpen, corerr.KindOf(err))
	assert.Equal(t, CircuitOpen, b.State())
}

func TestBreakerExpectedErrorsDoNotCount(t *testing.T) {
	cfg := config.CircuitConfig{FailureThreshold: 2, ResetTimeoutMS: 60000}
	b := NewBreaker[int]("test", cfg)

	expected := func() (int, error) { return 0, corerr.New(corerr.UpstreamClient, "bad request") }

	for i := 0; i < 10; i++ {
		_, err := b.Execute(expected)
		require.Error(t, err)
		assert.Equal(t, corerr.UpstreamClient, corerr.KindOf(err))
	}
	assert.Equal(t, CircuitClosed, b.State())
}

func TestBreakerClosedOnSuccess(t *testing.T) {
	cfg := config.CircuitConfig{FailureThreshold: 2, ResetTimeoutMS: 60000}
	b := NewBreaker[string]("test", cfg)

	result, err := b.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, CircuitClosed, b.State())
}
