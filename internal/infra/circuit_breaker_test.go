package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing() error { return errors.New("boom") }
func succeeding() error { return nil }

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(failing)
		assert.Equal(t, CBClosed, cb.State())
	}
	_ = cb.Execute(failing)
	assert.Equal(t, CBOpen, cb.State())

	err := cb.Execute(succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Hour})

	_ = cb.Execute(failing)
	_ = cb.Execute(failing)
	require.NoError(t, cb.Execute(succeeding))
	_ = cb.Execute(failing)
	_ = cb.Execute(failing)

	// Never three in a row, so still closed.
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	_ = cb.Execute(failing)
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	// One success is not enough with SuccessThreshold 2.
	require.NoError(t, cb.Execute(succeeding))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(succeeding))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: 10 * time.Millisecond})

	_ = cb.Execute(failing)
	require.Equal(t, CBOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(failing)
	assert.Equal(t, CBOpen, cb.State())
}
