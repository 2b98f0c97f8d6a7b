package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errBadInput  = errors.New("bad input")
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         30 * time.Second,
		IsFailure:        func(err error) bool { return errors.Is(err, errTransient) },
	})
	cb.now = c.now
	return cb, c
}

func fail(err error) func() error { return func() error { return err } }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail(errTransient)), errTransient)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
	assert.Equal(t, int64(1), cb.Stats().TotalRejected)
}

func TestCircuitBreaker_IgnoredErrorsResetStreak(t *testing.T) {
	cb, _ := newTestBreaker(2)

	require.Error(t, cb.Execute(fail(errTransient)))
	require.Error(t, cb.Execute(fail(errBadInput)))
	require.Error(t, cb.Execute(fail(errTransient)))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, c := newTestBreaker(1)

	require.Error(t, cb.Execute(fail(errTransient)))
	require.Equal(t, CircuitOpen, cb.State())

	c.advance(29 * time.Second)
	assert.ErrorIs(t, cb.Execute(fail(nil)), ErrCircuitOpen)

	// a failed probe reopens the circuit
	c.advance(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(fail(errTransient)), errTransient)
	assert.Equal(t, CircuitOpen, cb.State())

	c.advance(31 * time.Second)
	assert.NoError(t, cb.Execute(fail(nil)))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ZeroThresholdDisables(t *testing.T) {
	cb, _ := newTestBreaker(0)
	for i := 0; i < 10; i++ {
		require.Error(t, cb.Execute(fail(errTransient)))
	}
	assert.Equal(t, CircuitClosed, cb.State())
	assert.NoError(t, cb.Execute(fail(nil)))
}

func TestExecuteWithResult(t *testing.T) {
	cb, _ := newTestBreaker(1)

	v, err := ExecuteWithResult(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = ExecuteWithResult(cb, func() (int, error) { return 7, errTransient })
	assert.ErrorIs(t, err, errTransient)
	assert.Zero(t, v)

	_, err = ExecuteWithResult(cb, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRegistry(t *testing.T) {
	r := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig())

	b := r.Get("yahoo")
	assert.Same(t, b, r.Get("yahoo"))
	r.Get("coingecko")

	stats := r.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "coingecko", stats[0].Name)
	assert.Equal(t, "yahoo", stats[1].Name)

	for i := 0; i < 5; i++ {
		_ = b.Execute(fail(errTransient))
	}
	require.Equal(t, CircuitOpen, b.State())
	r.ResetAll()
	assert.Equal(t, CircuitClosed, b.State())
}
