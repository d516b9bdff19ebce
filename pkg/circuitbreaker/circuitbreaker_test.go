package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"habittracker/pkg/metrics"
)

var errBoom = errors.New("boom")

func newTestBreaker(cfg Config) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(cfg)
	cb.now = func() time.Time { return clock }
	cb.lastStateTime = clock
	return cb, &clock
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1})

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.NoError(t, cb.Execute(succeed)) // resets the run
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Minute, HalfOpenMaxRequests: 2})

	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.GetState())

	*clock = clock.Add(59 * time.Second)
	assert.Equal(t, StateOpen, cb.GetState())

	*clock = clock.Add(time.Second)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	assert.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second, HalfOpenMaxRequests: 1})

	_ = cb.Execute(fail)
	*clock = clock.Add(time.Second)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestReset(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour, HalfOpenMaxRequests: 1})
	_ = cb.Execute(fail)
	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "closed", cb.GetState().String())
}

func TestReportsStateToMetrics(t *testing.T) {
	const name = "test_reports_state"
	cb, clock := newTestBreaker(Config{Name: name, FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second, HalfOpenMaxRequests: 1})
	state := metrics.CircuitBreakerState.WithLabelValues(name)
	transitions := func(to State) float64 {
		return testutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues(name, to.String()))
	}

	assert.Equal(t, float64(StateClosed), testutil.ToFloat64(state))

	_ = cb.Execute(fail)
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(state))
	assert.Equal(t, 1.0, transitions(StateOpen))

	*clock = clock.Add(time.Second)
	assert.NoError(t, cb.Execute(succeed))
	assert.Equal(t, float64(StateClosed), testutil.ToFloat64(state))
	assert.Equal(t, 1.0, transitions(StateHalfOpen))
	assert.Equal(t, 1.0, transitions(StateClosed))

	// resetting a closed breaker is not a transition
	cb.Reset()
	assert.Equal(t, 1.0, transitions(StateClosed))
}
