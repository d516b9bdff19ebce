package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Store operation latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Record store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "backend"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	// result: completed | uncompleted | error
	ToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_toggle_total",
			Help: "Completion toggles by resulting state",
		},
		[]string{"result"},
	)

	// race: create_conflict | delete_missing
	ToggleReconciledCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_toggle_reconciled_total",
			Help: "Toggles whose write lost a race and were reconciled to the stored state",
		},
		[]string{"race"},
	)

	StatsComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habit_stats_compute_seconds",
			Help:    "Time to read and compute habit statistics for one user",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"view"}, // view: today | statistics | habit
	)

	IdempotentReplayCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habit_toggle_idempotent_replay_total",
			Help: "Toggle requests answered from a stored idempotency key",
		},
	)

	// status: sent | failed | skipped
	OutboxPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Outbox events handled by the dispatcher",
		},
		[]string{"status"},
	)

	// 0 closed, 1 open, 2 half-open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state changes by target state",
		},
		[]string{"name", "to"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordDBQueryDuration(operation, backend string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

func IncrementToggle(result string) {
	ToggleCount.WithLabelValues(result).Inc()
}

func IncrementToggleReconciled(race string) {
	ToggleReconciledCount.WithLabelValues(race).Inc()
}

func RecordStatsCompute(view string, duration time.Duration) {
	StatsComputeDuration.WithLabelValues(view).Observe(duration.Seconds())
}

func IncrementIdempotentReplay() {
	IdempotentReplayCount.Inc()
}

func IncrementOutboxPublish(status string) {
	OutboxPublishCount.WithLabelValues(status).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func IncrementCircuitBreakerTransition(name, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, to).Inc()
}
