package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approvals_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "approvals_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// TransitionsTotal counts attempted transitions by action and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approvals_transitions_total",
		Help: "Total workflow transitions attempted, by action and outcome",
	}, []string{"action", "outcome"})

	// TransitionLatency records end-to-end latency of an applied transition.
	TransitionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "approvals_transition_latency_seconds",
		Help:    "Latency of workflow transitions in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// RequestsByStatus counts requests entering each status.
	RequestsByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approvals_requests_entered_status_total",
		Help: "Total number of times a request entered a status",
	}, []string{"status"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition counts an attempt and, when applied, its latency and the status entered.
func RecordTransition(action, newStatus string, outcome TransitionOutcome, start time.Time) {
	TransitionsTotal.WithLabelValues(action, string(outcome)).Inc()
	if outcome != OutcomeApplied {
		return
	}
	TransitionLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())
	RequestsByStatus.WithLabelValues(newStatus).Inc()
}
