package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	QueryOutcomeSuccess  = "success"
	QueryOutcomeFailed   = "failed"
	QueryOutcomeRejected = "rejected"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckgate_queries_total",
			Help: "Total number of SQL statements submitted to the engine, by outcome.",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckgate_query_duration_seconds",
			Help:    "Engine execution latency including lock wait and row materialization.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	queryResultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckgate_query_result_rows",
			Help:    "Number of rows materialized per successful query.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000, 1000000},
		},
	)
	engineLockWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckgate_engine_lock_wait_seconds",
			Help:    "Time spent waiting for the shared engine session.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
	engineCapabilityLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "duckgate_engine_capability_loaded",
			Help: "1 when an optional engine capability loaded at startup, 0 otherwise.",
		},
		[]string{"capability"},
	)
	healthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckgate_health_checks_total",
			Help: "Total number of engine self-check queries, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		queryResultRows,
		engineLockWaitSeconds,
		engineCapabilityLoaded,
		healthChecksTotal,
	)
}

func ObserveQuery(outcome string, rows int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	if outcome == QueryOutcomeRejected {
		return
	}
	queryDurationSeconds.Observe(elapsed.Seconds())
	if outcome == QueryOutcomeSuccess {
		queryResultRows.Observe(float64(rows))
	}
}

func ObserveEngineLockWait(elapsed time.Duration) {
	engineLockWaitSeconds.Observe(elapsed.Seconds())
}

func SetCapabilityLoaded(capability string, loaded bool) {
	value := 0.0
	if loaded {
		value = 1
	}
	engineCapabilityLoaded.WithLabelValues(capability).Set(value)
}

func ObserveHealthCheck(healthy bool) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	healthChecksTotal.WithLabelValues(result).Inc()
}
