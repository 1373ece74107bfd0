package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks API requests per route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fencer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fencer_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// FenceOperationsTotal tracks geofence CRUD operations.
	FenceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fencer_fence_operations_total",
			Help: "Total number of geofence CRUD operations",
		},
		[]string{"operation"},
	)

	// SessionOperationsTotal tracks session lifecycle operations.
	SessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fencer_session_operations_total",
			Help: "Total number of session operations",
		},
		[]string{"operation"},
	)

	// AuthFailuresTotal tracks rejected authentication attempts.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fencer_auth_failures_total",
			Help: "Total number of authentication failures",
		},
		[]string{"reason"},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percentage.
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fencer_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// SessionsPruned tracks sessions removed by the retention pruner.
	SessionsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fencer_sessions_pruned_total",
			Help: "Total number of sessions removed by the pruner",
		},
	)

	// FencesPruned tracks soft-deleted fences removed by the retention pruner.
	FencesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fencer_fences_pruned_total",
			Help: "Total number of soft-deleted fences removed by the pruner",
		},
	)

	// RecoveryCaptures tracks failures captured by the recovery controller.
	RecoveryCaptures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fencer_recovery_captures_total",
			Help: "Total number of failures captured by the recovery controller",
		},
		[]string{"category", "retryable"},
	)

	// RecoveryAutoRetries tracks automatic retries fired by the recovery controller.
	RecoveryAutoRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fencer_recovery_auto_retries_total",
			Help: "Total number of automatic retries fired",
		},
	)

	// RecoveryManualRetries tracks manual retries.
	RecoveryManualRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fencer_recovery_manual_retries_total",
			Help: "Total number of manual retries",
		},
	)

	// RecoveryExhaustions tracks captures that found the retry budget spent.
	RecoveryExhaustions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fencer_recovery_exhaustions_total",
			Help: "Total number of retryable failures left to manual recovery because the retry budget was spent",
		},
	)
)
