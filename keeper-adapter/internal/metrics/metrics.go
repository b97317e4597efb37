package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SecretRequestsTotal counts handled GET /keeper/get-secret requests by outcome.
	SecretRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_secret_requests_total",
			Help: "Total number of secret requests handled (by backend and outcome).",
		},
		[]string{"backend", "outcome"},
	)

	// RealCallsTotal counts real external fetches, i.e. consumed quota.
	RealCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_real_calls_total",
			Help: "Total number of real secret-store calls made (by backend and status).",
		},
		[]string{"backend", "status"},
	)

	// FetchDuration measures the duration of real secret-store calls.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_fetch_duration_seconds",
			Help:    "Duration of secret-store fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"backend"},
	)

	// QuotaUsed mirrors the call counter.
	QuotaUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_quota_used",
			Help: "Real secret-store calls consumed in this process.",
		},
	)

	// QuotaLimit exposes the fixed ceiling next to QuotaUsed.
	QuotaLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_quota_limit",
			Help: "Maximum real secret-store calls allowed in this process.",
		},
	)

	// RecorderErrors counts audit/event sink failures.
	RecorderErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_recorder_errors_total",
			Help: "Number of failures while recording fetch events.",
		},
	)
)

// IncSecretRequest increments the request counter for an outcome.
func IncSecretRequest(backend, outcome string) {
	SecretRequestsTotal.WithLabelValues(backend, outcome).Inc()
}

// IncRealCall increments the real call counter.
func IncRealCall(backend, status string) {
	RealCallsTotal.WithLabelValues(backend, status).Inc()
}

// SetQuota publishes the current counter state.
func SetQuota(used, limit int64) {
	QuotaUsed.Set(float64(used))
	QuotaLimit.Set(float64(limit))
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}
