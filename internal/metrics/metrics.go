// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// mounting promhttp.Handler() in main.go is enough to expose them on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Verify outcomes.  Kept small and fixed so the label never carries input.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeValidation  = "validation"
	OutcomeRateLimited = "rate_limited"
	OutcomeInternal    = "internal"
)

// Session read results.
const (
	SessionValid   = "valid"
	SessionAbsent  = "absent"
	SessionExpired = "expired"
	SessionCorrupt = "corrupt"
)

var (
	VerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_verify_total",
			Help: "Credential verification attempts by outcome.",
		}, []string{"outcome"})

	VerifyHashSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admin_verify_hash_seconds",
			Help:    "Time spent in password hash comparison.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1},
		})

	LastLoginErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_last_login_errors_total",
			Help: "Best-effort last-login updates that failed.",
		})

	SessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_sessions_created_total",
			Help: "Admin sessions written to a slot.",
		})

	SessionReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_session_reads_total",
			Help: "Admin session reads by result.",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		VerifyTotal,
		VerifyHashSeconds,
		LastLoginErrorsTotal,
		SessionsCreatedTotal,
		SessionReadsTotal,
	)
}
