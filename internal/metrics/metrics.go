package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and route
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventreg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventreg_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventreg_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// Submissions counts accepted registrations by competition and initial status
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventreg_submissions_total",
			Help: "Total number of accepted registrations",
		},
		[]string{"competition", "status"},
	)

	// ModerationVerdicts counts audio moderation outcomes; reason is
	// "clean", "banned_term" or "failure"
	ModerationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventreg_moderation_verdicts_total",
			Help: "Audio moderation verdicts by reason",
		},
		[]string{"verdict", "reason"},
	)

	// ReviewTransitions counts operator status changes
	ReviewTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventreg_review_transitions_total",
			Help: "Total number of operator review decisions",
		},
		[]string{"status"},
	)

	// StoreOperationDuration measures record store load/save duration
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventreg_store_operation_duration_seconds",
			Help:    "Record store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)
)

// RecordStoreOperation records the duration of a record store operation
func RecordStoreOperation(operation string, table string, startTime time.Time) {
	StoreOperationDuration.WithLabelValues(operation, table).Observe(time.Since(startTime).Seconds())
}
