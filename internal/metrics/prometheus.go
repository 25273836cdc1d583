package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebhookEventsTotal tracks processed webhook events by kind and outcome
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of webhook events received, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// DuplicateEventsTotal tracks terminal events re-delivered with the same target state
	DuplicateEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicate_events_total",
			Help: "Total number of duplicate terminal event deliveries treated as no-ops",
		},
	)

	// TerminalConflictsTotal tracks conflicting terminal events ignored under first-write-wins
	TerminalConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_terminal_conflicts_total",
			Help: "Total number of conflicting terminal events ignored",
		},
	)

	// UnmatchedEventsTotal tracks events that resolved to no local record
	UnmatchedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_unmatched_events_total",
			Help: "Total number of verified events that matched no local record",
		},
	)

	// SessionsCreatedTotal tracks provisioned payment sessions
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_sessions_created_total",
			Help: "Total number of payment sessions provisioned",
		},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(duration)
	}
}
