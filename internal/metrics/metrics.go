// Package metrics provides Prometheus metrics for blazewatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "blazewatch"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// IngestRejectedTotal counts payloads refused at the ingestion boundary.
	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "ingest_rejected_total",
			Help:      "Total ingestion payloads rejected",
		},
		[]string{"kind", "reason"}, // reason: validation, rate_limited, decode
	)
)

// Performance metrics
var (
	// SamplesTotal counts ingested performance samples.
	SamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "performance",
			Name:      "samples_total",
			Help:      "Total performance samples ingested",
		},
	)

	// PerformanceAlertsTotal counts threshold alerts by metric and severity.
	PerformanceAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "performance",
			Name:      "alerts_total",
			Help:      "Total performance threshold alerts",
		},
		[]string{"metric", "severity"},
	)

	// PerformanceScore is the score of the current sample.
	PerformanceScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "performance",
			Name:      "score",
			Help:      "Performance score of the current sample (0-100)",
		},
	)
)

// Error metrics
var (
	// ErrorsTotal counts ingested error events.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "errors",
			Name:      "events_total",
			Help:      "Total error events ingested",
		},
		[]string{"type", "severity"},
	)

	// ReportFailures counts failed error reports.
	ReportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "errors",
			Name:      "report_failures_total",
			Help:      "Total error reports that failed to reach the sink",
		},
	)
)

// Behavior metrics
var (
	// EventsTotal counts tracked user events.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "behavior",
			Name:      "events_total",
			Help:      "Total user events tracked",
		},
		[]string{"type"},
	)

	// SessionsStarted counts started sessions.
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "behavior",
			Name:      "sessions_started_total",
			Help:      "Total user sessions started",
		},
	)
)

// Alert metrics
var (
	// NotificationsTotal counts notifications by outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notifications_total",
			Help:      "Total notifications by outcome",
		},
		[]string{"outcome"}, // triggered, disabled, silenced, cooldown, rate_limited
	)

	// WebhookFailures counts failed webhook deliveries.
	WebhookFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "webhook_failures_total",
			Help:      "Total webhook deliveries that failed",
		},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
