// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks timeline entries appended, by author.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_entries_total",
			Help: "Total timeline entries appended",
		},
		[]string{"author"},
	)

	// SchedulingAttemptsTotal tracks widget submissions by outcome.
	SchedulingAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_attempts_total",
			Help: "Total scheduling widget submissions",
		},
		[]string{"outcome"},
	)

	// SlotConfirmationsTotal tracks slot confirmation attempts by outcome.
	SlotConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_confirmations_total",
			Help: "Total slot confirmation attempts",
		},
		[]string{"outcome"},
	)

	// QuickActionsTotal tracks quick availability checks by range.
	QuickActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quick_actions_total",
			Help: "Total quick availability checks",
		},
		[]string{"range", "outcome"},
	)

	// GatewayRequestDuration tracks outbound gateway call duration.
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Outbound gateway request duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"gateway", "status"},
	)

	// ActiveWidgets tracks currently active scheduling widgets.
	ActiveWidgets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduling_widgets_active",
			Help: "Number of currently active scheduling widgets",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGatewayCall records metrics for one outbound gateway call.
func RecordGatewayCall(gateway, status string, duration float64) {
	GatewayRequestDuration.WithLabelValues(gateway, status).Observe(duration)
}
