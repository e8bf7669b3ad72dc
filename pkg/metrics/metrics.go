package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Webhook pipeline metrics
	WebhooksReceived *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Notification metrics
	NotificationsDispatched *prometheus.CounterVec
	NotificationsSkipped    *prometheus.CounterVec

	// Outbound API metrics
	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhooks_received_total",
			Help:      "Total number of webhook deliveries by event type and outcome",
		}, []string{"event_type", "outcome"}),
		WebhookLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_processing_duration_seconds",
			Help:      "Time spent processing a webhook delivery end to end",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event_type"}),
		NotificationsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of notifications dispatched by final status",
		}, []string{"event_type", "status"}),
		NotificationsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_skipped_total",
			Help:      "Notifications not dispatched, by reason (disabled, no_trigger, no_owner)",
		}, []string{"event_type", "reason"}),
		UpstreamCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_calls_total",
			Help:      "Outbound Airmeet/DevRev API calls by service, operation and status",
		}, []string{"service", "operation", "status"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of outbound Airmeet/DevRev API calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service", "operation"}),
	}
}
