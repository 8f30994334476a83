package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace"

// Metrics groups the collectors exported by the order core.
type Metrics struct {
	Transitions          *prometheus.CounterVec   // orders_transitions_total{from,to}
	Operations           *prometheus.CounterVec   // orders_operations_total{operation,outcome}
	GatewayRequests      *prometheus.CounterVec   // payment_gateway_requests_total{operation,outcome}
	GatewayDuration      *prometheus.HistogramVec // payment_gateway_request_duration_seconds{operation}
	Notifications        *prometheus.CounterVec   // notifications_deliveries_total{channel,outcome}
	NotificationsDropped prometheus.Counter
	WebhookEvents        *prometheus.CounterVec // payment_webhook_events_total{outcome}
}

// New builds the collectors and registers them on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "transitions_total",
			Help: "Order state transitions applied.",
		}, []string{"from", "to"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "operations_total",
			Help: "Order operations by outcome.",
		}, []string{"operation", "outcome"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payment_gateway", Name: "requests_total",
			Help: "Payment gateway calls by outcome.",
		}, []string{"operation", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "payment_gateway", Name: "request_duration_seconds",
			Help:    "Payment gateway call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notifications", Name: "deliveries_total",
			Help: "Notification deliveries per channel by outcome.",
		}, []string{"channel", "outcome"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notifications", Name: "dropped_total",
			Help: "Notifications dropped because the dispatch queue was full.",
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payment_webhook", Name: "events_total",
			Help: "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Transitions,
			m.Operations,
			m.GatewayRequests,
			m.GatewayDuration,
			m.Notifications,
			m.NotificationsDropped,
			m.WebhookEvents,
		)
	}
	return m
}

// Nop returns unregistered collectors, for tests and tools that do not export metrics.
func Nop() *Metrics {
	return New(nil)
}
