package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout and webhook activity.
type CheckoutMetrics struct {
	duration      *prometheus.HistogramVec
	ordersCreated *prometheus.CounterVec
	failures      *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which tests use.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Orders created successfully.",
	}, []string{"payment_method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts that did not produce an order.",
	}, []string{"reason"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Gateway webhook events by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, ordersCreated, failures, webhookEvents)
	return &CheckoutMetrics{
		duration:      duration,
		ordersCreated: ordersCreated,
		failures:      failures,
		webhookEvents: webhookEvents,
	}
}

// ObserveDuration records how long a checkout attempt took.
func (m *CheckoutMetrics) ObserveDuration(method string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(method)).Observe(d.Seconds())
}

// IncOrderCreated counts a committed order.
func (m *CheckoutMetrics) IncOrderCreated(method string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncFailure counts a failed checkout attempt.
func (m *CheckoutMetrics) IncFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncWebhookEvent counts a gateway webhook by outcome.
func (m *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
