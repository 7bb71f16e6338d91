// Package metrics registers the service's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal counts dispatch runs by outcome: sent, skipped.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_dispatches_total",
			Help: "Event dispatch runs by outcome",
		},
		[]string{"outcome"},
	)

	// DeliveriesTotal counts per-destination delivery results: ok, failed.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_deliveries_total",
			Help: "Per-destination Telegram deliveries by result",
		},
		[]string{"result"},
	)

	// FallbacksTotal counts plain-text resends after a MarkdownV2 rejection.
	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_fallbacks_total",
			Help: "Plain-text resends after MarkdownV2 rejection",
		},
	)

	// WebhookRequestsTotal counts inbound webhook requests by outcome:
	// unauthorized, throttled, ignored, sent, error.
	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Inbound webhook requests by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordDelivery records one per-destination delivery result.
func RecordDelivery(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	DeliveriesTotal.WithLabelValues(result).Inc()
}
