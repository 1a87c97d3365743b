package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of fulfillment requests by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_request_duration_seconds",
			Help:    "Duration of fulfillment request handling in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"intent"},
	)

	QuotesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotes_generated_total",
			Help: "Total number of quotes generated by asset type",
		},
		[]string{"asset_type"},
	)
)
