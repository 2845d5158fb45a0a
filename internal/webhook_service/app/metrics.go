package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatEventsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "chat_events_received_total",
			Help:      "Total chat events received from the bridge.",
		},
		[]string{"subject"},
	)

	deliveryAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "delivery_attempts_total",
			Help:      "Total outbound delivery attempts, including retries.",
		},
		[]string{"status"}, // "ok", "http_error", "transport_error"
	)

	deliveriesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "deliveries_total",
			Help:      "Total outbound deliveries by terminal outcome.",
		},
		[]string{"outcome"}, // "success", "failure", "aborted"
	)

	deliveryDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webhook_gateway",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of one delivery including retries and backoff.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	responsesRelayedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "responses_relayed_total",
			Help:      "Total webhook responses relayed back into chat rooms.",
		},
	)
)
