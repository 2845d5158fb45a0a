package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inboundRequestsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "webhook_gateway",
		Name:      "inbound_requests_total",
		Help:      "Total inbound webhook requests by outcome.",
	},
	[]string{"outcome"}, // "accepted", "rejected_not_found", "rejected_unauthorized", "rejected_bad_request", "error"
)
