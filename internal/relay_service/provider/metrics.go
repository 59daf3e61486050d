package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of HTTP requests to the call provider.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	providerRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "provider_requests_total",
			Help:      "Total provider requests by outcome.",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, api_error, http_error, transport_error, decode_error
	)

	outgoingPhoneLookupsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "outgoing_phone_lookups_total",
			Help:      "Default outgoing phone resolutions that reached the provider.",
		},
		[]string{"result"}, // result: phone, duty
	)
)
