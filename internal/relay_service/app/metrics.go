package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dispatch_total",
			Help:      "Total voice and SMS send attempts.",
		},
		[]string{"channel", "outcome"}, // outcome: "success", "api_error", "fault"
	)

	dispatchEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "dispatch_events_published_total",
			Help:      "Dispatch events handed to the message broker.",
		},
		[]string{"channel", "status"},
	)
)
