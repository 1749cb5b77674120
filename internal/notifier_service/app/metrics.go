package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boleto_notifier",
			Name:      "events_processed_total",
			Help:      "Total webhook events processed.",
		},
		[]string{"outcome"}, // ignored, no_boleto, no_contact, sent, dispatch_failed, resolve_error, dispatch_error
	)

	dispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boleto_notifier",
			Name:      "dispatches_total",
			Help:      "Total message submissions to the messaging provider.",
		},
		[]string{"provider_name", "status"},
	)

	pipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "boleto_notifier",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end duration of pipeline processing per event, whatever the outcome.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
