package paging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded in listpager_fetches_total.
const (
	outcomeStarted            = "started"
	outcomeSuperseded         = "superseded"
	outcomeApplied            = "applied"
	outcomeFailed             = "failed"
	outcomeDiscarded          = "discarded"
	outcomeSessionInvalidated = "session_invalidated"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listpager_fetches_total",
		Help: "Page fetches by screen, kind and outcome",
	}, []string{"screen", "kind", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listpager_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by screen and kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"screen", "kind"})

	intentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listpager_intents_rejected_total",
		Help: "Intents rejected without starting a fetch, by screen and intent",
	}, []string{"screen", "intent"})
)
