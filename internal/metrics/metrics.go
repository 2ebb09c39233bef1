package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rakshaneeti_recommendations_total",
			Help: "Total number of recommendations served",
		},
		[]string{"strategy", "outcome"},
	)

	LookupFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rakshaneeti_lookup_fallbacks_total",
			Help: "Total number of learned lookups answered by the direct filter instead",
		},
	)

	Translations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rakshaneeti_translations_total",
			Help: "Total number of translation requests",
		},
		[]string{"language", "outcome"},
	)

	Transcriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rakshaneeti_transcriptions_total",
			Help: "Total number of speech transcription requests",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rakshaneeti_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)

const (
	OutcomeMatched     = "matched"
	OutcomeApproximate = "approximate"
	OutcomeEmpty       = "empty"
	OutcomeOK          = "ok"
	OutcomeCached      = "cached"
	OutcomeFailed      = "failed"
)
