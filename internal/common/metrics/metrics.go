// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsEnriched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_enriched_total",
			Help: "Total number of scored rows enriched, by opportunity type",
		},
		[]string{"opportunity_type"},
	)

	NarrativeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_narrative_failures_total",
			Help: "Narrative generations that degraded to a placeholder",
		},
		[]string{"use_case"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_store_errors_total",
			Help: "Record store lookup failures, by lookup kind",
		},
		[]string{"lookup"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intents_classified_total",
			Help: "Chat turns classified, by resulting intent",
		},
		[]string{"intent"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_request_duration_seconds",
			Help: "Duration of pipeline operations in seconds",
		},
		[]string{"operation"},
	)

	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "genai_completion_duration_seconds",
			Help: "Latency of text-generation calls in seconds",
		},
		[]string{"use_case"},
	)
)
