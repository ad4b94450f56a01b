package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"domain", "mode"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirror_prediction_duration_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"domain"},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_llm_calls_total",
			Help: "Total Anthropic API calls by extraction phase",
		},
		[]string{"phase"},
	)

	LLMRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_llm_retries_total",
			Help: "Total extraction retries after invalid or rejected responses",
		},
		[]string{"phase"},
	)

	EconSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_econ_snapshots_total",
			Help: "Economic snapshot reads by source",
		},
		[]string{"source"},
	)
)
