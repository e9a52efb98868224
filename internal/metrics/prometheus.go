package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AnalysesTotal counts analysis runs by terminal status.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doppel_analyses_total",
			Help: "Number of similarity analysis runs by status",
		},
		[]string{"status"},
	)

	// AnalysisDuration observes end-to-end analysis latency.
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doppel_analysis_duration_seconds",
			Help:    "End-to-end duration of similarity analysis runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// GroupsFound observes group counts per completed run.
	GroupsFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doppel_similarity_groups",
			Help:    "Similarity groups found per completed analysis",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// FunctionsIngested counts function records accepted from the stream.
	FunctionsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doppel_functions_ingested_total",
			Help: "Function records ingested from the Redis stream",
		},
	)

	// RecordsRejected counts stream records dropped without retry because
	// they could not be decoded or validated.
	RecordsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doppel_records_rejected_total",
			Help: "Function records rejected as malformed",
		},
	)

	// StreamDeadLettered counts stream messages moved to the dead letter queue.
	StreamDeadLettered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doppel_stream_dead_lettered_total",
			Help: "Stream messages moved to the dead letter queue",
		},
	)
)

// InitPrometheus registers all collectors with the default registry.
func InitPrometheus() {
	prometheus.MustRegister(
		AnalysesTotal,
		AnalysisDuration,
		GroupsFound,
		FunctionsIngested,
		RecordsRejected,
		StreamDeadLettered,
	)
}
