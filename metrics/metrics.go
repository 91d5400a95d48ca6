// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts pipeline runs by terminal status (done, error, idle).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs by terminal status",
		},
		[]string{"mode", "status"},
	)

	// ScrapedTotal counts file records the crawler has discovered.
	ScrapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "scraped_records_total",
			Help:      "Total number of file records discovered by the crawler",
		},
	)

	// EnrichedTotal counts records written by the enrich pool.
	EnrichedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "enriched_records_total",
			Help:      "Total number of records updated with provider metadata",
		},
	)

	// IndexedTotal counts documents upserted into the search index.
	IndexedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "indexed_documents_total",
			Help:      "Total number of documents upserted into the search index",
		},
	)

	// ErrorsTotal counts recoverable errors by the component and kind that
	// hit them (batch upsert failure, fetch failure, provider failure, ...).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "errors_total",
			Help:      "Total number of recoverable component errors",
		},
		[]string{"component", "kind"},
	)

	// PrunedTotal counts stale rows removed during incremental pruning.
	PrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "romarchive",
			Name:      "pruned_records_total",
			Help:      "Total number of stale catalog rows deleted during incremental pruning",
		},
	)

	// PipelineRunning reports whether a run is currently in progress.
	PipelineRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "romarchive",
			Name:      "pipeline_running",
			Help:      "1 if a pipeline run is currently in progress, 0 otherwise",
		},
	)
)

// RecordError increments the error counter for a component/kind pair.
func RecordError(component, kind string) {
	ErrorsTotal.WithLabelValues(component, kind).Inc()
}

// RecordRunFinished increments the run counter for a completed run.
func RecordRunFinished(mode, status string) {
	RunsTotal.WithLabelValues(mode, status).Inc()
}

// Handler returns the HTTP handler that exposes the registered collectors
// in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
