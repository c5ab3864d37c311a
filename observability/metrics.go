package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the per-stage Prometheus collectors for a pipeline run.
// A single Metrics instance is constructed in cmd/pipeline and passed to
// the orchestrator, which observes BatchDuration and adds to
// DocumentsProcessed under each stage's name label; stage constructors
// do not receive it. DocumentsSkipped and DocumentsErrored are
// registered but nothing in this module increments them.
type Metrics struct {
	DocumentsProcessed *prometheus.CounterVec
	DocumentsSkipped   *prometheus.CounterVec
	DocumentsErrored   *prometheus.CounterVec
	BatchDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the collector set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "documents_processed_total",
			Help:      "Documents that completed a stage successfully.",
		}, []string{"stage"}),
		DocumentsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "documents_skipped_total",
			Help:      "Documents skipped by a stage under its failure policy.",
		}, []string{"stage"}),
		DocumentsErrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "documents_errored_total",
			Help:      "Documents that failed a stage.",
		}, []string{"stage"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of one stage processing one batch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(m.DocumentsProcessed, m.DocumentsSkipped, m.DocumentsErrored, m.BatchDuration)
	return m
}
