package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.DocumentsProcessed.WithLabelValues("Embedder").Inc()
	m.DocumentsSkipped.WithLabelValues("PII").Inc()
	m.DocumentsErrored.WithLabelValues("Indexer").Inc()
	m.BatchDuration.WithLabelValues("Embedder").Observe(0.5)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["pipeline_documents_processed_total"])
	assert.True(t, names["pipeline_documents_skipped_total"])
	assert.True(t, names["pipeline_documents_errored_total"])
	assert.True(t, names["pipeline_batch_duration_seconds"])
}

func TestMetrics_DocumentsProcessed_CountsPerStageLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.DocumentsProcessed.WithLabelValues("Embedder").Inc()
	m.DocumentsProcessed.WithLabelValues("Embedder").Inc()
	m.DocumentsProcessed.WithLabelValues("Indexer").Inc()

	var metric dto.Metric
	require.NoError(t, m.DocumentsProcessed.WithLabelValues("Embedder").Write(&metric))
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
}
