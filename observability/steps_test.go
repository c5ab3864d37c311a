package observability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStepStore_RecordAndHistory(t *testing.T) {
	s := NewStepStore(10)
	id := uuid.New()

	s.Record(id, Step{StepName: "Embedder", Status: StatusSuccess})
	s.Record(id, Step{StepName: "Indexer", Status: StatusSuccess})

	history := s.History(id)
	assert.Len(t, history, 2)
	assert.Equal(t, "Embedder", history[0].StepName)
	assert.Equal(t, "Indexer", history[1].StepName)
}

func TestStepStore_History_UnknownDocumentIsEmpty(t *testing.T) {
	s := NewStepStore(10)
	assert.Empty(t, s.History(uuid.New()))
}

func TestStepStore_EvictsOldestDocumentAtCapacity(t *testing.T) {
	s := NewStepStore(2)
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	s.Record(first, Step{StepName: "Loader", Status: StatusSuccess})
	s.Record(second, Step{StepName: "Loader", Status: StatusSuccess})
	s.Record(third, Step{StepName: "Loader", Status: StatusSuccess})

	assert.Empty(t, s.History(first), "oldest document should have been evicted")
	assert.NotEmpty(t, s.History(third))
}

func TestStepStore_ZeroMaxDocumentsDefaultsTo1000(t *testing.T) {
	s := NewStepStore(0)
	assert.Equal(t, 1000, s.maxDocuments)
}

func TestStepStore_Stats_ComputesRatesAcrossAllDocuments(t *testing.T) {
	s := NewStepStore(10)
	a, b := uuid.New(), uuid.New()

	s.Record(a, Step{StepName: "PII", Status: StatusSuccess})
	s.Record(a, Step{StepName: "Embedder", Status: StatusError})
	s.Record(b, Step{StepName: "PII", Status: StatusWarning})
	s.Record(b, Step{StepName: "Embedder", Status: StatusSuccess})

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.ByStatus[StatusError])
	assert.Equal(t, 1, stats.ByStatus[StatusWarning])
	assert.Equal(t, 2, stats.ByStatus[StatusSuccess])
	assert.InDelta(t, 0.25, stats.ErrorRate, 0.0001)
	assert.InDelta(t, 0.25, stats.WarningRate, 0.0001)
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusSuccess, true},
		{StatusWarning, true},
		{StatusError, true},
		{StatusFailed, true},
		{StatusSkipped, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Terminal())
		})
	}
}
