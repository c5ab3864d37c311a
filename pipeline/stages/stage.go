// Package stages implements the seven processing stages of spec §4.4:
// Loader, Deduplicator, PII, Summarizer, Embedder, Clusterer, Indexer.
// Every stage implements the single Stage capability interface (Design
// Note §9: "each stage implements a single process(batch, ctx)
// capability; the orchestrator knows nothing about internals").
package stages

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/observability"
)

// Stage is the shared capability contract every processing stage
// implements: consume a batch, return a batch, never panic on a single
// bad document.
type Stage interface {
	Name() string
	Process(ctx context.Context, batch []*document.Document) ([]*document.Document, error)
}

// StepRecorder is the narrow observability dependency a stage needs to
// append processing-step history, declared as an interface so stage
// tests can substitute a fake.
type StepRecorder interface {
	Record(docID uuid.UUID, step observability.Step)
}

// recordStep is a small helper shared by every stage to fill in the
// timestamp and append to the recorder.
func recordStep(rec StepRecorder, docID uuid.UUID, name string, status observability.Status, details map[string]interface{}, metrics map[string]float64, errMsg string) {
	rec.Record(docID, observability.Step{
		StepName:  name,
		Status:    status,
		Details:   details,
		Metrics:   metrics,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}
