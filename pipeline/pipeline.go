// Package pipeline wires the seven processing stages (spec §4.4) into
// one ordered run: resolve which stages config.PipelineConfig.Steps
// enables, create a lineage record for every newly loaded document,
// batch documents to BatchSize, and check for cancellation at batch
// boundaries, grounded on the teacher's worker-pool-driven job loop
// generalized from an unbounded queue consumer to a fixed, ordered
// stage sequence over a finite document set.
package pipeline

import (
	"context"
	"time"

	"github.com/davidleathers113/indexforge-sub000/common"
	"github.com/davidleathers113/indexforge-sub000/config"
	"github.com/davidleathers113/indexforge-sub000/document"
	"github.com/davidleathers113/indexforge-sub000/lineage"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/pipeline/stages"
	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// stageConfigNames maps the canonical stage name (as returned by
// stages.Stage.Name()) to the config.Stage enum value that gates it,
// so the orchestrator can filter a fixed stage list down to the
// subset --steps selected.
var stageConfigNames = map[string]config.Stage{
	"Loader":       config.StageLoad,
	"Deduplicator": config.StageDeduplicate,
	"PII":          config.StagePII,
	"Summarizer":   config.StageSummarize,
	"Embedder":     config.StageEmbed,
	"Clusterer":    config.StageCluster,
	"Indexer":      config.StageIndex,
}

// Summary is the end-of-run report handed back to the CLI.
type Summary struct {
	Loaded    int
	Processed int
	Batches   int
	Health    observability.Report
}

// Orchestrator drives one pipeline run over a fixed, ordered stage
// list. Stages is expected in the canonical order named by spec §4.4:
// Loader, Deduplicator, PII, Summarizer, Embedder, Clusterer, Indexer.
type Orchestrator struct {
	cfg     config.PipelineConfig
	stages  []stages.Stage
	lineage *lineage.Manager
	steps   *observability.StepStore
	metrics *observability.Metrics
	logger  *common.ContextLogger
}

// New builds an Orchestrator. lineageMgr receives a Create call for
// every document the Loader stage produces, right after loading and
// before any other stage runs, matching spec §3's "a lineage is
// created at first load".
func New(cfg config.PipelineConfig, allStages []stages.Stage, lineageMgr *lineage.Manager, steps *observability.StepStore, metrics *observability.Metrics, logger *common.ContextLogger) *Orchestrator {
	return &Orchestrator{cfg: cfg, stages: allStages, lineage: lineageMgr, steps: steps, metrics: metrics, logger: logger}
}

func (o *Orchestrator) enabled(name string) bool {
	want, ok := stageConfigNames[name]
	if !ok {
		return true
	}
	for _, s := range o.cfg.Steps {
		if s == want {
			return true
		}
	}
	return false
}

// Run executes the configured stage sequence over every document the
// Loader produces, in batches of cfg.BatchSize, stopping at the next
// batch boundary if ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	var loader stages.Stage
	var rest []stages.Stage
	for _, s := range o.stages {
		if s.Name() == "Loader" {
			loader = s
			continue
		}
		rest = append(rest, s)
	}

	var docs []*document.Document
	if loader != nil && o.enabled("Loader") {
		loaded, err := o.runStage(ctx, loader, nil)
		if err != nil {
			return summary, err
		}
		docs = loaded
	}
	summary.Loaded = len(docs)

	for _, doc := range docs {
		o.recordLineage(doc)
	}

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(docs)
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(docs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return summary, pipelineerr.Wrapf("pipeline", err, "cancelled after %d of %d documents", summary.Processed, summary.Loaded)
		}

		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		for _, s := range rest {
			if !o.enabled(s.Name()) {
				continue
			}
			out, err := o.runStage(ctx, s, batch)
			if err != nil {
				return summary, err
			}
			batch = out
		}

		summary.Processed += len(batch)
		summary.Batches++
	}

	if o.steps != nil {
		summary.Health = observability.NewHealthChecker(o.steps, observability.DefaultThresholds()).Check()
	}
	return summary, nil
}

// runStage calls one stage, timing it into BatchDuration and wrapping
// any returned error as a stage-scoped PipelineError that aborts the
// run (document-scoped failures are handled inside the stage itself
// via StepRecorder and never reach here).
func (o *Orchestrator) runStage(ctx context.Context, s stages.Stage, batch []*document.Document) ([]*document.Document, error) {
	start := time.Now()
	out, err := s.Process(ctx, batch)
	duration := time.Since(start)

	if o.metrics != nil {
		o.metrics.BatchDuration.WithLabelValues(s.Name()).Observe(duration.Seconds())
	}
	if err != nil {
		if o.logger != nil {
			o.logger.WithFields(map[string]interface{}{"stage": s.Name(), "batch_size": len(batch)}).WithError(err).Error("stage failed")
		}
		return nil, pipelineerr.Wrapf(s.Name(), err, "stage failed on batch of %d documents", len(batch))
	}
	if o.metrics != nil {
		o.metrics.DocumentsProcessed.WithLabelValues(s.Name()).Add(float64(len(out)))
	}
	if o.logger != nil {
		o.logger.WithFields(map[string]interface{}{"stage": s.Name(), "batch_size": len(out), "duration_ms": duration.Milliseconds()}).Debug("stage completed")
	}
	return out, nil
}

// recordLineage creates the initial lineage record for a freshly loaded
// document. A conflict (the same id already has a lineage, e.g. a
// rerun over the same export directory) is logged and skipped rather
// than aborting the run: lineage is an enrichment of the load, not a
// precondition for later stages.
func (o *Orchestrator) recordLineage(doc *document.Document) {
	if o.lineage == nil {
		return
	}
	src := &lineage.SourceInfo{
		System:   "loader",
		SourceID: doc.Metadata.Source,
		Location: doc.Metadata.Path,
	}
	if _, err := o.lineage.Create(doc.ID, src, nil); err != nil {
		if o.logger != nil {
			o.logger.WithFields(map[string]interface{}{"document_id": doc.ID.String()}).WithError(err).Warn("lineage creation skipped")
		}
	}
}
