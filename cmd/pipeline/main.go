// Command pipeline is the ingestion pipeline's entrypoint: it wires
// configuration, logging, the schema registry, the lineage store and
// cache, the model/vector-index HTTP clients, and the seven processing
// stages into one Orchestrator, then hands the wiring to cli.Execute.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/davidleathers113/indexforge-sub000/cache"
	"github.com/davidleathers113/indexforge-sub000/cli"
	"github.com/davidleathers113/indexforge-sub000/common"
	"github.com/davidleathers113/indexforge-sub000/config"
	"github.com/davidleathers113/indexforge-sub000/lineage"
	"github.com/davidleathers113/indexforge-sub000/modelclient"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/pipeline"
	"github.com/davidleathers113/indexforge-sub000/pipeline/stages"
	"github.com/davidleathers113/indexforge-sub000/schema"
	"github.com/davidleathers113/indexforge-sub000/vectorindex"
)

func main() {
	os.Exit(cli.Execute(run))
}

// run resolves the full dependency graph for one pipeline invocation
// from cfg and drives it to completion. Every dependency is
// constructed fresh per run rather than held across invocations: the
// command is one-shot, not a long-lived service.
func run(ctx context.Context, cfg config.PipelineConfig) (pipeline.Summary, error) {
	logger, closeLog, err := newRunLogger(cfg.LogDir)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("set up logging: %w", err)
	}
	defer closeLog()

	schemaStorage, err := schema.NewFileStorage(cfg.SchemaDir)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("open schema storage: %w", err)
	}
	registry := schema.NewRegistry(schemaStorage, 0, 0)
	if cfg.SchemaBoltPath != "" {
		mirror, err := schema.OpenBoltMirror(cfg.SchemaBoltPath)
		if err != nil {
			logger.WithError(err).Warn("schema bolt mirror unavailable, falling back to file storage only")
		} else {
			defer mirror.Close()
			registry = registry.WithBoltMirror(mirror)
		}
	}
	activeSchemas, err := registry.List(nil, false)
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("list active schemas: %w", err)
	}
	logger.WithField("schemas", len(activeSchemas)).Info("schema registry ready")

	var backend cache.Backend
	redisBackend, err := cache.NewRedisBackend(ctx, cfg.CacheHost, cfg.CachePort, "", 0)
	if err != nil {
		logger.WithError(err).Warn("redis cache unavailable, falling back to in-memory cache")
		backend = cache.NewMemoryBackend(10000)
	} else {
		backend = redisBackend
	}
	payloadCache := cache.NewLineageCache(backend, cfg.CacheTTL)
	lineageMgr := lineage.NewManager(payloadCache)

	steps := observability.NewStepStore(1000)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	models := modelclient.New(cfg.ModelURL, 30*time.Second)
	index := vectorindex.New(cfg.IndexURL, 30*time.Second)

	stageList := []stages.Stage{
		stages.NewLoader(cfg.ExportDir, logger),
		stages.NewDeduplicator(),
		stages.NewPIIStage(stages.NewDetector(nil), cfg.RedactPII, steps),
		stages.NewSummarizer(models, cfg.SummarizerModel, 512, 64, cfg.SummaryMinLength, cfg.SummaryMaxLength, steps),
		stages.NewEmbedder(models, cfg.EmbeddingModel, 512, 64, steps),
		stages.NewClusterer(cfg.ClusterCount, cfg.MinClusterSize, 42, steps),
		stages.NewIndexer(index, cfg.ClassName, 3, steps),
	}
	if !cfg.DetectPII {
		stageList = removeStage(stageList, "PII")
	}
	if cfg.NoDedup {
		stageList = removeStage(stageList, "Deduplicator")
	}

	orch := pipeline.New(cfg, stageList, lineageMgr, steps, metrics, logger)
	return orch.Run(ctx)
}

// removeStage drops the named stage from the list, used when its
// owning bool flag (--detect-pii=false, --no-dedup) disables it
// entirely rather than merely excluding it from --steps.
func removeStage(list []stages.Stage, name string) []stages.Stage {
	out := make([]stages.Stage, 0, len(list))
	for _, s := range list {
		if s.Name() == name {
			continue
		}
		out = append(out, s)
	}
	return out
}

func newRunLogger(logDir string) (*common.ContextLogger, func(), error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(logDir, "pipeline.json")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	common.Logger.SetOutput(io.MultiWriter(&common.OutputSplitter{}, f))
	common.Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	logger := common.ServiceLogger("pipeline", common.PipelineVersion)
	return logger, func() { f.Close() }, nil
}
