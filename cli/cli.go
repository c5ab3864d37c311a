// Package cli implements the pipeline's one-shot command line,
// grounded on the cobra root-command-plus-flags pattern from the
// example pack's linear-fuse CLI, paired with viper for optional YAML
// config-file support. The pipeline itself stays a single RunE, not a
// command tree: there is one operation (process an export directory),
// not a family of subcommands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/davidleathers113/indexforge-sub000/config"
	"github.com/davidleathers113/indexforge-sub000/pipeline"
)

// Runner executes one pipeline run against a resolved configuration.
// cmd/pipeline/main.go supplies the concrete implementation so this
// package never imports the stage or vector-index wiring directly.
type Runner func(ctx context.Context, cfg config.PipelineConfig) (pipeline.Summary, error)

var cfgFile string

// NewCommand builds the pipeline's command: a positional export
// directory plus every flag named in spec §6, layered flags >
// --config YAML file > PIPELINE_-prefixed environment > hard defaults.
func NewCommand(run Runner) *cobra.Command {
	defaults := config.DefaultPipelineConfig()
	defaultSteps := make([]string, 0, len(defaults.Steps))
	for _, s := range defaults.Steps {
		defaultSteps = append(defaultSteps, string(s))
	}

	cmd := &cobra.Command{
		Use:   "pipeline [export_dir]",
		Short: "Process an exported document set through the ingestion pipeline",
		Long: `pipeline loads documents from export_dir, runs them through
deduplication, PII detection, summarization, embedding, clustering, and
vector-index upload, and reports a processing summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, args, run)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")

	flags := cmd.Flags()
	flags.String("index-url", defaults.IndexURL, "vector index base URL")
	flags.String("class-name", defaults.ClassName, "vector index class/collection name")
	flags.String("model-url", defaults.ModelURL, "embedding/summarization model service base URL")
	flags.String("log-dir", defaults.LogDir, "directory for structured run logs")
	flags.Int("batch-size", defaults.BatchSize, "documents processed per batch")
	flags.String("cache-host", defaults.CacheHost, "lineage cache host")
	flags.Int("cache-port", defaults.CachePort, "lineage cache port")
	flags.Duration("cache-ttl", defaults.CacheTTL, "lineage cache entry TTL")
	flags.Bool("detect-pii", defaults.DetectPII, "run PII detection")
	flags.Bool("redact-pii", defaults.RedactPII, "redact detected PII in body/summary")
	flags.Bool("no-dedup", defaults.NoDedup, "skip the deduplication stage")
	flags.Int("summary-max-length", defaults.SummaryMaxLength, "maximum summary length in words")
	flags.Int("summary-min-length", defaults.SummaryMinLength, "minimum body length in words before summarization is skipped")
	flags.Int("cluster-count", defaults.ClusterCount, "maximum cluster count for the elbow search")
	flags.Int("min-cluster-size", defaults.MinClusterSize, "minimum documents per cluster")
	flags.String("schema-dir", defaults.SchemaDir, "directory holding schema definitions")
	flags.String("schema-bolt-path", defaults.SchemaBoltPath, "optional bbolt file for a fast schema lookup mirror")
	flags.String("embedding-model", defaults.EmbeddingModel, "embedding model name")
	flags.String("summarizer-model", defaults.SummarizerModel, "summarizer model name")
	flags.StringSlice("steps", defaultSteps, "comma-separated subset of stages to run")

	return cmd
}

// Execute runs the command against os.Args and returns the process
// exit code: 0 on success, 1 on a config, validation, or stage-scoped
// pipeline failure.
func Execute(run Runner) int {
	cmd := NewCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func runCommand(cmd *cobra.Command, args []string, run Runner) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := config.LoadFromEnv(config.DefaultPipelineConfig())
	cfg.ExportDir = args[0]

	applyOverrides(cmd.Flags(), v, &cfg)

	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	summary, err := run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "processed %d of %d documents across %d batches (health: %s)\n",
		summary.Processed, summary.Loaded, summary.Batches, summary.Health.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "log directory: %s\n", cfg.LogDir)
	return nil
}

// applyOverrides layers, for each field, an explicitly-set CLI flag
// over a --config file value over whatever cfg already holds (flag
// defaults, env, or hard defaults), in that priority order.
func applyOverrides(flags *pflag.FlagSet, v *viper.Viper, cfg *config.PipelineConfig) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		} else if v.IsSet(name) {
			*dst = v.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		} else if v.IsSet(name) {
			*dst = v.GetInt(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		} else if v.IsSet(name) {
			*dst = v.GetBool(name)
		}
	}

	str("index-url", &cfg.IndexURL)
	str("class-name", &cfg.ClassName)
	str("model-url", &cfg.ModelURL)
	str("log-dir", &cfg.LogDir)
	integer("batch-size", &cfg.BatchSize)
	str("cache-host", &cfg.CacheHost)
	integer("cache-port", &cfg.CachePort)
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL, _ = flags.GetDuration("cache-ttl")
	} else if v.IsSet("cache-ttl") {
		cfg.CacheTTL = v.GetDuration("cache-ttl")
	}
	boolean("detect-pii", &cfg.DetectPII)
	boolean("redact-pii", &cfg.RedactPII)
	boolean("no-dedup", &cfg.NoDedup)
	integer("summary-max-length", &cfg.SummaryMaxLength)
	integer("summary-min-length", &cfg.SummaryMinLength)
	integer("cluster-count", &cfg.ClusterCount)
	integer("min-cluster-size", &cfg.MinClusterSize)
	str("schema-dir", &cfg.SchemaDir)
	str("schema-bolt-path", &cfg.SchemaBoltPath)
	str("embedding-model", &cfg.EmbeddingModel)
	str("summarizer-model", &cfg.SummarizerModel)

	if flags.Changed("steps") {
		if names, err := flags.GetStringSlice("steps"); err == nil {
			cfg.Steps = stagesOf(names)
		}
	} else if v.IsSet("steps") {
		cfg.Steps = stagesOf(v.GetStringSlice("steps"))
	}
}

func stagesOf(names []string) []config.Stage {
	out := make([]config.Stage, 0, len(names))
	for _, n := range names {
		out = append(out, config.Stage(n))
	}
	return out
}
