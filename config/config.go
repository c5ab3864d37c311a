// Package config loads and validates the pipeline's configuration from
// environment variables, generalizing the teacher's EnvConfig/Validator
// pair away from the EVE services' server/database/auth sections toward
// the single closed PipelineConfig record spec §6 calls for.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig reads PIPELINE_-prefixed environment variables with typed
// defaults, unchanged from the teacher's shape.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

// GetString retrieves a string value from environment with optional default.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// GetInt retrieves an integer value from environment with optional default.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value from environment with optional default.
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value, interpreting a bare integer as
// seconds and otherwise parsing Go duration syntax (e.g. "24h"). The
// --cache-ttl CLI flag is a pflag Duration and accepts Go duration
// syntax only; a bare number of seconds is not accepted there.
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// GetStringSlice retrieves a comma-separated string slice from environment.
func (ec *EnvConfig) GetStringSlice(key string, defaultValue []string) []string {
	fullKey := ec.buildKey(key)
	value := os.Getenv(fullKey)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// Stage is one of the canonical pipeline stage names accepted by --steps.
type Stage string

const (
	StageLoad        Stage = "Load"
	StageDeduplicate Stage = "Deduplicate"
	StagePII         Stage = "PII"
	StageSummarize   Stage = "Summarize"
	StageEmbed       Stage = "Embed"
	StageCluster     Stage = "Cluster"
	StageIndex       Stage = "Index"
)

// AllStages is the canonical stage order (spec §4.5).
var AllStages = []Stage{StageLoad, StageDeduplicate, StagePII, StageSummarize, StageEmbed, StageCluster, StageIndex}

// PipelineConfig is the closed configuration record for one pipeline
// run, populated from CLI flags (via cli.Command) layered over
// PIPELINE_-prefixed environment variables and hard defaults.
type PipelineConfig struct {
	ExportDir string
	Steps     []Stage

	IndexURL  string
	ClassName string
	ModelURL  string

	LogDir string

	BatchSize int

	CacheHost string
	CachePort int
	CacheTTL  time.Duration

	DetectPII bool
	RedactPII bool
	NoDedup   bool

	SummaryMaxLength int
	SummaryMinLength int

	ClusterCount   int
	MinClusterSize int

	SchemaDir      string
	SchemaBoltPath string

	EmbeddingModel  string
	SummarizerModel string
}

// DefaultPipelineConfig returns the spec's literal flag defaults before
// environment or CLI overrides are layered on.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Steps:            append([]Stage(nil), AllStages...),
		IndexURL:         "http://localhost:8080",
		ClassName:        "Document",
		ModelURL:         "http://localhost:8000",
		LogDir:           "logs",
		BatchSize:        100,
		CacheHost:        "localhost",
		CachePort:        6379,
		CacheTTL:         86400 * time.Second,
		DetectPII:        true,
		RedactPII:        false,
		SummaryMaxLength: 150,
		SummaryMinLength: 50,
		ClusterCount:     5,
		MinClusterSize:   3,
		SchemaDir:        "schemas",
		EmbeddingModel:   "text-embedding-3-small",
	}
}

// LoadFromEnv layers PIPELINE_-prefixed environment variables over base.
// CLI flag binding happens separately in cli.Command, which applies its
// own explicitly-set flags last so flags > env > defaults.
func LoadFromEnv(base PipelineConfig) PipelineConfig {
	env := NewEnvConfig("PIPELINE")

	base.IndexURL = env.GetString("INDEX_URL", base.IndexURL)
	base.ClassName = env.GetString("CLASS_NAME", base.ClassName)
	base.ModelURL = env.GetString("MODEL_URL", base.ModelURL)
	base.LogDir = env.GetString("LOG_DIR", base.LogDir)
	base.BatchSize = env.GetInt("BATCH_SIZE", base.BatchSize)
	base.CacheHost = env.GetString("CACHE_HOST", base.CacheHost)
	base.CachePort = env.GetInt("CACHE_PORT", base.CachePort)
	base.CacheTTL = env.GetDuration("CACHE_TTL", base.CacheTTL)
	base.DetectPII = env.GetBool("DETECT_PII", base.DetectPII)
	base.RedactPII = env.GetBool("REDACT_PII", base.RedactPII)
	base.NoDedup = env.GetBool("NO_DEDUP", base.NoDedup)
	base.SummaryMaxLength = env.GetInt("SUMMARY_MAX_LENGTH", base.SummaryMaxLength)
	base.SummaryMinLength = env.GetInt("SUMMARY_MIN_LENGTH", base.SummaryMinLength)
	base.ClusterCount = env.GetInt("CLUSTER_COUNT", base.ClusterCount)
	base.MinClusterSize = env.GetInt("MIN_CLUSTER_SIZE", base.MinClusterSize)
	base.SchemaDir = env.GetString("SCHEMA_DIR", base.SchemaDir)
	base.SchemaBoltPath = env.GetString("SCHEMA_BOLT_PATH", base.SchemaBoltPath)
	base.EmbeddingModel = env.GetString("EMBEDDING_MODEL", base.EmbeddingModel)
	base.SummarizerModel = env.GetString("SUMMARIZER_MODEL", base.SummarizerModel)

	if steps := env.GetStringSlice("STEPS", nil); steps != nil {
		base.Steps = stagesFrom(steps)
	}
	return base
}

func stagesFrom(names []string) []Stage {
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		stages = append(stages, Stage(n))
	}
	return stages
}

// Validator accumulates configuration validation errors, unchanged from
// the teacher's shape.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequireInt validates that an integer field is within [min, max].
func (v *Validator) RequireInt(field string, value, min, max int) {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
}

// RequirePositiveInt validates that an integer field is at least 1.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value < 1 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireURL validates scheme http/https, a non-empty host with no
// whitespace, and a path containing no "//" — the rule this spec
// mandates in place of the teacher's prefix-only check (Design Note §9
// open question on URL validation).
func (v *Validator) RequireURL(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}

	rest := value
	scheme := ""
	if idx := strings.Index(value, "://"); idx >= 0 {
		scheme = value[:idx]
		rest = value[idx+3:]
	}
	if scheme != "http" && scheme != "https" {
		v.errors = append(v.errors, fmt.Sprintf("%s must use scheme http or https", field))
		return
	}

	host := rest
	path := ""
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		host = rest[:idx]
		path = rest[idx:]
	}
	if host == "" || strings.ContainsAny(host, " \t\n") {
		v.errors = append(v.errors, fmt.Sprintf("%s must have a non-empty host with no whitespace", field))
	}
	if strings.Contains(path, "//") {
		v.errors = append(v.errors, fmt.Sprintf("%s path must not contain \"//\"", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []string {
	return v.errors
}

// ErrorString returns all validation errors joined into one string.
func (v *Validator) ErrorString() string {
	return strings.Join(v.errors, "; ")
}

// Validate runs validation and returns an error if invalid.
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

// ValidateConfig applies every PipelineConfig invariant from spec §6.
func ValidateConfig(cfg PipelineConfig) error {
	v := NewValidator()
	v.RequireString("ExportDir", cfg.ExportDir)
	v.RequireURL("IndexURL", cfg.IndexURL)
	v.RequireURL("ModelURL", cfg.ModelURL)
	v.RequirePositiveInt("BatchSize", cfg.BatchSize)
	v.RequireInt("CachePort", cfg.CachePort, 0, 65535)
	v.RequirePositiveInt("CacheTTL", int(cfg.CacheTTL.Seconds()))
	v.RequirePositiveInt("ClusterCount", cfg.ClusterCount)
	v.RequirePositiveInt("MinClusterSize", cfg.MinClusterSize)
	for _, s := range cfg.Steps {
		found := false
		for _, allowed := range AllStages {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			v.errors = append(v.errors, fmt.Sprintf("Steps contains unknown stage %q", s))
		}
	}
	return v.Validate()
}
