package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvConfig_GetString_PrefixedLookup(t *testing.T) {
	os.Setenv("TESTPFX_NAME", "value")
	defer os.Unsetenv("TESTPFX_NAME")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, "value", ec.GetString("NAME", "default"))
}

func TestEnvConfig_GetString_FallsBackToDefault(t *testing.T) {
	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, "default", ec.GetString("UNSET_KEY", "default"))
}

func TestEnvConfig_GetInt_ParsesValidInt(t *testing.T) {
	os.Setenv("TESTPFX_COUNT", "42")
	defer os.Unsetenv("TESTPFX_COUNT")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, 42, ec.GetInt("COUNT", 0))
}

func TestEnvConfig_GetInt_InvalidFallsBackToDefault(t *testing.T) {
	os.Setenv("TESTPFX_COUNT", "not-a-number")
	defer os.Unsetenv("TESTPFX_COUNT")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, 7, ec.GetInt("COUNT", 7))
}

func TestEnvConfig_GetDuration_BareIntegerIsSeconds(t *testing.T) {
	os.Setenv("TESTPFX_TTL", "30")
	defer os.Unsetenv("TESTPFX_TTL")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, 30*time.Second, ec.GetDuration("TTL", time.Hour))
}

func TestEnvConfig_GetDuration_GoDurationSyntax(t *testing.T) {
	os.Setenv("TESTPFX_TTL", "24h")
	defer os.Unsetenv("TESTPFX_TTL")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, 24*time.Hour, ec.GetDuration("TTL", time.Second))
}

func TestEnvConfig_GetStringSlice_SplitsAndTrims(t *testing.T) {
	os.Setenv("TESTPFX_STEPS", "Load, Deduplicate ,PII")
	defer os.Unsetenv("TESTPFX_STEPS")

	ec := NewEnvConfig("TESTPFX")
	assert.Equal(t, []string{"Load", "Deduplicate", "PII"}, ec.GetStringSlice("STEPS", nil))
}

func TestDefaultPipelineConfig_MatchesSpecDefaults(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, AllStages, cfg.Steps)
	assert.Equal(t, "http://localhost:8080", cfg.IndexURL)
	assert.Equal(t, "http://localhost:8000", cfg.ModelURL)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.True(t, cfg.DetectPII)
	assert.False(t, cfg.RedactPII)
}

func TestLoadFromEnv_OverridesDefaults(t *testing.T) {
	os.Setenv("PIPELINE_BATCH_SIZE", "250")
	os.Setenv("PIPELINE_MODEL_URL", "http://models.internal:9000")
	defer os.Unsetenv("PIPELINE_BATCH_SIZE")
	defer os.Unsetenv("PIPELINE_MODEL_URL")

	cfg := LoadFromEnv(DefaultPipelineConfig())
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "http://models.internal:9000", cfg.ModelURL)
}

func TestLoadFromEnv_StepsOverride(t *testing.T) {
	os.Setenv("PIPELINE_STEPS", "Load,Embed")
	defer os.Unsetenv("PIPELINE_STEPS")

	cfg := LoadFromEnv(DefaultPipelineConfig())
	assert.Equal(t, []Stage{StageLoad, StageEmbed}, cfg.Steps)
}

func TestValidator_RequireString_EmptyIsInvalid(t *testing.T) {
	v := NewValidator()
	v.RequireString("Field", "")
	assert.False(t, v.IsValid())
	assert.Contains(t, v.ErrorString(), "Field is required")
}

func TestValidator_RequirePositiveInt(t *testing.T) {
	v := NewValidator()
	v.RequirePositiveInt("Count", 0)
	assert.False(t, v.IsValid())
}

func TestValidator_RequireURL_RejectsBadScheme(t *testing.T) {
	v := NewValidator()
	v.RequireURL("URL", "ftp://example.com")
	assert.False(t, v.IsValid())
}

func TestValidator_RequireURL_RejectsDoubleSlashInPath(t *testing.T) {
	v := NewValidator()
	v.RequireURL("URL", "http://example.com//segment")
	assert.False(t, v.IsValid())
}

func TestValidator_RequireURL_AcceptsValidURL(t *testing.T) {
	v := NewValidator()
	v.RequireURL("URL", "http://example.com:8080/path")
	assert.True(t, v.IsValid())
}

func TestValidator_RequireOneOf_RejectsUnlisted(t *testing.T) {
	v := NewValidator()
	v.RequireOneOf("Field", "unknown", []string{"a", "b"})
	assert.False(t, v.IsValid())
}

func TestValidateConfig_RejectsMissingExportDir(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.CacheTTL = time.Second
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ExportDir")
}

func TestValidateConfig_RejectsUnknownStage(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.ExportDir = "/tmp/export"
	cfg.CacheTTL = time.Second
	cfg.Steps = []Stage{"NotAStage"}
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestValidateConfig_AcceptsWellFormedConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.ExportDir = "/tmp/export"
	err := ValidateConfig(cfg)
	assert.NoError(t, err)
}
