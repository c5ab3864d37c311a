package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers113/indexforge-sub000/config"
	"github.com/davidleathers113/indexforge-sub000/observability"
	"github.com/davidleathers113/indexforge-sub000/pipeline"
)

func TestNewCommand_DefaultFlagValues(t *testing.T) {
	cmd := NewCommand(func(context.Context, config.PipelineConfig) (pipeline.Summary, error) {
		return pipeline.Summary{}, nil
	})

	batchSize, err := cmd.Flags().GetInt("batch-size")
	require.NoError(t, err)
	assert.Equal(t, 100, batchSize)

	modelURL, err := cmd.Flags().GetString("model-url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", modelURL)

	schemaBoltPath, err := cmd.Flags().GetString("schema-bolt-path")
	require.NoError(t, err)
	assert.Equal(t, "", schemaBoltPath)
}

func TestCommand_Execute_SuccessPrintsSummary(t *testing.T) {
	dir := t.TempDir()
	var gotCfg config.PipelineConfig

	cmd := NewCommand(func(_ context.Context, cfg config.PipelineConfig) (pipeline.Summary, error) {
		gotCfg = cfg
		return pipeline.Summary{
			Loaded: 3, Processed: 3, Batches: 1,
			Health: observability.Report{Status: observability.HealthHealthy},
		}, nil
	})

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{dir, "--batch-size", "50"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "processed 3 of 3 documents")
	assert.Contains(t, out.String(), "healthy")
	assert.Equal(t, dir, gotCfg.ExportDir)
	assert.Equal(t, 50, gotCfg.BatchSize)
}

func TestCommand_Execute_ValidationFailurePropagates(t *testing.T) {
	cmd := NewCommand(func(context.Context, config.PipelineConfig) (pipeline.Summary, error) {
		t.Fatal("run should not be called when validation fails")
		return pipeline.Summary{}, nil
	})

	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/tmp/export", "--batch-size", "-1"})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestCommand_Execute_RunnerErrorPropagates(t *testing.T) {
	cmd := NewCommand(func(context.Context, config.PipelineConfig) (pipeline.Summary, error) {
		return pipeline.Summary{}, errors.New("stage failed")
	})

	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	assert.Error(t, err)
}

func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	original := os.Args
	os.Args = append([]string{"pipeline"}, args...)
	defer func() { os.Args = original }()
	fn()
}

func TestExecute_ReturnsOneOnError(t *testing.T) {
	withArgs(t, []string{t.TempDir()}, func() {
		code := Execute(func(context.Context, config.PipelineConfig) (pipeline.Summary, error) {
			return pipeline.Summary{}, errors.New("boom")
		})
		assert.Equal(t, 1, code)
	})
}

func TestExecute_ReturnsZeroOnSuccess(t *testing.T) {
	withArgs(t, []string{t.TempDir()}, func() {
		code := Execute(func(context.Context, config.PipelineConfig) (pipeline.Summary, error) {
			return pipeline.Summary{Health: observability.Report{Status: observability.HealthHealthy}}, nil
		})
		assert.Equal(t, 0, code)
	})
}

func TestCommand_Execute_StepsFlagOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	var gotCfg config.PipelineConfig

	cmd := NewCommand(func(_ context.Context, cfg config.PipelineConfig) (pipeline.Summary, error) {
		gotCfg = cfg
		return pipeline.Summary{Health: observability.Report{Status: observability.HealthHealthy}}, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--steps", "Load,Embed"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []config.Stage{config.StageLoad, config.StageEmbed}, gotCfg.Steps)
}
