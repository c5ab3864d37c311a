package pipelineerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("bad field")

	withCause := NewValidation("schema %s rejected", "Document")
	withCause.Cause = cause
	assert.Equal(t, "validation: schema Document rejected: bad field", withCause.Error())
	assert.Equal(t, cause, withCause.Unwrap())

	bare := NewValidation("missing ref_schema")
	assert.Equal(t, "validation: missing ref_schema", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestCycleError_Message(t *testing.T) {
	err := NewCycle("C -> A -> B -> C")
	assert.Equal(t, "cycle detected: C -> A -> B -> C", err.Error())
}

func TestConflictError_Message(t *testing.T) {
	err := NewConflict("document %s already exists", "doc-1")
	assert.Equal(t, "conflict: document doc-1 already exists", err.Error())
}

func TestNotFoundError_Message(t *testing.T) {
	err := NewNotFound("schema %q", "Chunk")
	assert.Equal(t, `not found: schema "Chunk"`, err.Error())
}

func TestProcessingError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("model unavailable")
	err := NewProcessing(StageEmbedder, cause, "embed call failed")
	assert.Equal(t, "processing[embedder]: embed call failed: model unavailable", err.Error())
	assert.Equal(t, cause, err.Unwrap())

	noCause := NewProcessing(StagePII, nil, "no patterns configured")
	assert.Equal(t, "processing[pii]: no patterns configured", noCause.Error())
}

func TestIndexingError_Message(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewIndexing(cause, "upsert batch of %d", 10)
	assert.Equal(t, "indexing: upsert batch of 10: connection refused", err.Error())
}

func TestResourceError_Message(t *testing.T) {
	cause := errors.New("timeout")
	err := NewResource(cause, "open %s", "cache.db")
	assert.Equal(t, "resource: open cache.db: timeout", err.Error())
}

func TestPipelineError_WrapAndWrapf(t *testing.T) {
	cause := errors.New("stage exploded")

	wrapped := Wrap("Embedder", cause)
	assert.Equal(t, "pipeline[Embedder]: stage exploded", wrapped.Error())
	assert.Equal(t, cause, wrapped.Unwrap())

	wrappedf := Wrapf("Embedder", cause, "batch of %d documents", 5)
	assert.Equal(t, "pipeline[Embedder]: batch of 5 documents: stage exploded", wrappedf.Error())
}

func TestErrorsAs_DispatchesByType(t *testing.T) {
	var target *PipelineError
	err := error(Wrap("Indexer", errors.New("boom")))

	require.True(t, errors.As(err, &target))
	assert.Equal(t, "Indexer", target.Stage)

	var notValidation *ValidationError
	assert.False(t, errors.As(err, &notValidation))
}
