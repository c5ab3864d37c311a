// Package pipelineerr defines the error taxonomy shared across the
// schema registry, lineage store, and processing pipeline. Each kind is
// a distinct type so callers can dispatch on it with errors.As instead
// of matching on message text.
package pipelineerr

import "fmt"

// ValidationError reports bad parameters, bad input shape, a schema
// constraint violation, or a reference to a nonexistent record.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CycleError reports that a cycle would be introduced by the attempted
// reference or schema dependency update. Path is the cycle as a
// human-readable chain, e.g. "C -> A -> B -> C".
type CycleError struct {
	Path string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", e.Path)
}

// NewCycle builds a CycleError from a path string.
func NewCycle(path string) *CycleError {
	return &CycleError{Path: path}
}

// ConflictError reports an attempt to create an entity that already
// exists.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// NewConflict builds a ConflictError with a formatted message.
func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a lookup of a missing entity.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Message)
}

// NewNotFound builds a NotFoundError with a formatted message.
func NewNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ProcessingStage identifies which stage raised a ProcessingError.
type ProcessingStage string

const (
	StagePII        ProcessingStage = "pii"
	StageSummarizer ProcessingStage = "summarizer"
	StageEmbedder   ProcessingStage = "embedder"
	StageClusterer  ProcessingStage = "clusterer"
)

// ProcessingError is a document-scoped failure in a stage. It never
// propagates past the failing document; callers record it as a step
// and continue with the rest of the batch.
type ProcessingError struct {
	Stage   ProcessingStage
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processing[%s]: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("processing[%s]: %s", e.Stage, e.Message)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// NewProcessing builds a ProcessingError for the given stage.
func NewProcessing(stage ProcessingStage, cause error, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Stage: stage, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IndexingError reports a vector-index communication failure or a
// partial upsert.
type IndexingError struct {
	Message string
	Cause   error
}

func (e *IndexingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("indexing: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("indexing: %s", e.Message)
}

func (e *IndexingError) Unwrap() error { return e.Cause }

// NewIndexing builds an IndexingError with a formatted message.
func NewIndexing(cause error, format string, args ...interface{}) *IndexingError {
	return &IndexingError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ResourceError reports a backend connection, timeout, or quota
// exhaustion failure.
type ResourceError struct {
	Message string
	Cause   error
}

func (e *ResourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resource: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("resource: %s", e.Message)
}

func (e *ResourceError) Unwrap() error { return e.Cause }

// NewResource builds a ResourceError with a formatted message.
func NewResource(cause error, format string, args ...interface{}) *ResourceError {
	return &ResourceError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// PipelineError is a stage-scoped fatal error wrapping the underlying
// cause and naming the stage that raised it. Unlike ProcessingError it
// aborts the run.
type PipelineError struct {
	Stage   string
	Cause   error
	Message string
}

func (e *PipelineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipeline[%s]: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("pipeline[%s]: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// Wrap builds a PipelineError naming the stage that failed.
func Wrap(stage string, cause error) *PipelineError {
	return &PipelineError{Stage: stage, Cause: cause}
}

// Wrapf builds a PipelineError with an additional message.
func Wrapf(stage string, cause error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Stage: stage, Cause: cause, Message: fmt.Sprintf(format, args...)}
}
