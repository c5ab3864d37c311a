// Package document defines the Document record that flows through the
// processing pipeline and its constituent content, metadata, embedding,
// and relationship sections.
package document

import (
	"time"

	"github.com/google/uuid"
)

// Content holds the text payload of a document.
type Content struct {
	Body    string `json:"body"`
	Summary string `json:"summary,omitempty"`
}

// Metadata carries descriptive fields about a document plus whatever
// enrichment stages append (pii_analysis, clustering, ...).
type Metadata struct {
	Title     string                 `json:"title"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Path      string                 `json:"path"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Embeddings holds the vector representation of a document.
type Embeddings struct {
	Body       []float32   `json:"body,omitempty"`
	Summary    []float32   `json:"summary,omitempty"`
	Chunks     [][]float32 `json:"chunks,omitempty"`
	Model      string      `json:"model,omitempty"`
	Version    string      `json:"version,omitempty"`
	Dimension  int         `json:"dimension,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Relationships holds the parent/reference links of a document.
type Relationships struct {
	ParentID     *uuid.UUID  `json:"parent_id,omitempty"`
	ReferenceIDs []uuid.UUID `json:"reference_ids,omitempty"`
}

// Document is the unit of work carried through every pipeline stage.
type Document struct {
	ID            uuid.UUID     `json:"id"`
	Content       Content       `json:"content"`
	Metadata      Metadata      `json:"metadata"`
	Embeddings    Embeddings    `json:"embeddings"`
	Relationships Relationships `json:"relationships"`
}

// New creates a document with a freshly generated ID and UTC timestamp.
func New(body string) *Document {
	return &Document{
		ID: uuid.New(),
		Content: Content{
			Body: body,
		},
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
		},
	}
}

const (
	// VersionFailed marks an embeddings record whose generation failed
	// entirely; see spec §4.4 Embedding.
	VersionFailed = "v1_failed"
)
