// Package lineage implements the document lineage store: per-document
// version history and relationship graph (parent/child, reference/
// referenced-by), with cycle rejection and append-only change history.
//
// Side-effect semantics for each change kind mirror the original
// lineage manager this module was distilled from: Referenced adds a
// symmetric referenced_by entry on every target and a Referenced change
// record on each of them; Dereferenced removes it symmetrically with no
// cycle check; delete detaches parent, outgoing references, and
// incoming referrers, in that order, before appending the terminal
// Deleted change.
package lineage

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChangeKind is the closed set of lineage mutation kinds.
type ChangeKind string

const (
	Created      ChangeKind = "created"
	Updated      ChangeKind = "updated"
	Deleted      ChangeKind = "deleted"
	Processed    ChangeKind = "processed"
	Referenced   ChangeKind = "referenced"
	Dereferenced ChangeKind = "dereferenced"
)

// SourceInfo records where a document came from.
type SourceInfo struct {
	System   string            `json:"system,omitempty"`
	SourceID string            `json:"source_id,omitempty"`
	Location string            `json:"location,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChangeRecord is one entry in a lineage's append-only history.
type ChangeRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	ChangeKind ChangeKind        `json:"change_kind"`
	Version    int               `json:"version"`
	SourceInfo *SourceInfo       `json:"source_info,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	RelatedIDs []string          `json:"related_ids,omitempty"`
}

// Record is the full lineage of a single document. Children/reference
// sets are stored as maps internally for O(1) membership, and rendered
// as sorted slices wherever a deterministic, serializable view is
// needed (Snapshot).
type Record struct {
	DocumentID      uuid.UUID
	CurrentVersion  int
	SourceInfo      *SourceInfo
	ParentID        *uuid.UUID
	ChildrenIDs     map[uuid.UUID]struct{}
	ReferenceIDs    map[uuid.UUID]struct{}
	ReferencedByIDs map[uuid.UUID]struct{}
	History         []ChangeRecord
}

// Snapshot is the JSON-serializable, order-deterministic view of a
// Record. Serialize-then-deserialize of a Snapshot is required to be
// identity, including history order (spec round-trip law).
type Snapshot struct {
	DocumentID      uuid.UUID      `json:"document_id"`
	CurrentVersion  int            `json:"current_version"`
	SourceInfo      *SourceInfo    `json:"source_info,omitempty"`
	ParentID        *uuid.UUID     `json:"parent_id,omitempty"`
	ChildrenIDs     []uuid.UUID    `json:"children_ids"`
	ReferenceIDs    []uuid.UUID    `json:"reference_ids"`
	ReferencedByIDs []uuid.UUID    `json:"referenced_by_ids"`
	History         []ChangeRecord `json:"history"`
}

// Snapshot renders a deterministic, sorted copy of the record.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		DocumentID:      r.DocumentID,
		CurrentVersion:  r.CurrentVersion,
		SourceInfo:      r.SourceInfo,
		ParentID:        r.ParentID,
		ChildrenIDs:     sortedIDs(r.ChildrenIDs),
		ReferenceIDs:    sortedIDs(r.ReferenceIDs),
		ReferencedByIDs: sortedIDs(r.ReferencedByIDs),
		History:         append([]ChangeRecord(nil), r.History...),
	}
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func newRecord(id uuid.UUID, src *SourceInfo, parentID *uuid.UUID) *Record {
	return &Record{
		DocumentID:      id,
		SourceInfo:      src,
		ParentID:        parentID,
		ChildrenIDs:     make(map[uuid.UUID]struct{}),
		ReferenceIDs:    make(map[uuid.UUID]struct{}),
		ReferencedByIDs: make(map[uuid.UUID]struct{}),
	}
}

// addChange appends a change record and bumps CurrentVersion. Version
// always equals the 1-based index of the record within History.
func (r *Record) addChange(kind ChangeKind, src *SourceInfo, metadata map[string]string, related []uuid.UUID) ChangeRecord {
	r.CurrentVersion++
	var relatedStr []string
	if len(related) > 0 {
		sorted := append([]uuid.UUID(nil), related...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
		for _, id := range sorted {
			relatedStr = append(relatedStr, id.String())
		}
	}
	cr := ChangeRecord{
		Timestamp:  time.Now().UTC(),
		ChangeKind: kind,
		Version:    r.CurrentVersion,
		SourceInfo: src,
		Metadata:   metadata,
		RelatedIDs: relatedStr,
	}
	r.History = append(r.History, cr)
	return cr
}

