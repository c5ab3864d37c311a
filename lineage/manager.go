package lineage

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// defaultMaxCycleDepth bounds the cycle-check DFS when the graph itself
// doesn't impose a natural bound; see spec §4.2.
const defaultMaxCycleDepth = 10000

// Invalidator receives the set of document ids whose cache entries must
// be invalidated before a mutation becomes visible to other callers
// (spec §4.3's consistency rule). A Manager with a nil Invalidator just
// skips cache coordination.
type Invalidator interface {
	Invalidate(ids ...uuid.UUID)
}

// Manager is a thread-safe, in-memory lineage store.
//
// All mutating operations take a single store-wide lock for their
// entire duration, the "store-wide write lock" option described in
// spec §5. Within that critical section, multi-record touches (a
// Referenced/Dereferenced update touching a source and N targets) still
// acquire each record's own mutex in ascending document-id order before
// mutating it, and release them in the reverse order — this is the
// locking discipline spec §9 requires documented in code, kept even
// though the store-wide lock already serializes callers, so that a
// future move to finer-grained per-record locking does not silently
// drop the ordering guarantee.
type Manager struct {
	mu            sync.Mutex
	records       map[uuid.UUID]*recordBox
	maxCycleDepth int
	invalidator   Invalidator
}

type recordBox struct {
	mu  sync.Mutex
	rec *Record
}

// NewManager creates an empty lineage manager.
func NewManager(invalidator Invalidator) *Manager {
	return &Manager{
		records:       make(map[uuid.UUID]*recordBox),
		maxCycleDepth: defaultMaxCycleDepth,
		invalidator:   invalidator,
	}
}

// boxesAscending returns the given boxes sorted by document id string,
// the deadlock-avoidance order required by spec §9.
func boxesAscending(boxes []*recordBox) []*recordBox {
	sorted := append([]*recordBox(nil), boxes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].rec.DocumentID.String() < sorted[j].rec.DocumentID.String()
	})
	return sorted
}

func lockAll(boxes []*recordBox) {
	for _, b := range boxes {
		b.mu.Lock()
	}
}

func unlockAll(boxes []*recordBox) {
	for i := len(boxes) - 1; i >= 0; i-- {
		boxes[i].mu.Unlock()
	}
}

// Create creates a new lineage record for id. If parentID is set the
// parent must already exist; a Processed change is appended to the
// parent recording the new child.
func (m *Manager) Create(id uuid.UUID, src *SourceInfo, parentID *uuid.UUID) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; exists {
		return Snapshot{}, pipelineerr.NewConflict("lineage already exists for document %s", id)
	}

	var parentBox *recordBox
	if parentID != nil {
		pb, ok := m.records[*parentID]
		if !ok {
			return Snapshot{}, pipelineerr.NewValidation("parent document %s not found", *parentID)
		}
		parentBox = pb
	}

	box := &recordBox{rec: newRecord(id, src, parentID)}
	m.records[id] = box

	touched := []*recordBox{box}
	if parentBox != nil {
		touched = append(touched, parentBox)
	}
	ordered := boxesAscending(touched)
	lockAll(ordered)
	defer unlockAll(ordered)

	box.rec.addChange(Created, src, nil, nil)
	if parentBox != nil {
		parentBox.rec.ChildrenIDs[id] = struct{}{}
		parentBox.rec.addChange(Processed, nil, map[string]string{"child_document": id.String()}, nil)
	}

	if m.invalidator != nil {
		ids := []uuid.UUID{id}
		if parentID != nil {
			ids = append(ids, *parentID)
		}
		m.invalidator.Invalidate(ids...)
	}

	return box.rec.Snapshot(), nil
}

// Get returns a snapshot of a document's lineage.
func (m *Manager) Get(id uuid.UUID) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	box, ok := m.records[id]
	if !ok {
		return Snapshot{}, false
	}
	box.mu.Lock()
	defer box.mu.Unlock()
	return box.rec.Snapshot(), true
}

// History returns the change history for a document, optionally
// starting from a version.
func (m *Manager) History(id uuid.UUID, sinceVersion *int) ([]ChangeRecord, error) {
	m.mu.Lock()
	box, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil, pipelineerr.NewNotFound("no lineage found for document %s", id)
	}

	box.mu.Lock()
	defer box.mu.Unlock()

	if sinceVersion == nil {
		return append([]ChangeRecord(nil), box.rec.History...), nil
	}
	var out []ChangeRecord
	for _, c := range box.rec.History {
		if c.Version > *sinceVersion {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update appends a change to id's lineage and applies the per-kind side
// effects described in spec §4.2.
func (m *Manager) Update(id uuid.UUID, kind ChangeKind, src *SourceInfo, metadata map[string]string, relatedIDs []uuid.UUID) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	box, ok := m.records[id]
	if !ok {
		return Snapshot{}, pipelineerr.NewNotFound("no lineage found for document %s", id)
	}

	relatedBoxes := make(map[uuid.UUID]*recordBox, len(relatedIDs))
	var missing []uuid.UUID
	for _, rid := range relatedIDs {
		if rb, ok := m.records[rid]; ok {
			relatedBoxes[rid] = rb
		} else {
			missing = append(missing, rid)
		}
	}
	if len(missing) > 0 {
		return Snapshot{}, pipelineerr.NewValidation("related documents not found: %s", joinIDs(missing))
	}

	touched := []*recordBox{box}
	for _, rb := range relatedBoxes {
		touched = append(touched, rb)
	}
	ordered := boxesAscending(touched)

	if kind == Referenced && len(relatedIDs) > 0 {
		lockAll(ordered)
		if err := m.checkCircularLocked(relatedIDs, []uuid.UUID{id}, 0); err != nil {
			unlockAll(ordered)
			return Snapshot{}, err
		}
	} else {
		lockAll(ordered)
	}
	defer unlockAll(ordered)

	box.rec.addChange(kind, src, metadata, relatedIDs)

	switch kind {
	case Referenced:
		for _, rid := range relatedIDs {
			box.rec.ReferenceIDs[rid] = struct{}{}
			ref := relatedBoxes[rid].rec
			ref.ReferencedByIDs[id] = struct{}{}
			ref.addChange(Referenced, nil, map[string]string{"referenced_by": id.String()}, nil)
		}
	case Dereferenced:
		for _, rid := range relatedIDs {
			delete(box.rec.ReferenceIDs, rid)
			ref := relatedBoxes[rid].rec
			delete(ref.ReferencedByIDs, id)
			ref.addChange(Dereferenced, nil, map[string]string{"dereferenced_by": id.String()}, nil)
		}
	}

	if m.invalidator != nil {
		ids := []uuid.UUID{id}
		ids = append(ids, relatedIDs...)
		m.invalidator.Invalidate(ids...)
	}

	return box.rec.Snapshot(), nil
}

// checkCircularLocked walks the reference graph worklist-style,
// threading the traversal path so a detected cycle can be reported as
// the full chain (e.g. "C -> A -> B -> C"), not just the closing edge.
// Callers must already hold the locks for every record this traversal
// can reach that is also part of the current update's touched set;
// records outside that set are read under the store-wide lock already
// held by Update, which is sufficient since all mutations serialize
// through it.
func (m *Manager) checkCircularLocked(referenceIDs []uuid.UUID, path []uuid.UUID, depth int) error {
	if depth > m.maxCycleDepth {
		return pipelineerr.NewValidation("reference chain exceeds safety limit of %d", m.maxCycleDepth)
	}
	for _, rid := range referenceIDs {
		for _, seen := range path {
			if seen == rid {
				full := append(append([]uuid.UUID(nil), path...), rid)
				return pipelineerr.NewCycle(pathString(full))
			}
		}
		refBox, ok := m.records[rid]
		if !ok || len(refBox.rec.ReferenceIDs) == 0 {
			continue
		}
		nextPath := append(append([]uuid.UUID(nil), path...), rid)
		if err := m.checkCircularLocked(sortedIDs(refBox.rec.ReferenceIDs), nextPath, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func pathString(ids []uuid.UUID) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return strings.Join(strs, " -> ")
}

// Delete removes id's lineage, detaching it from its parent, its
// outgoing references, and its incoming referrers, in that order,
// before appending the terminal Deleted change.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	box, ok := m.records[id]
	if !ok {
		return pipelineerr.NewNotFound("no lineage found for document %s", id)
	}

	touched := []*recordBox{box}
	if box.rec.ParentID != nil {
		if pb, ok := m.records[*box.rec.ParentID]; ok {
			touched = append(touched, pb)
		}
	}
	for rid := range box.rec.ReferenceIDs {
		if rb, ok := m.records[rid]; ok {
			touched = append(touched, rb)
		}
	}
	for rid := range box.rec.ReferencedByIDs {
		if rb, ok := m.records[rid]; ok {
			touched = append(touched, rb)
		}
	}
	ordered := boxesAscending(dedupBoxes(touched))
	lockAll(ordered)
	defer unlockAll(ordered)

	if box.rec.ParentID != nil {
		if pb, ok := m.records[*box.rec.ParentID]; ok {
			delete(pb.rec.ChildrenIDs, id)
			pb.rec.addChange(Processed, nil, map[string]string{"removed_child": id.String()}, nil)
		}
	}
	for _, rid := range sortedIDs(box.rec.ReferenceIDs) {
		if rb, ok := m.records[rid]; ok {
			delete(rb.rec.ReferencedByIDs, id)
			rb.rec.addChange(Dereferenced, nil, map[string]string{"dereferenced_by": id.String()}, nil)
		}
	}
	for _, rid := range sortedIDs(box.rec.ReferencedByIDs) {
		if rb, ok := m.records[rid]; ok {
			delete(rb.rec.ReferenceIDs, id)
			rb.rec.addChange(Dereferenced, nil, map[string]string{"removed_reference": id.String()}, nil)
		}
	}

	box.rec.addChange(Deleted, nil, nil, nil)
	delete(m.records, id)

	if m.invalidator != nil {
		ids := []uuid.UUID{id}
		for _, b := range ordered {
			if b != box {
				ids = append(ids, b.rec.DocumentID)
			}
		}
		m.invalidator.Invalidate(ids...)
	}

	return nil
}

func dedupBoxes(boxes []*recordBox) []*recordBox {
	seen := make(map[uuid.UUID]struct{}, len(boxes))
	out := make([]*recordBox, 0, len(boxes))
	for _, b := range boxes {
		if _, ok := seen[b.rec.DocumentID]; ok {
			continue
		}
		seen[b.rec.DocumentID] = struct{}{}
		out = append(out, b)
	}
	return out
}

func joinIDs(ids []uuid.UUID) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	sort.Strings(strs)
	return strings.Join(strs, ", ")
}
