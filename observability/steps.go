// Package observability tracks per-document processing-step history and
// aggregates it into health and status reporting, adapted from the
// teacher's statemanager package (operation tracking, eviction, stats)
// generalized from service operations to pipeline processing steps.
package observability

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of processing-step states (spec §3).
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether a status is one of the run-ending states
// (spec §4.4's stage state machine: "terminal states are persisted").
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusWarning, StatusError, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Step is one processing-step record appended to a document's history
// by a stage.
type Step struct {
	StepName  string                 `json:"step_name"`
	Status    Status                 `json:"status"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Metrics   map[string]float64     `json:"metrics,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// StepStore holds processing-step history per document, bounded to
// maxDocuments tracked documents with oldest-first eviction, matching
// the teacher's Manager.evictOldest.
type StepStore struct {
	mu           sync.RWMutex
	steps        map[uuid.UUID][]Step
	firstSeen    map[uuid.UUID]time.Time
	maxDocuments int
}

// NewStepStore creates a step store bounded to maxDocuments tracked
// documents (0 means the teacher's default of 1000).
func NewStepStore(maxDocuments int) *StepStore {
	if maxDocuments <= 0 {
		maxDocuments = 1000
	}
	return &StepStore{
		steps:        make(map[uuid.UUID][]Step),
		firstSeen:    make(map[uuid.UUID]time.Time),
		maxDocuments: maxDocuments,
	}
}

// Record appends a step to a document's history, evicting the oldest
// tracked document first if the store is at capacity.
func (s *StepStore) Record(docID uuid.UUID, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.steps[docID]; !exists && len(s.steps) >= s.maxDocuments {
		s.evictOldestLocked()
	}
	if _, exists := s.firstSeen[docID]; !exists {
		s.firstSeen[docID] = time.Now().UTC()
	}
	s.steps[docID] = append(s.steps[docID], step)
}

func (s *StepStore) evictOldestLocked() {
	var oldest uuid.UUID
	var oldestAt time.Time
	first := true
	for id, at := range s.firstSeen {
		if first || at.Before(oldestAt) {
			oldest, oldestAt, first = id, at, false
		}
	}
	if !first {
		delete(s.steps, oldest)
		delete(s.firstSeen, oldest)
	}
}

// History returns a copy of a document's step history.
func (s *StepStore) History(docID uuid.UUID) []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Step(nil), s.steps[docID]...)
}

// Stats aggregates step counts by status across every tracked document.
type Stats struct {
	TotalDocuments int
	ByStatus       map[Status]int
	ErrorRate      float64
	WarningRate    float64
}

// Stats computes the current aggregate view.
func (s *StepStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByStatus: make(map[Status]int), TotalDocuments: len(s.steps)}
	var errs, warns, total int
	for _, steps := range s.steps {
		for _, step := range steps {
			stats.ByStatus[step.Status]++
			total++
			switch step.Status {
			case StatusError, StatusFailed:
				errs++
			case StatusWarning:
				warns++
			}
		}
	}
	if total > 0 {
		stats.ErrorRate = float64(errs) / float64(total)
		stats.WarningRate = float64(warns) / float64(total)
	}
	return stats
}
