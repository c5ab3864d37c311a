package observability

import (
	"time"
)

// HealthStatus mirrors the HEALTHY/WARNING/CRITICAL tiers of the
// original health-check lifecycle manager, adapted here to grade a
// pipeline run instead of a long-lived service.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Thresholds configures the error/warning rates that demote a run's
// health. Defaults are conservative: any sustained error rate above 10%
// is critical, above 2% is a warning.
type Thresholds struct {
	WarningErrorRate  float64
	CriticalErrorRate float64
}

// DefaultThresholds matches the original lifecycle manager's defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningErrorRate: 0.02, CriticalErrorRate: 0.10}
}

// Report is the point-in-time health snapshot returned by HealthCheck.
type Report struct {
	Status      HealthStatus
	Stats       Stats
	CheckedAt   time.Time
	Description string
}

// HealthChecker grades a StepStore's current aggregate stats against
// Thresholds, generalizing the original resource/error-rate heuristic
// from a running service's health endpoint to a single pipeline run's
// exit-time summary.
type HealthChecker struct {
	store      *StepStore
	thresholds Thresholds
}

// NewHealthChecker builds a checker over store using thresholds (the
// zero value selects DefaultThresholds).
func NewHealthChecker(store *StepStore, thresholds Thresholds) *HealthChecker {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &HealthChecker{store: store, thresholds: thresholds}
}

// Check computes the current Report.
func (h *HealthChecker) Check() Report {
	stats := h.store.Stats()
	status := HealthHealthy
	desc := "no processing errors observed"

	switch {
	case stats.ErrorRate >= h.thresholds.CriticalErrorRate:
		status = HealthCritical
		desc = "error rate exceeds critical threshold"
	case stats.ErrorRate >= h.thresholds.WarningErrorRate || stats.WarningRate >= h.thresholds.WarningErrorRate:
		status = HealthWarning
		desc = "error or warning rate exceeds warning threshold"
	}

	return Report{
		Status:      status,
		Stats:       stats,
		CheckedAt:   time.Now().UTC(),
		Description: desc,
	}
}
