package model

import (
	"fmt"
	"time"
)

// RunStatus is the calibration run state.
type RunStatus string

// Run states: pending -> running -> completed | failed.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool { return s == RunCompleted || s == RunFailed }

// Outcome pairs an asset with its realized value over the evaluation window.
type Outcome struct {
	Asset    Asset          `json:"asset"`
	Settings LeagueSettings `json:"settings"`
	Realized float64        `json:"realized"`
}

// RunMetrics reports goodness-of-fit. OverallRho stays nil unless the fit
// completed.
type RunMetrics struct {
	OverallRho     *float64             `json:"overall_rho,omitempty"`
	BaselineRho    *float64             `json:"baseline_rho,omitempty"`
	PerPositionRho map[Position]float64 `json:"per_position_rho,omitempty"`
	Samples        int                  `json:"samples"`
	Iterations     int                  `json:"iterations"`
}

// CalibrationRun records one refit of the scoring weights.
type CalibrationRun struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	BaseVersion int        `json:"base_version"`
	Metrics     RunMetrics `json:"metrics"`
	Reason      string     `json:"reason,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Candidate   *AppConfig `json:"candidate,omitempty"`
}

// NewCalibrationRun creates a pending run.
func NewCalibrationRun(id string, baseVersion int) CalibrationRun {
	return CalibrationRun{ID: id, Status: RunPending, BaseVersion: baseVersion}
}

// Start moves a pending run to running.
func (r *CalibrationRun) Start(now time.Time) error {
	if r.Status != RunPending {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, r.Status)
	}
	r.Status = RunRunning
	r.StartedAt = now.UTC()
	return nil
}

// Complete sets the terminal completed state exactly once.
func (r *CalibrationRun) Complete(now time.Time, metrics RunMetrics, candidate AppConfig) error {
	if r.Status != RunRunning {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, r.Status)
	}
	t := now.UTC()
	r.Status = RunCompleted
	r.Metrics = metrics
	r.Candidate = &candidate
	r.CompletedAt = &t
	return nil
}

// Fail sets the terminal failed state exactly once. A pending run may fail
// directly when it never acquired the running slot.
func (r *CalibrationRun) Fail(now time.Time, reason string) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, r.Status)
	}
	t := now.UTC()
	r.Status = RunFailed
	r.Reason = reason
	r.Metrics.OverallRho = nil
	r.Candidate = nil
	r.CompletedAt = &t
	return nil
}
