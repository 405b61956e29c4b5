package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/wcmigrate/internal/domain/shared"
	"github.com/google/uuid"
)

// RunStatus represents the state of a migration run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// Run is the history record of one pipeline execution.
type Run struct {
	ID          uuid.UUID     `json:"id"`
	Status      RunStatus     `json:"status"`
	DryRun      bool          `json:"dry_run"`
	Cutoff      time.Time     `json:"cutoff"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	FailedPhase Phase         `json:"failed_phase,omitempty"`
	Error       string        `json:"error,omitempty"`
	Phases      []PhaseResult `json:"phases"`
}

// NewRun starts a run record.
func NewRun(cutoff time.Time, dryRun bool) *Run {
	return &Run{
		ID:        uuid.New(),
		Status:    RunStatusRunning,
		DryRun:    dryRun,
		Cutoff:    cutoff,
		StartedAt: time.Now(),
		Phases:    make([]PhaseResult, 0, len(Phases)),
	}
}

// RecordPhase appends a completed phase.
func (r *Run) RecordPhase(result PhaseResult) error {
	if r.Status != RunStatusRunning {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record phase in state: %s", r.Status))
	}
	if !result.Phase.IsValid() {
		return shared.NewDomainError("INVALID_PHASE", fmt.Sprintf("Invalid phase: %s", result.Phase))
	}
	r.Phases = append(r.Phases, result)
	return nil
}

// Succeed marks the run as completed.
func (r *Run) Succeed() error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from terminal state: %s", r.Status))
	}
	r.Status = RunStatusSucceeded
	r.finish()
	return nil
}

// Fail marks the run as aborted in the given phase.
func (r *Run) Fail(phase Phase, cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", r.Status))
	}
	r.Status = RunStatusFailed
	r.FailedPhase = phase
	if cause != nil {
		r.Error = cause.Error()
	}
	r.finish()
	return nil
}

func (r *Run) finish() {
	now := time.Now()
	r.FinishedAt = &now
}

// Duration returns the elapsed time, up to now while still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Phase returns the recorded result for p.
func (r *Run) Phase(p Phase) (PhaseResult, bool) {
	for _, res := range r.Phases {
		if res.Phase == p {
			return res, true
		}
	}
	return PhaseResult{}, false
}

// RunRepository persists run history and the identity maps each run built.
type RunRepository interface {
	Save(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
	SaveMappings(ctx context.Context, runID uuid.UUID, mappings []Mapping) error
	FindMappings(ctx context.Context, runID uuid.UUID, entity EntityType) ([]Mapping, error)
}
