package domain

import (
	"time"

	"github.com/google/uuid"

	"matchbook/internal/core/recordkey"
)

// RunStatus is the lifecycle state of a reconcile run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of the reconcile engine and its bookkeeping
type Run struct {
	ID         uuid.UUID      `json:"id"`
	Root       string         `json:"root"`
	From       recordkey.Date `json:"from,omitzero"`
	To         recordkey.Date `json:"to,omitzero"`
	DryRun     bool           `json:"dry_run"`
	Status     RunStatus      `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitzero"`
	Tally      Tally          `json:"tally"`
	Error      string         `json:"error,omitempty"`
}

// NewRun stamps a fresh run in the running state
func NewRun(root string, from, to recordkey.Date, dryRun bool) Run {
	return Run{
		ID:        uuid.New(),
		Root:      root,
		From:      from,
		To:        to,
		DryRun:    dryRun,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish marks the run done with the final tally. A non-nil runErr flips
// the status to failed and records the message
func (r *Run) Finish(tally Tally, runErr error) {
	r.Tally = tally
	r.FinishedAt = time.Now().UTC()
	if runErr != nil {
		r.Status = RunFailed
		r.Error = runErr.Error()
		return
	}
	r.Status = RunSucceeded
}
