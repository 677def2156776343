// Package domain holds DTOs for the runs http and service contracts
package domain

import (
	"context"

	recdomain "matchbook/internal/services/reconcile/domain"
)

// QueryInput filters the run listing
type QueryInput struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=running succeeded failed" example:"succeeded"`
	Root   string `json:"root,omitempty"   validate:"omitempty,min=1,max=500" example:"/data/center-11"`
	Limit  int    `json:"limit,omitempty"  validate:"omitempty,min=1,max=200" example:"50"`
}

// RunView is the API shape of one reconcile run
type RunView struct {
	ID         string          `json:"id"`
	Root       string          `json:"root"`
	DateFrom   string          `json:"date_from,omitempty"`
	DateTo     string          `json:"date_to,omitempty"`
	DryRun     bool            `json:"dry_run"`
	Status     string          `json:"status"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Tally      recdomain.Tally `json:"tally"`
	Error      string          `json:"error,omitempty"`
}

// ServicePort defines the service contract for runs
type ServicePort interface {
	Get(ctx context.Context, id string) (RunView, error)
	Query(ctx context.Context, in QueryInput) ([]RunView, error)
}
