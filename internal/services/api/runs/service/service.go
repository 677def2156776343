// Package service contains run history workflows
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"matchbook/internal/modkit/repokit"
	perr "matchbook/internal/platform/errors"
	"matchbook/internal/services/api/runs/domain"
	"matchbook/internal/services/api/runs/repo"
	recdomain "matchbook/internal/services/reconcile/domain"
)

// Service defines the service contract for runs
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New creates a new runs service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("runs.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("runs.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// Get loads one run by id
func (s *Svc) Get(ctx context.Context, id string) (domain.RunView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.RunView{}, perr.InvalidArgf("invalid run id %q", id)
	}
	row, err := s.Repo.ByID(ctx, id)
	if err != nil {
		return domain.RunView{}, err
	}
	return toView(row)
}

// Query lists runs matching the input filters, newest first
func (s *Svc) Query(ctx context.Context, in domain.QueryInput) ([]domain.RunView, error) {
	rows, err := s.Repo.Query(ctx, in.Status, in.Root, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RunView, 0, len(rows))
	for _, row := range rows {
		v, err := toView(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toView(row repo.RowRun) (domain.RunView, error) {
	v := domain.RunView{
		ID:        row.ID,
		Root:      row.Root,
		DryRun:    row.DryRun,
		Status:    row.Status,
		StartedAt: row.StartedAt.UTC().Format(time.RFC3339),
	}
	if row.DateFrom != nil {
		v.DateFrom = row.DateFrom.UTC().Format("2006-01-02")
	}
	if row.DateTo != nil {
		v.DateTo = row.DateTo.UTC().Format("2006-01-02")
	}
	if row.FinishedAt != nil {
		v.FinishedAt = row.FinishedAt.UTC().Format(time.RFC3339)
	}
	if row.Error != nil {
		v.Error = *row.Error
	}
	if len(row.Tally) > 0 {
		var t recdomain.Tally
		if err := json.Unmarshal(row.Tally, &t); err != nil {
			return domain.RunView{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode run tally")
		}
		v.Tally = t
	}
	return v, nil
}
