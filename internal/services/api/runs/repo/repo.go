// Package repo provides postgres access for reconcile run history
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"matchbook/internal/modkit/repokit"
	perr "matchbook/internal/platform/errors"
)

// Repo defines the repository contract for run history
type Repo interface {
	ByID(ctx context.Context, id string) (RowRun, error)
	Query(ctx context.Context, status, root string, limit int) ([]RowRun, error)
}

// RowRun represents a run row from the database
type RowRun struct {
	ID         string
	Root       string
	DateFrom   *time.Time
	DateTo     *time.Time
	DryRun     bool
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Tally      []byte
	Error      *string
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	// queries holds the database query methods
	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const runColumns = `
id::text, root, date_from, date_to, dry_run, status::text,
started_at, finished_at, tally, error`

func (r *queries) ByID(ctx context.Context, id string) (RowRun, error) {
	const sql = `select ` + runColumns + ` from reconcile_runs where id = $1`

	var rr RowRun
	err := r.q.QueryRow(ctx, sql, id).Scan(
		&rr.ID, &rr.Root, &rr.DateFrom, &rr.DateTo, &rr.DryRun, &rr.Status,
		&rr.StartedAt, &rr.FinishedAt, &rr.Tally, &rr.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RowRun{}, perr.NotFoundf("run %s not found", id)
	}
	if err != nil {
		return RowRun{}, perr.FromPostgres(err, "load run")
	}
	return rr, nil
}

func (r *queries) Query(ctx context.Context, status, root string, limit int) ([]RowRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const sql = `
select ` + runColumns + `
from reconcile_runs
where ($1 = '' or status::text = $1)
and ($2 = '' or root = $2)
order by started_at desc
limit $3`

	rows, err := r.q.Query(ctx, sql, status, root, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "query runs")
	}
	defer rows.Close()

	var out []RowRun
	for rows.Next() {
		var rr RowRun
		if err := rows.Scan(
			&rr.ID, &rr.Root, &rr.DateFrom, &rr.DateTo, &rr.DryRun, &rr.Status,
			&rr.StartedAt, &rr.FinishedAt, &rr.Tally, &rr.Error,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan run")
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "iterate runs")
	}
	return out, nil
}
