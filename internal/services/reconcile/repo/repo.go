// Package repo persists reconcile runs and their outputs to Postgres
package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/modkit/repokit"
	perr "matchbook/internal/platform/errors"
	"matchbook/internal/services/reconcile/domain"
)

// Reconcile is the write-side persistence port of the engine
type Reconcile interface {
	StartRun(ctx context.Context, run domain.Run) error
	FinishRun(ctx context.Context, run domain.Run) error
	InsertEnriched(ctx context.Context, runID uuid.UUID, rec domain.EnrichedRecord) (bool, error)
	InsertVerdictEvent(ctx context.Context, runID uuid.UUID, ev domain.VerdictEvent) (bool, error)
}

// NewBinder returns a Binder that builds a PG-backed Reconcile repo
func NewBinder() repokit.Binder[Reconcile] {
	return repokit.BindFunc[Reconcile](func(q repokit.Queryer) Reconcile {
		return &pg{q: q}
	})
}

type pg struct {
	q repokit.Queryer
}

const insertRunSQL = `
	INSERT INTO reconcile_runs
		(id, root, date_from, date_to, dry_run, status, started_at, tally)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// StartRun records the run in the running state before any publishing
func (r *pg) StartRun(ctx context.Context, run domain.Run) error {
	tally, err := json.Marshal(run.Tally)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "marshal tally")
	}
	_, err = r.q.Exec(ctx, insertRunSQL,
		run.ID, run.Root, dateArg(run.From), dateArg(run.To),
		run.DryRun, string(run.Status), run.StartedAt, tally)
	return perr.FromPostgres(err, "start run")
}

const finishRunSQL = `
	UPDATE reconcile_runs
	SET status = $2, finished_at = $3, tally = $4, error = NULLIF($5, '')
	WHERE id = $1`

// FinishRun stores the terminal status and the final tally
func (r *pg) FinishRun(ctx context.Context, run domain.Run) error {
	tally, err := json.Marshal(run.Tally)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "marshal tally")
	}
	tag, err := r.q.Exec(ctx, finishRunSQL,
		run.ID, string(run.Status), run.FinishedAt, tally, run.Error)
	if err != nil {
		return perr.FromPostgres(err, "finish run")
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("run %s not found", run.ID)
	}
	return nil
}

const insertEnrichedSQL = `
	INSERT INTO enriched_records
		(subject_id, visit_date, packet, form_count, visit_num, form_version,
		 submitted_by, submitted_at, source, verdict, reason, reviewed_by,
		 completed_at, run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (subject_id, visit_date, packet) DO NOTHING`

// InsertEnriched writes one enriched record. The conflict target is the
// correlation key, so re-running a window is idempotent; the bool reports
// whether this call actually inserted
func (r *pg) InsertEnriched(ctx context.Context, runID uuid.UUID, rec domain.EnrichedRecord) (bool, error) {
	tag, err := r.q.Exec(ctx, insertEnrichedSQL,
		rec.SubjectID, rec.VisitDate.Time(), rec.Packet,
		rec.FormCount, rec.VisitNum, rec.FormVersion,
		rec.SubmittedBy, rec.SubmittedAt, rec.Source,
		string(rec.Verdict), rec.Reason, rec.ReviewedBy, rec.CompletedAt, runID)
	if err != nil {
		return false, perr.FromPostgres(err, "insert enriched record")
	}
	return tag.RowsAffected() > 0, nil
}

const insertVerdictEventSQL = `
	INSERT INTO verdict_events
		(subject_id, visit_date, packet, verdict, reviewed_by, completed_at, run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (subject_id, visit_date, packet) DO NOTHING`

// InsertVerdictEvent is the relational fallback for the favorable-verdict
// feed when the columnar backend is disabled
func (r *pg) InsertVerdictEvent(ctx context.Context, runID uuid.UUID, ev domain.VerdictEvent) (bool, error) {
	tag, err := r.q.Exec(ctx, insertVerdictEventSQL,
		ev.SubjectID, ev.VisitDate.Time(), ev.Packet,
		string(ev.Verdict), ev.ReviewedBy, ev.CompletedAt, runID)
	if err != nil {
		return false, perr.FromPostgres(err, "insert verdict event")
	}
	return tag.RowsAffected() > 0, nil
}

// dateArg converts an optional date for a nullable DATE column
func dateArg(d recordkey.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}
