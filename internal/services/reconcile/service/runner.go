package service

import (
	"context"

	"matchbook/internal/modkit/repokit"
	"matchbook/internal/platform/logger"
	"matchbook/internal/platform/store"
	"matchbook/internal/services/reconcile/domain"
	"matchbook/internal/services/reconcile/repo"
	"matchbook/internal/services/reconcile/sink"
)

// SourceFactory builds the two record streams for a run window
type SourceFactory interface {
	Submissions(ctx context.Context, req domain.RunRequest) (domain.SubmissionSource, error)
	Outcomes(ctx context.Context, req domain.RunRequest) (domain.OutcomeSource, error)
}

// Config tunes the runner
type Config struct {
	SampleLimit int
}

// Runner executes full reconcile runs: bookkeeping row, source discovery,
// the correlation pass, and the terminal status update
type Runner struct {
	tx     repokit.TxRunner
	binder repokit.Binder[repo.Reconcile]
	ch     store.Clickhouse
	src    SourceFactory
	cfg    Config
}

// NewRunner wires the runner. ch may be nil; the sink then falls back to
// the relational verdict table
func NewRunner(
	tx repokit.TxRunner,
	binder repokit.Binder[repo.Reconcile],
	ch store.Clickhouse,
	src SourceFactory,
	cfg Config,
) *Runner {
	return &Runner{tx: tx, binder: binder, ch: ch, src: src, cfg: cfg}
}

var _ domain.RunnerPort = (*Runner)(nil)

// Reconcile runs one pass. Dry runs skip all persistence, including the
// bookkeeping row, so they can be pointed at production data safely
func (r *Runner) Reconcile(ctx context.Context, req domain.RunRequest) (domain.Run, error) {
	run := domain.NewRun(req.Root, req.From, req.To, req.DryRun)
	ctx = logger.WithRun(ctx, run.ID.String())
	log := logger.C(ctx)

	log.Info().
		Str("root", req.Root).
		Str("from", req.From.String()).
		Str("to", req.To.String()).
		Bool("dry_run", req.DryRun).
		Msg("reconcile run starting")

	var rec repo.Reconcile
	if !req.DryRun {
		rec = repokit.MustBind(r.binder, r.tx)
		if err := rec.StartRun(ctx, run); err != nil {
			run.Finish(domain.Tally{}, err)
			return run, err
		}
	}

	subs, err := r.src.Submissions(ctx, req)
	if err != nil {
		return r.fail(ctx, rec, run, err)
	}
	outs, err := r.src.Outcomes(ctx, req)
	if err != nil {
		_ = subs.Close()
		return r.fail(ctx, rec, run, err)
	}

	var snk domain.Sink
	if req.DryRun {
		snk = sink.NewDryRun()
	} else {
		snk = sink.NewStore(rec, r.ch, run.ID)
	}

	tally, runErr := New(snk, NewLogDiagnostics(log, r.cfg.SampleLimit)).Run(ctx, subs, outs)
	run.Finish(tally, runErr)
	r.record(ctx, rec, run)
	return run, runErr
}

// fail closes out a run that never reached the correlation pass
func (r *Runner) fail(ctx context.Context, rec repo.Reconcile, run domain.Run, err error) (domain.Run, error) {
	run.Finish(domain.Tally{}, err)
	r.record(ctx, rec, run)
	return run, err
}

// record persists the terminal state; bookkeeping failure is logged, not
// allowed to mask the run's own result
func (r *Runner) record(ctx context.Context, rec repo.Reconcile, run domain.Run) {
	if rec == nil {
		return
	}
	if err := rec.FinishRun(ctx, run); err != nil {
		logger.C(ctx).Error().Err(err).Msg("finish run bookkeeping failed")
	}
}
