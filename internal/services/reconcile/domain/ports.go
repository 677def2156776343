package domain

import (
	"context"
	"errors"

	"matchbook/internal/core/recordkey"
)

// ErrSkipRecord marks a source record that is malformed but not fatal.
// Sources wrap it so the correlator can count and continue
var ErrSkipRecord = errors.New("skip record")

// SubmissionSource streams packet submissions. Next returns io.EOF when the
// stream is exhausted and an error wrapping ErrSkipRecord for rows that
// should be counted and skipped rather than abort the run
type SubmissionSource interface {
	Next() (SubmissionRecord, error)
	Close() error
}

// OutcomeSource streams QC verdicts with the same Next contract
type OutcomeSource interface {
	Next() (OutcomeRecord, error)
	Close() error
}

// Sink receives the run's outputs. PublishEnriched is called exactly once
// per matched pair; PublishVerdict only for favorable verdicts
type Sink interface {
	PublishEnriched(ctx context.Context, rec EnrichedRecord) error
	PublishVerdict(ctx context.Context, ev VerdictEvent) error
}

// Diagnostics receives the run's anomaly reports
type Diagnostics interface {
	SkippedRecord(side, source string, err error)
	OrphanOutcome(out OutcomeRecord)
	ResidualSubmissions(subs []SubmissionRecord)
}

// RunRequest describes one requested reconcile pass. Zero From/To mean an
// unbounded window on that side
type RunRequest struct {
	Root   string
	From   recordkey.Date
	To     recordkey.Date
	DryRun bool
}

// RunnerPort executes reconcile runs on behalf of other modules
type RunnerPort interface {
	Reconcile(ctx context.Context, req RunRequest) (Run, error)
}
