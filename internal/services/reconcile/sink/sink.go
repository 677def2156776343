// Package sink provides the publish targets for reconcile runs
package sink

import (
	"context"

	"github.com/google/uuid"

	"matchbook/internal/platform/logger"
	"matchbook/internal/platform/store"
	"matchbook/internal/services/reconcile/domain"
	"matchbook/internal/services/reconcile/repo"
)

// verdict_events column order for the columnar batch path
var verdictEventCols = []string{
	"subject_id", "visit_date", "packet", "verdict", "reviewed_by", "completed_at", "run_id",
}

// Store publishes enriched records to Postgres and favorable verdict events
// to ClickHouse. When the columnar seam is nil the events fall back to the
// relational verdict_events table so nothing is silently dropped
type Store struct {
	repo  repo.Reconcile
	ch    store.Clickhouse
	runID uuid.UUID
	log   *logger.Logger
}

// NewStore builds the persistent sink for one run
func NewStore(r repo.Reconcile, ch store.Clickhouse, runID uuid.UUID) *Store {
	return &Store{repo: r, ch: ch, runID: runID, log: logger.Named("sink")}
}

// PublishEnriched writes one enriched record. A conflict on the correlation
// key is not an error; re-runs hit it on every already-published record
func (s *Store) PublishEnriched(ctx context.Context, rec domain.EnrichedRecord) error {
	inserted, err := s.repo.InsertEnriched(ctx, s.runID, rec)
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Debug().Str("key", rec.Key().String()).Msg("enriched record already present")
	}
	return nil
}

// PublishVerdict emits one favorable verdict event
func (s *Store) PublishVerdict(ctx context.Context, ev domain.VerdictEvent) error {
	if s.ch != nil {
		return s.ch.Insert(ctx, "verdict_events", verdictEventCols, [][]any{{
			ev.SubjectID, ev.VisitDate.Time(), ev.Packet,
			string(ev.Verdict), ev.ReviewedBy, ev.CompletedAt, s.runID.String(),
		}})
	}
	_, err := s.repo.InsertVerdictEvent(ctx, s.runID, ev)
	return err
}

// DryRun logs what would have been published and writes nothing
type DryRun struct {
	log *logger.Logger

	Enriched int
	Events   int
}

// NewDryRun builds the no-write sink
func NewDryRun() *DryRun {
	return &DryRun{log: logger.Named("sink.dryrun")}
}

// PublishEnriched logs the record instead of writing it
func (d *DryRun) PublishEnriched(_ context.Context, rec domain.EnrichedRecord) error {
	d.Enriched++
	d.log.Info().
		Str("key", rec.Key().String()).
		Str("verdict", rec.Verdict.String()).
		Msg("dry-run: would publish enriched record")
	return nil
}

// PublishVerdict logs the event instead of writing it
func (d *DryRun) PublishVerdict(_ context.Context, ev domain.VerdictEvent) error {
	d.Events++
	d.log.Info().
		Str("subject_id", ev.SubjectID).
		Str("packet", ev.Packet).
		Msg("dry-run: would publish verdict event")
	return nil
}
