// Package service implements the three-phase reconcile run: index the
// submissions, play the verdicts against the index, report what is left
package service

import (
	"context"
	"errors"
	"io"

	perr "matchbook/internal/platform/errors"
	"matchbook/internal/platform/logger"
	"matchbook/internal/services/reconcile/domain"
)

// Service correlates submission and verdict streams and publishes the
// enriched results. One Service value can serve many runs
type Service struct {
	sink domain.Sink
	diag domain.Diagnostics
}

// New builds the correlation service
func New(sink domain.Sink, diag domain.Diagnostics) *Service {
	return &Service{sink: sink, diag: diag}
}

// Run executes one reconcile pass. The two streams are fully independent;
// nothing orders a verdict after its submission, so all submissions are
// indexed before any verdict is read. Malformed records and publish
// failures are counted and survived; only source or context failure aborts
func (s *Service) Run(
	ctx context.Context,
	subs domain.SubmissionSource,
	outs domain.OutcomeSource,
) (domain.Tally, error) {
	var tally domain.Tally
	pending := NewPendingIndex()

	if err := s.ingestSubmissions(logger.WithPhase(ctx, "submissions"), subs, pending, &tally); err != nil {
		return tally, err
	}
	if err := s.ingestOutcomes(logger.WithPhase(ctx, "outcomes"), outs, pending, &tally); err != nil {
		return tally, err
	}
	s.reportResidual(logger.WithPhase(ctx, "residual"), pending, &tally)

	logger.C(ctx).Info().
		Int("submissions", tally.Submissions).
		Int("outcomes", tally.Outcomes).
		Int("matched", tally.Matched).
		Int("orphaned", tally.Orphaned).
		Int("residual", tally.Residual).
		Int("skipped_submissions", tally.SkippedSubmissions).
		Int("skipped_outcomes", tally.SkippedOutcomes).
		Int("publish_failures", tally.PublishFailures).
		Msg("reconcile run complete")

	return tally, nil
}

func (s *Service) ingestSubmissions(
	ctx context.Context,
	src domain.SubmissionSource,
	pending *PendingIndex,
	tally *domain.Tally,
) error {
	defer closeQuietly(ctx, src, "submission source")

	for {
		if err := ctx.Err(); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "reconcile canceled")
		}
		sub, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, domain.ErrSkipRecord) {
			tally.SkippedSubmissions++
			s.diag.SkippedRecord("submission", sub.Source, err)
			continue
		}
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "read submissions")
		}

		tally.Submissions++
		if pending.Insert(sub) {
			tally.Replaced++
			logger.C(ctx).Debug().Str("key", sub.Key().String()).Msg("duplicate submission replaced")
		}
	}
}

func (s *Service) ingestOutcomes(
	ctx context.Context,
	src domain.OutcomeSource,
	pending *PendingIndex,
	tally *domain.Tally,
) error {
	defer closeQuietly(ctx, src, "outcome source")

	for {
		if err := ctx.Err(); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "reconcile canceled")
		}
		out, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, domain.ErrSkipRecord) {
			tally.SkippedOutcomes++
			s.diag.SkippedRecord("outcome", out.Source, err)
			continue
		}
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "read outcomes")
		}

		tally.Outcomes++
		sub, ok := pending.Take(out.Key())
		if !ok {
			tally.Orphaned++
			s.diag.OrphanOutcome(out)
			continue
		}

		tally.Matched++
		s.publish(ctx, domain.Enrich(domain.NewEnriched(sub), out), tally)
	}
}

// publish sends the enriched record and, for favorable verdicts, the
// secondary event. A failed record publish suppresses the event so the
// pair can never be half-visible downstream
func (s *Service) publish(ctx context.Context, rec domain.EnrichedRecord, tally *domain.Tally) {
	if err := s.sink.PublishEnriched(ctx, rec); err != nil {
		tally.PublishFailures++
		logger.C(ctx).Error().Err(err).Str("key", rec.Key().String()).Msg("publish enriched failed")
		return
	}
	if !rec.Verdict.IsFavorable() {
		return
	}
	if err := s.sink.PublishVerdict(ctx, domain.EventOf(rec)); err != nil {
		tally.PublishFailures++
		logger.C(ctx).Error().Err(err).Str("key", rec.Key().String()).Msg("publish verdict failed")
	}
}

func (s *Service) reportResidual(ctx context.Context, pending *PendingIndex, tally *domain.Tally) {
	residual := pending.Remaining()
	tally.Residual = len(residual)
	if len(residual) == 0 {
		logger.C(ctx).Debug().Msg("no residual submissions")
		return
	}
	s.diag.ResidualSubmissions(residual)
}

func closeQuietly(ctx context.Context, c io.Closer, what string) {
	if err := c.Close(); err != nil {
		logger.C(ctx).Warn().Err(err).Msgf("close %s", what)
	}
}
