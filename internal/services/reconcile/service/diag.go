package service

import (
	"matchbook/internal/platform/logger"
	"matchbook/internal/services/reconcile/domain"
)

// DefaultSampleLimit bounds how many residual keys a report logs in full
const DefaultSampleLimit = 5

// LogDiagnostics reports run anomalies through the structured logger.
// Residual reports are sampled so a bad month cannot flood the log
type LogDiagnostics struct {
	log         *logger.Logger
	sampleLimit int
}

// NewLogDiagnostics builds a logging diagnostics port. sampleLimit <= 0
// falls back to DefaultSampleLimit
func NewLogDiagnostics(log *logger.Logger, sampleLimit int) *LogDiagnostics {
	if log == nil {
		log = logger.Named("reconcile")
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	return &LogDiagnostics{log: log, sampleLimit: sampleLimit}
}

// SkippedRecord logs one malformed source record
func (d *LogDiagnostics) SkippedRecord(side, source string, err error) {
	d.log.Warn().
		Str("side", side).
		Str("source", source).
		Err(err).
		Msg("skipped malformed record")
}

// OrphanOutcome logs a verdict that matched no pending submission
func (d *LogDiagnostics) OrphanOutcome(out domain.OutcomeRecord) {
	d.log.Warn().
		Str("key", out.Key().String()).
		Str("verdict", out.Verdict.String()).
		Str("source", out.Source).
		Msg("orphan verdict")
}

// ResidualSubmissions logs the submissions left without a verdict,
// truncated to the sample limit
func (d *LogDiagnostics) ResidualSubmissions(subs []domain.SubmissionRecord) {
	if len(subs) == 0 {
		return
	}
	n := len(subs)
	shown := n
	if shown > d.sampleLimit {
		shown = d.sampleLimit
	}
	keys := make([]string, 0, shown)
	for _, sub := range subs[:shown] {
		keys = append(keys, sub.Key().String())
	}
	ev := d.log.Warn().Int("residual", n).Strs("sample", keys)
	if n > shown {
		ev = ev.Int("truncated", n-shown)
	}
	ev.Msg("submissions without verdict")
}
