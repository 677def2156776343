package service

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/platform/logger"
	"matchbook/internal/services/reconcile/domain"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Level: "error", Format: "json", Writer: io.Discard})
	os.Exit(m.Run())
}

type subStep struct {
	rec domain.SubmissionRecord
	err error
}

type subSource struct {
	steps  []subStep
	i      int
	closed bool
}

func (s *subSource) Next() (domain.SubmissionRecord, error) {
	if s.i >= len(s.steps) {
		return domain.SubmissionRecord{}, io.EOF
	}
	st := s.steps[s.i]
	s.i++
	return st.rec, st.err
}

func (s *subSource) Close() error { s.closed = true; return nil }

type outStep struct {
	rec domain.OutcomeRecord
	err error
}

type outSource struct {
	steps  []outStep
	i      int
	closed bool
}

func (s *outSource) Next() (domain.OutcomeRecord, error) {
	if s.i >= len(s.steps) {
		return domain.OutcomeRecord{}, io.EOF
	}
	st := s.steps[s.i]
	s.i++
	return st.rec, st.err
}

func (s *outSource) Close() error { s.closed = true; return nil }

type captureSink struct {
	enriched     []domain.EnrichedRecord
	events       []domain.VerdictEvent
	failEnriched map[string]bool
	failVerdict  map[string]bool
}

func (c *captureSink) PublishEnriched(_ context.Context, rec domain.EnrichedRecord) error {
	if c.failEnriched[rec.Key().String()] {
		return io.ErrUnexpectedEOF
	}
	c.enriched = append(c.enriched, rec)
	return nil
}

func (c *captureSink) PublishVerdict(_ context.Context, ev domain.VerdictEvent) error {
	k := ev.SubjectID + "/" + ev.VisitDate.String() + "/" + ev.Packet
	if c.failVerdict[k] {
		return io.ErrUnexpectedEOF
	}
	c.events = append(c.events, ev)
	return nil
}

type captureDiag struct {
	skipped  []string
	orphans  []domain.OutcomeRecord
	residual []domain.SubmissionRecord
}

func (c *captureDiag) SkippedRecord(side, source string, _ error) {
	c.skipped = append(c.skipped, side+":"+source)
}

func (c *captureDiag) OrphanOutcome(out domain.OutcomeRecord) {
	c.orphans = append(c.orphans, out)
}

func (c *captureDiag) ResidualSubmissions(subs []domain.SubmissionRecord) {
	c.residual = append(c.residual, subs...)
}

func out(subject, day, packet string, v domain.Verdict) domain.OutcomeRecord {
	o := domain.OutcomeRecord{
		SubjectID:   subject,
		Packet:      packet,
		Verdict:     v,
		ReviewedBy:  "qc-01",
		CompletedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	d, err := recordkey.ParseDate(day)
	if err != nil {
		panic(err)
	}
	o.VisitDate = d
	return o
}

func TestRun_MatchesAndTallies(t *testing.T) {
	subs := &subSource{steps: []subStep{
		{rec: sub("110001", "2024-01-15", "UDS")},
		{rec: sub("110002", "2024-01-16", "FTLD")},
		{rec: sub("110003", "2024-01-17", "CSF")},
	}}
	outs := &outSource{steps: []outStep{
		{rec: out("110001", "2024-01-15", "uds", domain.VerdictAccepted)},
		{rec: out("110002", "2024-01-16", "FTLD", domain.VerdictRejected)},
		{rec: out("999999", "2024-01-15", "UDS", domain.VerdictAccepted)},
	}}
	sink := &captureSink{}
	diag := &captureDiag{}

	tally, err := New(sink, diag).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := domain.Tally{Submissions: 3, Outcomes: 3, Matched: 2, Orphaned: 1, Residual: 1}
	if tally != want {
		t.Fatalf("tally = %+v, want %+v", tally, want)
	}
	if len(sink.enriched) != 2 {
		t.Fatalf("published %d enriched, want 2", len(sink.enriched))
	}
	// only the accepted verdict produces the secondary event
	if len(sink.events) != 1 || sink.events[0].SubjectID != "110001" {
		t.Fatalf("events = %+v", sink.events)
	}
	if len(diag.orphans) != 1 || diag.orphans[0].SubjectID != "999999" {
		t.Fatalf("orphans = %+v", diag.orphans)
	}
	if len(diag.residual) != 1 || diag.residual[0].SubjectID != "110003" {
		t.Fatalf("residual = %+v", diag.residual)
	}
	if !subs.closed || !outs.closed {
		t.Fatal("sources should be closed")
	}
}

func TestRun_EnrichedCarriesBothSides(t *testing.T) {
	s := sub("110001", "2024-01-15", "UDS")
	s.FormCount = 12
	s.SubmittedBy = "coord-07"
	o := out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)
	o.Reason = "complete"

	sink := &captureSink{}
	_, err := New(sink, &captureDiag{}).Run(context.Background(),
		&subSource{steps: []subStep{{rec: s}}},
		&outSource{steps: []outStep{{rec: o}}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec := sink.enriched[0]
	if rec.FormCount != 12 || rec.SubmittedBy != "coord-07" {
		t.Fatalf("submission side lost: %+v", rec)
	}
	if rec.Verdict != domain.VerdictAccepted || rec.Reason != "complete" ||
		rec.ReviewedBy != o.ReviewedBy || !rec.CompletedAt.Equal(o.CompletedAt) {
		t.Fatalf("verdict side lost: %+v", rec)
	}
}

func TestRun_AtMostOneConsumption(t *testing.T) {
	subs := &subSource{steps: []subStep{{rec: sub("110001", "2024-01-15", "UDS")}}}
	outs := &outSource{steps: []outStep{
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictDeferred)},
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)},
	}}
	sink := &captureSink{}
	diag := &captureDiag{}

	tally, err := New(sink, diag).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Matched != 1 || tally.Orphaned != 1 {
		t.Fatalf("tally = %+v", tally)
	}
	// the first verdict wins; the second cannot re-consume the key
	if len(sink.enriched) != 1 || sink.enriched[0].Verdict != domain.VerdictDeferred {
		t.Fatalf("enriched = %+v", sink.enriched)
	}
	if len(sink.events) != 0 {
		t.Fatalf("no event expected for deferred, got %+v", sink.events)
	}
}

func TestRun_SkippedRecordsCountedAndSurvived(t *testing.T) {
	subs := &subSource{steps: []subStep{
		{rec: domain.SubmissionRecord{Source: "submissions-2024-01.log"},
			err: domain.ErrSkipRecord},
		{rec: sub("110001", "2024-01-15", "UDS")},
	}}
	outs := &outSource{steps: []outStep{
		{rec: domain.OutcomeRecord{Source: "verdicts/bad.json"}, err: domain.ErrSkipRecord},
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)},
	}}
	diag := &captureDiag{}

	tally, err := New(&captureSink{}, diag).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.SkippedSubmissions != 1 || tally.SkippedOutcomes != 1 || tally.Matched != 1 {
		t.Fatalf("tally = %+v", tally)
	}
	if len(diag.skipped) != 2 {
		t.Fatalf("skipped diag = %v", diag.skipped)
	}
}

func TestRun_DuplicateSubmissionReplaced(t *testing.T) {
	first := sub("110001", "2024-01-15", "UDS")
	first.FormCount = 3
	second := sub("110001", "2024-01-15", "UDS")
	second.FormCount = 12

	subs := &subSource{steps: []subStep{{rec: first}, {rec: second}}}
	outs := &outSource{steps: []outStep{
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)},
	}}
	sink := &captureSink{}

	tally, err := New(sink, &captureDiag{}).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Submissions != 2 || tally.Replaced != 1 || tally.Matched != 1 || tally.Residual != 0 {
		t.Fatalf("tally = %+v", tally)
	}
	if sink.enriched[0].FormCount != 12 {
		t.Fatalf("latest submission should win, got %+v", sink.enriched[0])
	}
}

func TestRun_PublishFailureContinues(t *testing.T) {
	subs := &subSource{steps: []subStep{
		{rec: sub("110001", "2024-01-15", "UDS")},
		{rec: sub("110002", "2024-01-16", "UDS")},
	}}
	outs := &outSource{steps: []outStep{
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)},
		{rec: out("110002", "2024-01-16", "UDS", domain.VerdictAccepted)},
	}}
	sink := &captureSink{failEnriched: map[string]bool{"110001/2024-01-15/UDS": true}}

	tally, err := New(sink, &captureDiag{}).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Matched != 2 || tally.PublishFailures != 1 {
		t.Fatalf("tally = %+v", tally)
	}
	// the failed pair must not leak its verdict event either
	if len(sink.events) != 1 || sink.events[0].SubjectID != "110002" {
		t.Fatalf("events = %+v", sink.events)
	}
}

func TestRun_VerdictPublishFailureCounted(t *testing.T) {
	subs := &subSource{steps: []subStep{{rec: sub("110001", "2024-01-15", "UDS")}}}
	outs := &outSource{steps: []outStep{
		{rec: out("110001", "2024-01-15", "UDS", domain.VerdictAccepted)},
	}}
	sink := &captureSink{failVerdict: map[string]bool{"110001/2024-01-15/UDS": true}}

	tally, err := New(sink, &captureDiag{}).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.PublishFailures != 1 || len(sink.enriched) != 1 || len(sink.events) != 0 {
		t.Fatalf("tally = %+v, enriched = %d, events = %d",
			tally, len(sink.enriched), len(sink.events))
	}
}

func TestRun_FatalSourceErrorAborts(t *testing.T) {
	subs := &subSource{steps: []subStep{
		{rec: sub("110001", "2024-01-15", "UDS")},
		{err: io.ErrUnexpectedEOF},
	}}

	_, err := New(&captureSink{}, &captureDiag{}).Run(context.Background(), subs, &outSource{})
	if err == nil {
		t.Fatal("expected error from fatal source failure")
	}
	if !subs.closed {
		t.Fatal("source should be closed even on abort")
	}
}

func TestRun_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	subs := &subSource{steps: []subStep{{rec: sub("110001", "2024-01-15", "UDS")}}}
	_, err := New(&captureSink{}, &captureDiag{}).Run(ctx, subs, &outSource{})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestRun_EmptyStreams(t *testing.T) {
	tally, err := New(&captureSink{}, &captureDiag{}).Run(
		context.Background(), &subSource{}, &outSource{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally != (domain.Tally{}) {
		t.Fatalf("tally = %+v, want zero", tally)
	}
}
