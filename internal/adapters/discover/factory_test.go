package discover

import (
	"context"
	"io"
	"os"
	"testing"
	"testing/fstest"

	"matchbook/internal/platform/logger"
	"matchbook/internal/services/reconcile/domain"
	"matchbook/internal/services/reconcile/service"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Level: "error", Format: "json", Writer: io.Discard})
	os.Exit(m.Run())
}

type memSink struct {
	enriched []domain.EnrichedRecord
	events   []domain.VerdictEvent
}

func (s *memSink) PublishEnriched(_ context.Context, rec domain.EnrichedRecord) error {
	s.enriched = append(s.enriched, rec)
	return nil
}

func (s *memSink) PublishVerdict(_ context.Context, ev domain.VerdictEvent) error {
	s.events = append(s.events, ev)
	return nil
}

type nopDiag struct{}

func (nopDiag) SkippedRecord(string, string, error)           {}
func (nopDiag) OrphanOutcome(domain.OutcomeRecord)            {}
func (nopDiag) ResidualSubmissions([]domain.SubmissionRecord) {}

// Full pass over a fixture tree: both streams discovered, correlated, and
// published through the real service
func TestFactory_EndToEnd(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"submissions-2024-01.log": &fstest.MapFile{Data: []byte(
			"110001|2024-01-15|UDS|12|02||coord-07|2024-01-15T09:30:00Z\n" +
				"110002|2024-01-16|FTLD|8|||coord-07|2024-01-16T10:00:00Z\n" +
				"110003|2024-01-17|CSF|3|||coord-02|2024-01-17T08:15:00Z\n",
		)},
		"verdicts/2024-01-20.json": &fstest.MapFile{Data: []byte(`[
			{"subject_id":"110001","visit_date":"2024-01-15","packet":"uds",
			 "visit_num":"99","form_version":"3.4",
			 "verdict":"accepted","reviewed_by":"qc-02","completed_at":"2024-01-20T14:00:00Z"},
			{"subject_id":"110002","visit_date":"2024-01-16","packet":"FTLD",
			 "verdict":"rejected","reviewed_by":"qc-02"},
			{"subject_id":"999999","visit_date":"2024-01-15","packet":"UDS",
			 "verdict":"accepted","reviewed_by":"qc-02"}
		]`)},
	}

	f := NewFactoryFS(fsys)
	req := domain.RunRequest{Root: "/ignored"}

	subs, err := f.Submissions(context.Background(), req)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	outs, err := f.Outcomes(context.Background(), req)
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}

	snk := &memSink{}
	tally, err := service.New(snk, nopDiag{}).Run(context.Background(), subs, outs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := domain.Tally{Submissions: 3, Outcomes: 3, Matched: 2, Orphaned: 1, Residual: 1}
	if tally != want {
		t.Fatalf("tally = %+v, want %+v", tally, want)
	}
	if len(snk.enriched) != 2 || len(snk.events) != 1 {
		t.Fatalf("published %d/%d, want 2/1", len(snk.enriched), len(snk.events))
	}
	if snk.events[0].SubjectID != "110001" {
		t.Fatalf("event = %+v", snk.events[0])
	}

	// the submission's own visit_num survives the merge; the form_version it
	// never carried comes from the verdict side
	first := snk.enriched[0]
	if first.VisitNum == nil || *first.VisitNum != "02" {
		t.Fatalf("visit_num = %v, want 02", first.VisitNum)
	}
	if first.FormVersion == nil || *first.FormVersion != "3.4" {
		t.Fatalf("form_version = %v, want 3.4", first.FormVersion)
	}
}

func TestFactory_RequiresRoot(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	if _, err := f.Submissions(context.Background(), domain.RunRequest{}); err == nil {
		t.Fatal("empty root should fail")
	}
	if _, err := f.Outcomes(context.Background(), domain.RunRequest{Root: "/does/not/exist"}); err == nil {
		t.Fatal("missing root should fail")
	}
}
