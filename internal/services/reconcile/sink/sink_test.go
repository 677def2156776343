package sink

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/platform/logger"
	"matchbook/internal/platform/store"
	"matchbook/internal/services/reconcile/domain"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Level: "error", Format: "json", Writer: io.Discard})
	os.Exit(m.Run())
}

type fakeRepo struct {
	enriched []domain.EnrichedRecord
	events   []domain.VerdictEvent
	dupe     bool
	err      error
}

func (f *fakeRepo) StartRun(context.Context, domain.Run) error  { return nil }
func (f *fakeRepo) FinishRun(context.Context, domain.Run) error { return nil }

func (f *fakeRepo) InsertEnriched(_ context.Context, _ uuid.UUID, rec domain.EnrichedRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.dupe {
		return false, nil
	}
	f.enriched = append(f.enriched, rec)
	return true, nil
}

func (f *fakeRepo) InsertVerdictEvent(_ context.Context, _ uuid.UUID, ev domain.VerdictEvent) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.events = append(f.events, ev)
	return true, nil
}

type fakeCH struct {
	table string
	cols  []string
	rows  [][]any
}

func (f *fakeCH) Insert(_ context.Context, table string, cols []string, rows [][]any) error {
	f.table = table
	f.cols = cols
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                              { return nil }

func enriched() domain.EnrichedRecord {
	return domain.EnrichedRecord{
		SubjectID:   "110001",
		VisitDate:   recordkey.Date{Year: 2024, Month: time.January, Day: 15},
		Packet:      "UDS",
		Verdict:     domain.VerdictAccepted,
		ReviewedBy:  "qc-02",
		CompletedAt: time.Date(2024, 1, 20, 14, 0, 0, 0, time.UTC),
	}
}

func TestStore_VerdictGoesToClickhouse(t *testing.T) {
	t.Parallel()

	rp := &fakeRepo{}
	ch := &fakeCH{}
	s := NewStore(rp, ch, uuid.New())

	if err := s.PublishVerdict(context.Background(), domain.EventOf(enriched())); err != nil {
		t.Fatalf("PublishVerdict: %v", err)
	}
	if ch.table != "verdict_events" || len(ch.rows) != 1 {
		t.Fatalf("columnar insert missing: table=%q rows=%d", ch.table, len(ch.rows))
	}
	if len(ch.cols) != len(ch.rows[0]) {
		t.Fatalf("cols/values mismatch: %d vs %d", len(ch.cols), len(ch.rows[0]))
	}
	if len(rp.events) != 0 {
		t.Fatal("relational fallback should not fire when columnar seam is set")
	}
}

func TestStore_VerdictFallsBackToPostgres(t *testing.T) {
	t.Parallel()

	rp := &fakeRepo{}
	s := NewStore(rp, nil, uuid.New())

	if err := s.PublishVerdict(context.Background(), domain.EventOf(enriched())); err != nil {
		t.Fatalf("PublishVerdict: %v", err)
	}
	if len(rp.events) != 1 {
		t.Fatalf("fallback insert missing: %d", len(rp.events))
	}
}

func TestStore_EnrichedDuplicateIsNotError(t *testing.T) {
	t.Parallel()

	rp := &fakeRepo{dupe: true}
	s := NewStore(rp, nil, uuid.New())

	if err := s.PublishEnriched(context.Background(), enriched()); err != nil {
		t.Fatalf("duplicate should be quiet: %v", err)
	}
}

func TestStore_EnrichedErrorPropagates(t *testing.T) {
	t.Parallel()

	rp := &fakeRepo{err: io.ErrUnexpectedEOF}
	s := NewStore(rp, nil, uuid.New())

	if err := s.PublishEnriched(context.Background(), enriched()); err == nil {
		t.Fatal("expected error")
	}
}

func TestDryRun_WritesNothing(t *testing.T) {
	t.Parallel()

	d := NewDryRun()
	rec := enriched()

	if err := d.PublishEnriched(context.Background(), rec); err != nil {
		t.Fatalf("PublishEnriched: %v", err)
	}
	if err := d.PublishVerdict(context.Background(), domain.EventOf(rec)); err != nil {
		t.Fatalf("PublishVerdict: %v", err)
	}
	if d.Enriched != 1 || d.Events != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", d.Enriched, d.Events)
	}
}
