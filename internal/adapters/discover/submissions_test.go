package discover

import (
	"errors"
	"io"
	"testing"
	"testing/fstest"
	"time"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/services/reconcile/domain"
)

func drainSubmissions(t *testing.T, src domain.SubmissionSource) (recs []domain.SubmissionRecord, skips int) {
	t.Helper()
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return recs, skips
		}
		if errors.Is(err, domain.ErrSkipRecord) {
			skips++
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		recs = append(recs, rec)
	}
}

func TestSubmissions_ReadsAcrossFiles(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"submissions-2024-01.log": &fstest.MapFile{Data: []byte(
			"# center 11 drop\n" +
				"110001|2024-01-15|UDS|12|02|3.1|coord-07|2024-01-15T09:30:00Z\n" +
				"\n" +
				"110002|2024-01-16|ftld|8|||coord-07|2024-01-16T10:00:00Z\n",
		)},
		"submissions-2024-02.log": &fstest.MapFile{Data: []byte(
			"110003|2024-02-01|CSF|3|||coord-02|2024-02-01T08:15:00Z\n",
		)},
		"notes.txt": &fstest.MapFile{Data: []byte("ignore me")},
	}

	src, err := NewSubmissions(fsys, Options{})
	if err != nil {
		t.Fatalf("NewSubmissions: %v", err)
	}
	recs, skips := drainSubmissions(t, src)

	if skips != 0 {
		t.Fatalf("skips = %d, want 0", skips)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	// files are visited in sorted order
	if recs[0].SubjectID != "110001" || recs[2].SubjectID != "110003" {
		t.Fatalf("order wrong: %v", recs)
	}
	if recs[0].FormCount != 12 || recs[0].SubmittedBy != "coord-07" {
		t.Fatalf("fields wrong: %+v", recs[0])
	}
	if recs[0].VisitNum == nil || *recs[0].VisitNum != "02" ||
		recs[0].FormVersion == nil || *recs[0].FormVersion != "3.1" {
		t.Fatalf("supplementary fields wrong: %+v", recs[0])
	}
	if recs[1].VisitNum != nil || recs[1].FormVersion != nil {
		t.Fatalf("empty columns should parse as absent: %+v", recs[1])
	}
	if recs[0].Source != "submissions-2024-01.log" {
		t.Fatalf("source = %q", recs[0].Source)
	}
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !recs[0].SubmittedAt.Equal(want) {
		t.Fatalf("submitted_at = %v", recs[0].SubmittedAt)
	}
}

func TestSubmissions_MalformedLinesSkip(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"submissions-2024-01.log": &fstest.MapFile{Data: []byte(
			"110001|2024-01-15|UDS|12|||coord-07|2024-01-15T09:30:00Z\n" +
				"only|three|fields\n" +
				"110002|not-a-date|UDS|5|||coord-01|2024-01-16T10:00:00Z\n" +
				"110003|2024-01-17|UDS|many|||coord-01|2024-01-17T10:00:00Z\n" +
				"|2024-01-18|UDS|4|||coord-01|2024-01-18T10:00:00Z\n" +
				"110004|2024-01-19|UDS|4|||coord-01|2024-01-19T10:00:00Z\n",
		)},
	}

	src, err := NewSubmissions(fsys, Options{})
	if err != nil {
		t.Fatalf("NewSubmissions: %v", err)
	}
	recs, skips := drainSubmissions(t, src)

	if len(recs) != 2 || skips != 4 {
		t.Fatalf("records = %d skips = %d, want 2 and 4", len(recs), skips)
	}
}

func TestSubmissions_SkipErrorNamesLine(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"submissions-2024-01.log": &fstest.MapFile{Data: []byte(
			"110001|2024-01-15|UDS|12|||coord-07|2024-01-15T09:30:00Z\n" +
				"broken line\n",
		)},
	}

	src, err := NewSubmissions(fsys, Options{})
	if err != nil {
		t.Fatalf("NewSubmissions: %v", err)
	}
	if _, err := src.Next(); err != nil {
		t.Fatalf("first line should parse: %v", err)
	}
	rec, err := src.Next()
	if !errors.Is(err, domain.ErrSkipRecord) {
		t.Fatalf("want skip error, got %v", err)
	}
	if rec.Source != "submissions-2024-01.log:2" {
		t.Fatalf("source = %q", rec.Source)
	}
}

func TestSubmissions_WindowFilters(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"submissions-2024-01.log": &fstest.MapFile{Data: []byte(
			"110001|2024-01-10|UDS|1|||c|2024-01-10T09:00:00Z\n" +
				"110002|2024-01-15|UDS|1|||c|2024-01-15T09:00:00Z\n" +
				"110003|2024-01-20|UDS|1|||c|2024-01-20T09:00:00Z\n",
		)},
	}

	from, _ := recordkey.ParseDate("2024-01-12")
	to, _ := recordkey.ParseDate("2024-01-18")
	src, err := NewSubmissions(fsys, Options{From: from, To: to})
	if err != nil {
		t.Fatalf("NewSubmissions: %v", err)
	}
	recs, skips := drainSubmissions(t, src)

	if skips != 0 {
		t.Fatalf("window filtering must not count as skips, got %d", skips)
	}
	if len(recs) != 1 || recs[0].SubjectID != "110002" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestSubmissions_EmptyRoot(t *testing.T) {
	t.Parallel()

	src, err := NewSubmissions(fstest.MapFS{}, Options{})
	if err != nil {
		t.Fatalf("NewSubmissions: %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("want EOF, got %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
