package service

import (
	"context"
	"testing"
	"time"

	"matchbook/internal/modkit/repokit"
	perr "matchbook/internal/platform/errors"
	"matchbook/internal/services/api/runs/domain"
	"matchbook/internal/services/api/runs/repo"
)

type stubTx struct{}

func (stubTx) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (stubTx) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (stubTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error   { return fn(stubTx{}) }

type fakeRepo struct {
	byID  repo.RowRun
	err   error
	rows  []repo.RowRun
	query struct {
		status, root string
		limit        int
	}
}

func (f *fakeRepo) ByID(_ context.Context, _ string) (repo.RowRun, error) {
	return f.byID, f.err
}

func (f *fakeRepo) Query(_ context.Context, status, root string, limit int) ([]repo.RowRun, error) {
	f.query.status, f.query.root, f.query.limit = status, root, limit
	return f.rows, f.err
}

func binderFor(r repo.Repo) repokit.Binder[repo.Repo] {
	return repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return r })
}

func row() repo.RowRun {
	started := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return repo.RowRun{
		ID:         "6b1e1c2e-8f6f-4c47-9a5d-111111111111",
		Root:       "/data/center-11",
		DateFrom:   &from,
		Status:     "succeeded",
		StartedAt:  started,
		FinishedAt: &finished,
		Tally:      []byte(`{"submissions":3,"outcomes":3,"matched":2,"orphaned":1,"residual":1}`),
	}
}

func TestGet_View(t *testing.T) {
	t.Parallel()

	s := New(stubTx{}, binderFor(&fakeRepo{byID: row()}))
	v, err := s.Get(context.Background(), "6b1e1c2e-8f6f-4c47-9a5d-111111111111")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Status != "succeeded" || v.Root != "/data/center-11" {
		t.Fatalf("view = %+v", v)
	}
	if v.DateFrom != "2024-01-01" || v.DateTo != "" {
		t.Fatalf("dates = %q %q", v.DateFrom, v.DateTo)
	}
	if v.StartedAt != "2024-02-01T10:00:00Z" || v.FinishedAt != "2024-02-01T10:00:42Z" {
		t.Fatalf("times = %q %q", v.StartedAt, v.FinishedAt)
	}
	if v.Tally.Matched != 2 || v.Tally.Residual != 1 {
		t.Fatalf("tally = %+v", v.Tally)
	}
}

func TestGet_RejectsBadID(t *testing.T) {
	t.Parallel()

	s := New(stubTx{}, binderFor(&fakeRepo{}))
	_, err := s.Get(context.Background(), "not-a-uuid")
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestQuery_PassesFilters(t *testing.T) {
	t.Parallel()

	fr := &fakeRepo{rows: []repo.RowRun{row()}}
	s := New(stubTx{}, binderFor(fr))

	out, err := s.Query(context.Background(), domain.QueryInput{Status: "failed", Root: "/data", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d", len(out))
	}
	if fr.query.status != "failed" || fr.query.root != "/data" || fr.query.limit != 10 {
		t.Fatalf("filters not forwarded: %+v", fr.query)
	}
}

func TestQuery_BadTallyIsJSONError(t *testing.T) {
	t.Parallel()

	bad := row()
	bad.Tally = []byte(`{`)
	s := New(stubTx{}, binderFor(&fakeRepo{rows: []repo.RowRun{bad}}))

	_, err := s.Query(context.Background(), domain.QueryInput{})
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want json error, got %v", err)
	}
}
