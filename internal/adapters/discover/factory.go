package discover

import (
	"context"
	"io/fs"
	"os"

	perr "matchbook/internal/platform/errors"
	"matchbook/internal/services/reconcile/domain"
)

// Factory builds the two record streams for a drop directory tree.
// It satisfies the reconcile service's SourceFactory seam
type Factory struct {
	fsys fs.FS
}

// NewFactory returns a factory that roots each run at the request's Root
// on the OS filesystem
func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryFS pins the factory to fsys and ignores the request root;
// used by tests and embedded fixtures
func NewFactoryFS(fsys fs.FS) *Factory {
	return &Factory{fsys: fsys}
}

func (f *Factory) root(req domain.RunRequest) (fs.FS, error) {
	if f.fsys != nil {
		return f.fsys, nil
	}
	if req.Root == "" {
		return nil, perr.InvalidArgf("reconcile root is required")
	}
	if _, err := os.Stat(req.Root); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "reconcile root %s", req.Root)
	}
	return os.DirFS(req.Root), nil
}

// Submissions opens the submission stream for the request window
func (f *Factory) Submissions(_ context.Context, req domain.RunRequest) (domain.SubmissionSource, error) {
	fsys, err := f.root(req)
	if err != nil {
		return nil, err
	}
	return NewSubmissions(fsys, Options{From: req.From, To: req.To})
}

// Outcomes opens the verdict stream for the request window
func (f *Factory) Outcomes(_ context.Context, req domain.RunRequest) (domain.OutcomeSource, error) {
	fsys, err := f.root(req)
	if err != nil {
		return nil, err
	}
	return NewOutcomes(fsys, Options{From: req.From, To: req.To})
}
