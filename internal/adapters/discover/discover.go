// Package discover streams packet submissions and QC verdicts out of a
// center's drop directory. Submissions arrive as pipe-delimited log lines
// in submissions-*.log files at the root; verdicts arrive as JSON arrays
// under verdicts/. Both sides surface the same lazy Next/Close contract
// and wrap malformed records so a run can count and continue
package discover

import (
	"errors"
	"io/fs"
	"path"
	"sort"

	"github.com/go-playground/validator/v10"

	"matchbook/internal/core/recordkey"
	perr "matchbook/internal/platform/errors"
)

// validate checks raw rows before they become domain records
var validate = validator.New(validator.WithRequiredStructEnabled())

// Options bound a discovery pass to a visit-date window
// zero From or To leaves that side open
type Options struct {
	From recordkey.Date
	To   recordkey.Date
}

// optional maps an empty column to absent
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// includes reports whether d falls inside the window
func (o Options) includes(d recordkey.Date) bool {
	if !o.From.IsZero() && d.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && o.To.Before(d) {
		return false
	}
	return true
}

// listFiles walks fsys under dir and returns paths whose base name matches
// pattern, sorted so runs are deterministic. A missing dir is an empty
// stream, not an error; a center may not have produced that side yet
func listFiles(fsys fs.FS, dir, pattern string) ([]string, error) {
	if _, err := fs.Stat(fsys, dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var out []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, mErr := path.Match(pattern, path.Base(p))
		if mErr != nil {
			return mErr
		}
		if ok {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "walk %s", dir)
	}
	sort.Strings(out)
	return out, nil
}
