package discover

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/services/reconcile/domain"
)

// submissionFields is the pipe-delimited layout of one log line:
// subject_id|visit_date|packet|form_count|visit_num|form_version|submitted_by|submitted_at
// visit_num and form_version are optional; an empty column means the
// center never recorded the value
const submissionFields = 8

// submissionRow is the raw shape of a line before validation
type submissionRow struct {
	SubjectID   string `validate:"required"`
	VisitDate   string `validate:"required"`
	Packet      string `validate:"required"`
	FormCount   string `validate:"required,number"`
	VisitNum    string
	FormVersion string
	SubmittedBy string
	SubmittedAt string
}

// Submissions streams submission records from submissions-*.log files
type Submissions struct {
	fsys  fs.FS
	files []string
	opts  Options

	file io.ReadCloser
	sc   *bufio.Scanner
	name string
	line int
	err  error
}

// NewSubmissions discovers the log files under the root of fsys
func NewSubmissions(fsys fs.FS, opts Options) (*Submissions, error) {
	files, err := listFiles(fsys, ".", "submissions-*.log")
	if err != nil {
		return nil, err
	}
	return &Submissions{fsys: fsys, files: files, opts: opts}, nil
}

// Next returns the next in-window submission. Malformed lines come back
// wrapping domain.ErrSkipRecord with the record's Source filled so the
// caller can report where; io.EOF ends the stream
func (s *Submissions) Next() (domain.SubmissionRecord, error) {
	if s.err != nil {
		return domain.SubmissionRecord{}, s.err
	}
	for {
		if s.sc == nil {
			if err := s.openNext(); err != nil {
				s.err = err
				return domain.SubmissionRecord{}, err
			}
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				s.err = err
				return domain.SubmissionRecord{}, err
			}
			s.closeCurrent()
			continue
		}
		s.line++

		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := s.parse(line)
		if err != nil {
			at := fmt.Sprintf("%s:%d", s.name, s.line)
			return domain.SubmissionRecord{Source: at},
				fmt.Errorf("%s: %v: %w", at, err, domain.ErrSkipRecord)
		}
		if !s.opts.includes(rec.VisitDate) {
			continue
		}
		return rec, nil
	}
}

func (s *Submissions) parse(line string) (domain.SubmissionRecord, error) {
	parts := strings.Split(line, "|")
	if len(parts) != submissionFields {
		return domain.SubmissionRecord{},
			fmt.Errorf("want %d fields, got %d", submissionFields, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	row := submissionRow{
		SubjectID:   parts[0],
		VisitDate:   parts[1],
		Packet:      parts[2],
		FormCount:   parts[3],
		VisitNum:    parts[4],
		FormVersion: parts[5],
		SubmittedBy: parts[6],
		SubmittedAt: parts[7],
	}
	if err := validate.Struct(row); err != nil {
		return domain.SubmissionRecord{}, err
	}

	visit, err := recordkey.ParseDate(row.VisitDate)
	if err != nil {
		return domain.SubmissionRecord{}, err
	}
	count, err := strconv.Atoi(row.FormCount)
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("form_count: %v", err)
	}

	rec := domain.SubmissionRecord{
		SubjectID:   row.SubjectID,
		VisitDate:   visit,
		Packet:      row.Packet,
		FormCount:   count,
		VisitNum:    optional(row.VisitNum),
		FormVersion: optional(row.FormVersion),
		SubmittedBy: row.SubmittedBy,
		Source:      s.name,
	}
	if row.SubmittedAt != "" {
		at, err := time.Parse(time.RFC3339, row.SubmittedAt)
		if err != nil {
			return domain.SubmissionRecord{}, fmt.Errorf("submitted_at: %v", err)
		}
		rec.SubmittedAt = at.UTC()
	}
	return rec, nil
}

func (s *Submissions) openNext() error {
	if len(s.files) == 0 {
		return io.EOF
	}
	name := s.files[0]
	s.files = s.files[1:]

	f, err := s.fsys.Open(name)
	if err != nil {
		return err
	}
	s.file = f
	s.sc = bufio.NewScanner(f)
	s.name = name
	s.line = 0
	return nil
}

func (s *Submissions) closeCurrent() {
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = nil
	s.sc = nil
}

// Close releases the current file, if any
func (s *Submissions) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.sc = nil
	return err
}
