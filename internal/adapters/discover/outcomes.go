package discover

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/services/reconcile/domain"
)

// verdictsDir is where review documents land relative to the drop root
const verdictsDir = "verdicts"

// outcomeDoc is the raw JSON shape of one verdict before validation
type outcomeDoc struct {
	SubjectID   string `json:"subject_id"   validate:"required"`
	VisitDate   string `json:"visit_date"   validate:"required"`
	Packet      string `json:"packet"       validate:"required"`
	Verdict     string `json:"verdict"      validate:"required"`
	VisitNum    string `json:"visit_num"`
	FormVersion string `json:"form_version"`
	Reason      string `json:"reason"`
	ReviewedBy  string `json:"reviewed_by"`
	CompletedAt string `json:"completed_at"`
}

// Outcomes streams QC verdicts from verdicts/*.json files, each holding a
// JSON array of verdict documents. Elements are decoded one at a time so a
// large review batch never loads whole
type Outcomes struct {
	fsys  fs.FS
	files []string
	opts  Options

	file io.ReadCloser
	dec  *json.Decoder
	name string
	idx  int
	err  error
}

// NewOutcomes discovers the verdict documents under fsys
func NewOutcomes(fsys fs.FS, opts Options) (*Outcomes, error) {
	files, err := listFiles(fsys, verdictsDir, "*.json")
	if err != nil {
		return nil, err
	}
	return &Outcomes{fsys: fsys, files: files, opts: opts}, nil
}

// Next returns the next in-window verdict with the same skip contract as
// the submission side
func (o *Outcomes) Next() (domain.OutcomeRecord, error) {
	if o.err != nil {
		return domain.OutcomeRecord{}, o.err
	}
	for {
		if o.dec == nil {
			if err := o.openNext(); err != nil {
				var bad *badFileError
				if errors.As(err, &bad) {
					return domain.OutcomeRecord{Source: bad.name},
						fmt.Errorf("%s: %v: %w", bad.name, bad.cause, domain.ErrSkipRecord)
				}
				o.err = err
				return domain.OutcomeRecord{}, err
			}
		}
		if !o.dec.More() {
			// consume the closing bracket; a truncated file surfaces here
			if _, err := o.dec.Token(); err != nil {
				at := o.name
				o.closeCurrent()
				return domain.OutcomeRecord{Source: at},
					fmt.Errorf("%s: %v: %w", at, err, domain.ErrSkipRecord)
			}
			o.closeCurrent()
			continue
		}

		o.idx++
		var doc outcomeDoc
		if err := o.dec.Decode(&doc); err != nil {
			at := fmt.Sprintf("%s[%d]", o.name, o.idx-1)
			// a type mismatch consumes the offending value and leaves the
			// stream usable, so only that element is lost; anything else
			// means the array itself is broken and the file is abandoned
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				o.closeCurrent()
			}
			return domain.OutcomeRecord{Source: at},
				fmt.Errorf("%s: %v: %w", at, err, domain.ErrSkipRecord)
		}

		rec, err := o.convert(doc)
		if err != nil {
			at := fmt.Sprintf("%s[%d]", o.name, o.idx-1)
			return domain.OutcomeRecord{Source: at},
				fmt.Errorf("%s: %v: %w", at, err, domain.ErrSkipRecord)
		}
		if !o.opts.includes(rec.VisitDate) {
			continue
		}
		return rec, nil
	}
}

func (o *Outcomes) convert(doc outcomeDoc) (domain.OutcomeRecord, error) {
	if err := validate.Struct(doc); err != nil {
		return domain.OutcomeRecord{}, err
	}
	visit, err := recordkey.ParseDate(doc.VisitDate)
	if err != nil {
		return domain.OutcomeRecord{}, err
	}
	verdict, ok := domain.ParseVerdict(doc.Verdict)
	if !ok {
		return domain.OutcomeRecord{}, fmt.Errorf("unknown verdict %q", doc.Verdict)
	}

	rec := domain.OutcomeRecord{
		SubjectID:   doc.SubjectID,
		VisitDate:   visit,
		Packet:      doc.Packet,
		VisitNum:    optional(doc.VisitNum),
		FormVersion: optional(doc.FormVersion),
		Verdict:     verdict,
		Reason:      doc.Reason,
		ReviewedBy:  doc.ReviewedBy,
		Source:      o.name,
	}
	if doc.CompletedAt != "" {
		at, err := time.Parse(time.RFC3339, doc.CompletedAt)
		if err != nil {
			return domain.OutcomeRecord{}, fmt.Errorf("completed_at: %v", err)
		}
		rec.CompletedAt = at.UTC()
	}
	return rec, nil
}

// badFileError marks a verdict file that is not a JSON array; the file is
// skipped as a whole and counted once
type badFileError struct {
	name  string
	cause error
}

func (e *badFileError) Error() string { return e.name + ": " + e.cause.Error() }

func (o *Outcomes) openNext() error {
	if len(o.files) == 0 {
		return io.EOF
	}
	name := o.files[0]
	o.files = o.files[1:]

	f, err := o.fsys.Open(name)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		_ = f.Close()
		return &badFileError{name: name, cause: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		_ = f.Close()
		return &badFileError{name: name, cause: fmt.Errorf("not a verdict array")}
	}

	o.file = f
	o.dec = dec
	o.name = name
	o.idx = 0
	return nil
}

func (o *Outcomes) closeCurrent() {
	if o.file != nil {
		_ = o.file.Close()
	}
	o.file = nil
	o.dec = nil
}

// Close releases the current file, if any
func (o *Outcomes) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	o.dec = nil
	return err
}
