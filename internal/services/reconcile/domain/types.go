// Package domain holds the reconcile service's core types and the
// enrichment rules that merge a QC verdict into a packet submission
package domain

import (
	"strings"
	"time"

	"matchbook/internal/core/recordkey"
)

// Verdict is the QC review outcome for a submitted packet
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
	VerdictDeferred Verdict = "deferred"
)

// ParseVerdict maps a raw verdict label to the closed set
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictAccepted:
		return VerdictAccepted, true
	case VerdictRejected:
		return VerdictRejected, true
	case VerdictDeferred:
		return VerdictDeferred, true
	}
	return "", false
}

// IsFavorable reports whether the verdict closes the packet successfully.
// Favorable verdicts additionally emit a VerdictEvent downstream
func (v Verdict) IsFavorable() bool { return v == VerdictAccepted }

// String implements fmt.Stringer
func (v Verdict) String() string { return string(v) }

// SubmissionRecord is one packet submission discovered from center logs.
// VisitNum and FormVersion are supplementary; nil means the source never
// carried the field
type SubmissionRecord struct {
	SubjectID   string
	VisitDate   recordkey.Date
	Packet      string
	FormCount   int
	VisitNum    *string
	FormVersion *string
	SubmittedBy string
	SubmittedAt time.Time
	Source      string
}

// Key returns the correlation identity of the submission
func (s SubmissionRecord) Key() recordkey.Key {
	return recordkey.New(s.SubjectID, s.VisitDate, s.Packet)
}

// OutcomeRecord is one QC verdict discovered from review documents
type OutcomeRecord struct {
	SubjectID   string
	VisitDate   recordkey.Date
	Packet      string
	VisitNum    *string
	FormVersion *string
	Verdict     Verdict
	Reason      string
	ReviewedBy  string
	CompletedAt time.Time
	Source      string
}

// Key returns the correlation identity of the outcome
func (o OutcomeRecord) Key() recordkey.Key {
	return recordkey.New(o.SubjectID, o.VisitDate, o.Packet)
}

// EnrichedRecord is a submission after its verdict has been merged in.
// Verdict-side fields start empty and are filled exactly once; the
// supplementary fields keep the submission's value whenever it had one
type EnrichedRecord struct {
	SubjectID   string
	VisitDate   recordkey.Date
	Packet      string
	FormCount   int
	VisitNum    *string
	FormVersion *string
	SubmittedBy string
	SubmittedAt time.Time
	Source      string

	Verdict     Verdict
	Reason      string
	ReviewedBy  string
	CompletedAt time.Time
}

// Key returns the correlation identity of the enriched record
func (e EnrichedRecord) Key() recordkey.Key {
	return recordkey.New(e.SubjectID, e.VisitDate, e.Packet)
}

// IsEnriched reports whether a verdict has been merged in
func (e EnrichedRecord) IsEnriched() bool { return e.Verdict != "" }

// VerdictEvent is the secondary emission for favorable verdicts
type VerdictEvent struct {
	SubjectID   string
	VisitDate   recordkey.Date
	Packet      string
	Verdict     Verdict
	ReviewedBy  string
	CompletedAt time.Time
}

// EventOf builds the favorable-verdict emission from an enriched record
func EventOf(e EnrichedRecord) VerdictEvent {
	return VerdictEvent{
		SubjectID:   e.SubjectID,
		VisitDate:   e.VisitDate,
		Packet:      e.Packet,
		Verdict:     e.Verdict,
		ReviewedBy:  e.ReviewedBy,
		CompletedAt: e.CompletedAt,
	}
}

// Tally counts what one reconcile run saw and produced
type Tally struct {
	Submissions        int `json:"submissions"`
	Outcomes           int `json:"outcomes"`
	Matched            int `json:"matched"`
	Orphaned           int `json:"orphaned"`
	Residual           int `json:"residual"`
	SkippedSubmissions int `json:"skipped_submissions"`
	SkippedOutcomes    int `json:"skipped_outcomes"`
	Replaced           int `json:"replaced"`
	PublishFailures    int `json:"publish_failures"`
}
