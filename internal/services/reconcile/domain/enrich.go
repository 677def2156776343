package domain

// NewEnriched seeds an enriched record from a submission. Verdict-side
// fields are left zero until Enrich fills them
func NewEnriched(sub SubmissionRecord) EnrichedRecord {
	return EnrichedRecord{
		SubjectID:   sub.SubjectID,
		VisitDate:   sub.VisitDate,
		Packet:      sub.Packet,
		FormCount:   sub.FormCount,
		VisitNum:    sub.VisitNum,
		FormVersion: sub.FormVersion,
		SubmittedBy: sub.SubmittedBy,
		SubmittedAt: sub.SubmittedAt,
		Source:      sub.Source,
	}
}

// Enrich merges an outcome into rec, filling only fields that are still
// zero. Values already present are never overwritten, which makes the merge
// idempotent: applying the same outcome again is a no-op, and a second,
// different outcome cannot clobber the first
func Enrich(rec EnrichedRecord, out OutcomeRecord) EnrichedRecord {
	if rec.VisitNum == nil {
		rec.VisitNum = out.VisitNum
	}
	if rec.FormVersion == nil {
		rec.FormVersion = out.FormVersion
	}
	if rec.Verdict == "" {
		rec.Verdict = out.Verdict
	}
	if rec.Reason == "" {
		rec.Reason = out.Reason
	}
	if rec.ReviewedBy == "" {
		rec.ReviewedBy = out.ReviewedBy
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = out.CompletedAt
	}
	return rec
}
