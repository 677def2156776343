// Package recordkey defines the composite identity used to correlate packet
// submissions with their QC verdicts.
//
// Every key on both sides of the correlation MUST be built through New so the
// two discovery passes can never normalize independently. A submission keyed
// with a time-of-day-bearing date and a verdict keyed with a date string for
// the same calendar day must still land on the same map slot; Date exists to
// make that impossible to get wrong.
package recordkey

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Date is a calendar day with no time-of-day component
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its UTC calendar day
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("recordkey: parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports an unset date
func (d Date) IsZero() bool { return d == Date{} }

// MarshalJSON encodes the date as its YYYY-MM-DD string form
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD string; empty means unset
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Before reports whether d is an earlier calendar day than o
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Key is the composite correlation identity: who, when, which packet.
// Comparable; used directly as a map key. Never mutated after New.
type Key struct {
	SubjectID string
	Date      Date
	Packet    string
}

// New builds a normalized Key. This is the only constructor; both the
// submission and the verdict side go through it
func New(subjectID string, date Date, packet string) Key {
	return Key{
		SubjectID: strings.TrimSpace(subjectID),
		Date:      date,
		Packet:    NormalizePacket(packet),
	}
}

// NormalizePacket folds a packet label to the canonical uppercase form
func NormalizePacket(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// String formats the key for logs and diagnostics
func (k Key) String() string {
	return k.SubjectID + "/" + k.Date.String() + "/" + k.Packet
}
