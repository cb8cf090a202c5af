/*
Package generic holds the domain-agnostic building blocks shared by the leave
engine, the stores and the HTTP layer.

KEY CONCEPTS:
  - Date:  a calendar day in UTC. Leave is booked and charged per day, so
           every date in the system is day-granular.
  - Days:  decimal day quantities (0.5 granularity for half days).
  - Errors: sentinel errors for store/collaborator failures (errors.go).

SEE ALSO:
  - leave/calendar.go: weekend / holiday classification built on Date
  - store/sqlite/sqlite.go: Date <-> TEXT column mapping
*/
package generic

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Day-granular calendar date
// =============================================================================

// Date is a calendar day normalized to midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate returns the date for year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own year/month/day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for fixtures and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

// IsWeekend reports whether the date is a Saturday or a Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format(DateLayout) }

// DaysUntil returns the signed number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
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

// =============================================================================
// RANGE - Inclusive [Start, End] span of days
// =============================================================================

// Range is an inclusive span of days.
type Range struct {
	Start Date
	End   Date
}

// Valid reports whether Start <= End.
func (r Range) Valid() bool { return r.Start.BeforeOrEqual(r.End) }

// Contains reports whether d falls inside the range.
func (r Range) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Len returns the number of calendar days in the range, 0 if invalid.
func (r Range) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

// Days returns every day in the range in order.
func (r Range) Days() []Date {
	days := make([]Date, 0, r.Len())
	for d := r.Start; d.BeforeOrEqual(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r Range) String() string { return "[" + r.Start.String() + ", " + r.End.String() + "]" }

// StartOfYear and EndOfYear bound a calendar year.
func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// YearRange is the calendar year as a Range.
func YearRange(year int) Range { return Range{Start: StartOfYear(year), End: EndOfYear(year)} }
