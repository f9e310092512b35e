package domain

import "time"

// =============================================================================
// DATE - Calendar date, no time-of-day component
// =============================================================================

// Date is a calendar date. All due-date and coverage comparisons happen at day
// granularity; the backing time is normalized to midnight UTC.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current date in the deployment's local clock.
func Today() Date {
	return DateOf(time.Now())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format(dateLayout) }

// =============================================================================
// PERIOD - Coverage window [Start, End)
// =============================================================================

// Period is a policy's coverage window. End must be strictly after Start; the
// scheduler still treats End as an inclusive bound for due dates.
type Period struct {
	Start Date
	End   Date
}

func (p Period) Valid() bool { return p.End.After(p.Start) }

func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string { return "[" + p.Start.String() + ", " + p.End.String() + "]" }
