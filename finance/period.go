package finance

import "time"

// =============================================================================
// PERIOD - A closed date window used for billing months
// =============================================================================

// Period is the window [Start, End]. For month periods End is the last
// instant of the last day so measurement windows ending that day fit.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	start := StartOfMonth(t)
	return Period{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// PreviousMonth returns the calendar month before the one p starts in.
func (p Period) PreviousMonth() Period {
	return MonthOf(p.Start.AddDate(0, 0, -1))
}

// Contains returns true if t is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Covers reports whether the window [start, end] starts at or after the
// period start and ends at or before the period end.
func (p Period) Covers(start, end time.Time) bool {
	return !start.Before(p.Start) && !end.After(p.End)
}

// Key is the "2006-01" label of the month the period starts in.
func (p Period) Key() string {
	return p.Start.Format("2006-01")
}

func (p Period) String() string {
	return "[" + p.Start.Format(DateLayout) + ", " + p.End.Format(DateLayout) + "]"
}
