package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// PERIOD WINDOW - the caller-supplied aggregation window
// =============================================================================

// PeriodWindow is a run of whole Monday-start weeks. Every aggregator works
// on one; it is never persisted.
type PeriodWindow struct {
	Start TimePoint
	Weeks int
}

// NewPeriodWindow aligns start to its Monday. A non-positive length yields an
// empty window.
func NewPeriodWindow(start TimePoint, weeks int) PeriodWindow {
	if weeks < 0 {
		weeks = 0
	}
	return PeriodWindow{Start: start.StartOfWeek(), Weeks: weeks}
}

// End returns the exclusive end of the window (the Monday after the last week).
func (w PeriodWindow) End() TimePoint { return w.Start.AddWeeks(w.Weeks) }

// Last returns the last day (Sunday) inside the window.
func (w PeriodWindow) Last() TimePoint { return w.End().AddDays(-1) }

// Contains reports whether t lies in [Start, End).
func (w PeriodWindow) Contains(t TimePoint) bool {
	return t.AfterOrEqual(w.Start) && t.Before(w.End())
}

// WeekStarts returns the Monday of every week in the window.
func (w PeriodWindow) WeekStarts() []TimePoint {
	return WeekStarts(w.Start, w.Weeks)
}

// IsEmpty reports a zero-length window.
func (w PeriodWindow) IsEmpty() bool { return w.Weeks <= 0 }

func (w PeriodWindow) String() string {
	return "[" + w.Start.String() + ", " + w.End().String() + ")"
}

// =============================================================================
// PERIOD - closed date range
// =============================================================================

// Period is a closed calendar range [Start, End].
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthPeriod returns the calendar month containing t.
func MonthPeriod(t TimePoint) Period {
	return Period{Start: StartOfMonth(t.Year(), t.Month()), End: EndOfMonth(t.Year(), t.Month())}
}

// =============================================================================
// TIME RANGE - dashboard range selector
// =============================================================================

// TimeRange is the dashboard range selector. It is half of the cache key.
type TimeRange string

const (
	RangeWeek     TimeRange = "week"
	RangeMonth    TimeRange = "month"
	RangeQuarter  TimeRange = "quarter"
	RangeHalfYear TimeRange = "half_year"
)

// Weeks returns the window length for the range.
func (r TimeRange) Weeks() int {
	switch r {
	case RangeWeek:
		return 1
	case RangeMonth:
		return 4
	case RangeQuarter:
		return 13
	case RangeHalfYear:
		return 26
	}
	return 0
}

// ParseTimeRange accepts the named ranges; empty means month.
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "" {
		return RangeMonth, nil
	}
	r := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	if r.Weeks() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	return r, nil
}

// Window builds the period window for the range starting at the week of start.
func (r TimeRange) Window(start TimePoint) PeriodWindow {
	return NewPeriodWindow(start, r.Weeks())
}
