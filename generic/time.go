package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - calendar date in UTC
// =============================================================================

// DateLayout is the ISO date layout used for week keys and wire formats.
const DateLayout = "2006-01-02"

// TimePoint is a calendar date. The time-of-day part is always midnight UTC so
// that equality and map keys behave.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar date (in t's own location).
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO "YYYY-MM-DD" date. Longer timestamps are accepted
// and truncated to their date.
func ParseDate(s string) (TimePoint, error) {
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return FromTime(t), nil
		}
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

func Today() TimePoint {
	return FromTime(time.Now().UTC())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddWeeks(n int) TimePoint  { return tp.AddDays(7 * n) }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsWorkday() bool       { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// WEEKS - Monday-start
// =============================================================================

// StartOfWeek returns the Monday on or before tp.
func (tp TimePoint) StartOfWeek() TimePoint {
	// Sunday is 0 in time.Weekday; shift so Monday is 0.
	offset := (int(tp.Weekday()) + 6) % 7
	return tp.AddDays(-offset)
}

// WeekKey is the ISO date of the Monday that starts tp's week. It is the key
// every per-week bucket uses.
func (tp TimePoint) WeekKey() string {
	return tp.StartOfWeek().String()
}

// WeekStarts returns n consecutive Mondays starting at the week containing from.
func WeekStarts(from TimePoint, n int) []TimePoint {
	if n <= 0 {
		return nil
	}
	start := from.StartOfWeek()
	weeks := make([]TimePoint, n)
	for i := range weeks {
		weeks[i] = start.AddWeeks(i)
	}
	return weeks
}

// WeekKeys converts week starts to their bucket keys.
func WeekKeys(weeks []TimePoint) []string {
	keys := make([]string, len(weeks))
	for i, w := range weeks {
		keys[i] = w.WeekKey()
	}
	return keys
}

// =============================================================================
// MONTHS
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// MonthKey is "YYYY-MM" for the month containing tp.
func (tp TimePoint) MonthKey() string {
	return tp.Time.Format("2006-01")
}

// DaysBetween returns the whole days from -> to (negative when to is earlier).
func DaysBetween(from, to TimePoint) int { return int(to.Time.Sub(from.Time).Hours() / 24) }
