package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// EVEN WEEKDAY DISTRIBUTION
// =============================================================================

// DailyLeave is one weekday of a distributed weekly total.
type DailyLeave struct {
	Date  generic.TimePoint
	Hours decimal.Decimal
}

var weekdays = decimal.NewFromInt(generic.WorkdaysPerWeek)

// DistributeWeeklyTotal spreads total across Monday..Friday of the week
// containing weekStart. Each day gets floor(total/5); the first
// floor(total mod 5) days (Monday first) get one extra hour. A fractional
// remainder lands on the day after the last +1 day, so the records always
// sum to total. Negative totals distribute as zero. Weekends never receive
// hours.
func DistributeWeeklyTotal(total decimal.Decimal, weekStart generic.TimePoint) []DailyLeave {
	total = generic.NonNegative(generic.RoundHours(total))
	monday := weekStart.StartOfWeek()

	perDay := total.Div(weekdays).Floor()
	remainder := total.Sub(perDay.Mul(weekdays))
	extraDays := remainder.Floor()
	fraction := remainder.Sub(extraDays)
	extra := int(extraDays.IntPart())

	out := make([]DailyLeave, generic.WorkdaysPerWeek)
	for i := range out {
		hours := perDay
		switch {
		case i < extra:
			hours = hours.Add(decimal.NewFromInt(1))
		case i == extra:
			hours = hours.Add(fraction)
		}
		out[i] = DailyLeave{Date: monday.AddDays(i), Hours: hours}
	}
	return out
}

// Total sums a distribution.
func Total(days []DailyLeave) decimal.Decimal {
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.Hours)
	}
	return total
}
