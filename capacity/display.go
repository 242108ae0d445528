package capacity

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// DISPLAY FORMATTER
// =============================================================================

var workday = decimal.NewFromInt(generic.WorkdayHours)

// ToDisplay renders hours in the company's chosen mode: "12.5h" in hours mode,
// "31%" of capacity in percentage mode. Unknown modes fall back to hours.
func ToDisplay(hours, capacity decimal.Decimal, mode generic.DisplayMode) string {
	if mode == generic.DisplayPercentage {
		return strconv.FormatInt(Percent(hours, capacity), 10) + "%"
	}
	return FormatHours(hours)
}

// FormatHours renders an hour figure with the "h" suffix, two decimals at most.
func FormatHours(hours decimal.Decimal) string {
	return generic.RoundHours(hours).String() + "h"
}

// DayPercent converts a single-day hour entry to percent of a workday.
// 8 hours is always 100%, whatever the member's weekly capacity.
func DayPercent(hours decimal.Decimal) int64 {
	return Percent(hours, workday)
}

// ToDayDisplay renders a single-day entry for day-level input widgets.
func ToDayDisplay(hours decimal.Decimal, mode generic.DisplayMode) string {
	return ToDisplay(hours, workday, mode)
}

// HoursFromPercent is the inverse of percentage display: percent/100*capacity.
func HoursFromPercent(percent int64, capacity decimal.Decimal) decimal.Decimal {
	if !capacity.IsPositive() {
		return decimal.Zero
	}
	return generic.RoundHours(decimal.NewFromInt(percent).Div(generic.Hundred()).Mul(capacity))
}

// HoursFromDayPercent converts a day-widget percent back to hours.
func HoursFromDayPercent(percent int64) decimal.Decimal {
	return HoursFromPercent(percent, workday)
}
