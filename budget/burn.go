package budget

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// BURN RATE & RUNWAY
// =============================================================================

// UtilizationPercent is spent / budget x 100, or 0 when budget <= 0.
func UtilizationPercent(spent, budget decimal.Decimal) decimal.Decimal {
	return generic.Percent(spent, budget)
}

// BurnRate is spent per elapsed week, or 0 when no time has elapsed.
func BurnRate(spent decimal.Decimal, elapsedWeeks decimal.Decimal) decimal.Decimal {
	return generic.SafeDiv(spent, elapsedWeeks)
}

// Runway is the number of weeks the remaining budget lasts at the current
// burn. Unbounded means nothing is burning while money remains.
type Runway struct {
	Weeks     decimal.Decimal
	Unbounded bool
}

// Float64 returns +Inf for an unbounded runway.
func (r Runway) Float64() float64 {
	if r.Unbounded {
		return math.Inf(1)
	}
	f, _ := r.Weeks.Float64()
	return f
}

// RunwayWeeks is remaining / burn. It is 0 when remaining <= 0 and unbounded
// when burn is 0 with money left.
func RunwayWeeks(remaining, burn decimal.Decimal) Runway {
	if !remaining.IsPositive() {
		return Runway{Weeks: decimal.Zero}
	}
	if !burn.IsPositive() {
		return Runway{Weeks: decimal.Zero, Unbounded: true}
	}
	return Runway{Weeks: remaining.Div(burn)}
}

// =============================================================================
// STATUS BADGE
// =============================================================================

type Badge string

const (
	BadgeCritical Badge = "Critical"
	BadgeWarning  Badge = "Warning"
	BadgeOnTrack  Badge = "On Track"
	BadgeHealthy  Badge = "Healthy"
)

var (
	criticalAbove = decimal.NewFromInt(90)
	warningAbove  = decimal.NewFromInt(75)
	onTrackAbove  = decimal.NewFromInt(50)
)

// BadgeFor classifies a budget utilization percent.
func BadgeFor(percent decimal.Decimal) Badge {
	switch {
	case percent.GreaterThan(criticalAbove):
		return BadgeCritical
	case percent.GreaterThan(warningAbove):
		return BadgeWarning
	case percent.GreaterThan(onTrackAbove):
		return BadgeOnTrack
	default:
		return BadgeHealthy
	}
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Overview is the budget card of a project stage.
type Overview struct {
	Budget             decimal.Decimal
	Spent              decimal.Decimal
	Remaining          decimal.Decimal
	UtilizationPercent decimal.Decimal
	BurnRate           decimal.Decimal
	Runway             Runway
	Badge              Badge
}

// Summarize derives the budget card from budget, spent and elapsed weeks.
// Remaining may be negative when over budget; runway is then 0.
func Summarize(budget, spent, elapsedWeeks decimal.Decimal) Overview {
	remaining := budget.Sub(spent)
	burn := BurnRate(spent, elapsedWeeks)
	pct := UtilizationPercent(spent, budget)
	return Overview{
		Budget:             budget,
		Spent:              spent,
		Remaining:          remaining,
		UtilizationPercent: pct,
		BurnRate:           burn,
		Runway:             RunwayWeeks(remaining, burn),
		Badge:              BadgeFor(pct),
	}
}
