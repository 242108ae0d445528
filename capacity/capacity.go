/*
Package capacity resolves capacities and turns (allocated, capacity) pairs
into utilization figures.

PURPOSE:
  Every "how busy is this person/team" number on the dashboard is a ratio of
  allocated hours to capacity. This package owns the denominator (which
  capacity applies) and the ratio (percent, available hours, status band).

CAPACITY RESOLUTION:
  A member's weekly capacity overrides the company work week. The override
  is nullable: NULL means "not set", while 0 is a deliberate override (an
  intern on a zero-hour contract is not a 40h person).

    Resolve(NULL, 40) == 40
    Resolve(0, 40)    == 0
    Resolve(32, 40)   == 32

TOTALITY:
  No function here returns an error. A capacity <= 0 yields 0% and 0h
  available instead of dividing by zero.

SEE ALSO:
  - utilization.go: Percent, Available, bands and warning levels
  - display.go: hours vs percentage rendering
*/
package capacity

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// Resolve returns the member override when set (zero included), otherwise
// the company default.
func Resolve(member decimal.NullDecimal, companyDefault decimal.Decimal) decimal.Decimal {
	if member.Valid {
		return member.Decimal
	}
	return companyDefault
}

// ForMember resolves the weekly capacity of m against the company.
func ForMember(m generic.Member, company generic.Company) decimal.Decimal {
	return Resolve(m.WeeklyCapacity, company.WorkWeekHours)
}

// ForPeriod scales a weekly capacity to a period of whole weeks.
func ForPeriod(weekly decimal.Decimal, weeks int) decimal.Decimal {
	if weeks <= 0 {
		return decimal.Zero
	}
	return weekly.Mul(decimal.NewFromInt(int64(weeks)))
}

// TeamCapacity sums the resolved capacity of every member over weeks.
func TeamCapacity(members []generic.Member, companyDefault decimal.Decimal, weeks int) decimal.Decimal {
	total := decimal.Zero
	for _, m := range members {
		total = total.Add(ForPeriod(Resolve(m.WeeklyCapacity, companyDefault), weeks))
	}
	return total
}

// LeaveAdjusted removes leave hours from a capacity, never going below zero.
func LeaveAdjusted(capacity, leaveHours decimal.Decimal) decimal.Decimal {
	return generic.NonNegative(capacity.Sub(leaveHours))
}
