/*
Package generic provides the shared vocabulary of the resourcing engine.

PURPOSE:
  This package contains the domain-agnostic value types every aggregation
  package works with. Allocation hours, leave hours, capacities and rates all
  flow through the same decimal helpers, so a 0.1h entry never drifts into
  0.30000000000000004h after a few thousand rows are summed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours helpers: rounding, clamping and zero-safe division on decimal.Decimal
  - Identifiers: type-safe company/member/project ids
  - Facts: AllocationFact and LeaveFact, the immutable rows the core sums
  - Member/Company: the denominators (capacity, work week)

DESIGN PRINCIPLES:
  1. Immutability: facts are read and summed, never mutated
  2. Precision: decimal.Decimal everywhere, rounded to 2 places per fact
  3. Totality: helpers never divide by zero and never return NaN

SEE ALSO:
  - time.go: TimePoint and Monday-start week helpers
  - period.go: PeriodWindow and TimeRange
  - store.go: Source interfaces implemented by the stores
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - decimal helpers
// =============================================================================

// HoursPrecision is the number of decimal places kept for every hour figure.
const HoursPrecision = 2

// WorkdayHours is the fixed length of a working day. Day-level inputs treat
// this as 100%.
const WorkdayHours = 8

// WorkdaysPerWeek is the number of days leave distributions spread across.
const WorkdaysPerWeek = 5

var hundred = decimal.NewFromInt(100)

// Hundred returns the decimal constant 100.
func Hundred() decimal.Decimal { return hundred }

// RoundHours rounds a raw hour figure to HoursPrecision places.
func RoundHours(h decimal.Decimal) decimal.Decimal {
	return h.Round(HoursPrecision)
}

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SafeDiv divides a by b, returning zero when b <= 0.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if !b.IsPositive() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns a/b*100 without rounding, zero when b <= 0.
func Percent(a, b decimal.Decimal) decimal.Decimal {
	return SafeDiv(a, b).Mul(hundred)
}

// Hours is a convenience constructor used heavily in tests and fixtures.
func Hours(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyID string
type MemberID string
type ProjectID string
type StageID string

// =============================================================================
// COMPANY & MEMBER
// =============================================================================

// DisplayMode is the company-level choice of how hour figures are rendered.
type DisplayMode string

const (
	DisplayHours      DisplayMode = "hours"
	DisplayPercentage DisplayMode = "percentage"
)

// DefaultWorkWeekHours applies to a company created without a work week.
var DefaultWorkWeekHours = decimal.NewFromInt(40)

// Company carries the company-wide defaults.
type Company struct {
	ID            CompanyID
	Name          string
	WorkWeekHours decimal.Decimal
	DisplayMode   DisplayMode
}

// Member is a team member profile. WeeklyCapacity is nullable: an invalid
// NullDecimal means "use the company default", while a valid zero is a real
// override.
type Member struct {
	ID             MemberID
	CompanyID      CompanyID
	Name           string
	WeeklyCapacity decimal.NullDecimal
	RoleID         string
	LocationID     string
}

// =============================================================================
// ALLOCATION FACT
// =============================================================================

// ResourceType distinguishes real team members from placeholder demand.
type ResourceType string

const (
	ResourceActive        ResourceType = "active"
	ResourcePreRegistered ResourceType = "pre_registered"
)

// AllocationFact is one row of hours for a member on a project on a day.
type AllocationFact struct {
	ResourceID   MemberID
	ProjectID    ProjectID
	Date         TimePoint
	Hours        decimal.Decimal
	ResourceType ResourceType
}

// =============================================================================
// LEAVE FACT
// =============================================================================

type LeaveType string

const (
	LeaveAnnual  LeaveType = "annual"
	LeaveHoliday LeaveType = "holiday"
	LeaveOther   LeaveType = "other"
)

// LeaveTypes lists every leave source in the order the dashboard fetches them.
var LeaveTypes = []LeaveType{LeaveAnnual, LeaveHoliday, LeaveOther}

// Valid reports whether t is a known leave type.
func (t LeaveType) Valid() bool {
	switch t {
	case LeaveAnnual, LeaveHoliday, LeaveOther:
		return true
	}
	return false
}

// LeaveFact is one row of leave hours for a member on a day. The type is a
// property of the source table; aggregators never inspect it.
type LeaveFact struct {
	MemberID  MemberID
	Date      TimePoint
	Hours     decimal.Decimal
	LeaveType LeaveType
}
