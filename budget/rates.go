/*
Package budget resolves billing rates and rolls team compositions into
planned hours and money.

PURPOSE:
  A project stage is planned as a team composition: "2 senior devs x 120h,
  1 designer x 40h". Each line is priced at the rate in force when it was
  saved. This package:

    - resolves a rate card by role or location (ResolveRate)
    - captures that rate into a composition item (SnapshotItem)
    - rolls items into totals (Rollup)
    - derives burn rate, runway, budget utilization and a status badge

RATE SNAPSHOT (budget lock):
  TeamCompositionItem keeps its rate in an unexported field set only by the
  constructors. Nothing in this package re-reads the live rate card for an
  existing item, so raising a role's rate next quarter does not rewrite the
  budget already agreed for this one.

MISSING RATES:
  ResolveRate returns 0 when no card matches. Callers must read 0 as "no rate
  configured", not "free".

SEE ALSO:
  - rollup.go: composition totals
  - burn.go: burn rate, runway, status badge
*/
package budget

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// RATE CARD
// =============================================================================

// ReferenceType says what a rate card is keyed on.
type ReferenceType string

const (
	ReferenceRole     ReferenceType = "role"
	ReferenceLocation ReferenceType = "location"
)

// RateUnit is the time unit a rate is quoted in.
type RateUnit string

const (
	UnitHour RateUnit = "hour"
	UnitDay  RateUnit = "day"
	UnitWeek RateUnit = "week"
)

// RateCard is the active rate for one (reference, type). At most one card
// exists per pair.
type RateCard struct {
	CompanyID     generic.CompanyID
	ReferenceID   string
	ReferenceType ReferenceType
	Value         decimal.Decimal
	Unit          RateUnit
}

// find returns the card for (id, type).
func find(cards []RateCard, referenceID string, referenceType ReferenceType) (RateCard, bool) {
	for _, c := range cards {
		if c.ReferenceID == referenceID && c.ReferenceType == referenceType {
			return c, true
		}
	}
	return RateCard{}, false
}

// ResolveRate returns the matching card's value, or 0 when none exists.
func ResolveRate(cards []RateCard, referenceID string, referenceType ReferenceType) decimal.Decimal {
	if c, ok := find(cards, referenceID, referenceType); ok {
		return c.Value
	}
	return decimal.Zero
}

var workdayHours = decimal.NewFromInt(generic.WorkdayHours)

// ResolveHourlyRate resolves a card and normalises it to an hourly figure:
// day rates divide by the 8h workday, week rates by workWeekHours.
func ResolveHourlyRate(cards []RateCard, referenceID string, referenceType ReferenceType, workWeekHours decimal.Decimal) decimal.Decimal {
	c, ok := find(cards, referenceID, referenceType)
	if !ok {
		return decimal.Zero
	}
	switch c.Unit {
	case UnitDay:
		return generic.SafeDiv(c.Value, workdayHours)
	case UnitWeek:
		return generic.SafeDiv(c.Value, workWeekHours)
	default:
		return c.Value
	}
}

// MemberHourlyRate prices a member by role, falling back to location.
func MemberHourlyRate(cards []RateCard, m generic.Member, workWeekHours decimal.Decimal) decimal.Decimal {
	if m.RoleID != "" {
		if r := ResolveHourlyRate(cards, m.RoleID, ReferenceRole, workWeekHours); r.IsPositive() {
			return r
		}
	}
	if m.LocationID != "" {
		return ResolveHourlyRate(cards, m.LocationID, ReferenceLocation, workWeekHours)
	}
	return decimal.Zero
}
