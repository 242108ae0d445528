package budget

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// TEAM COMPOSITION
// =============================================================================

// TeamCompositionItem is one planned line of a stage's team.
type TeamCompositionItem struct {
	ID                    string
	StageID               generic.StageID
	ReferenceID           string
	ReferenceType         ReferenceType
	PlannedQuantity       decimal.Decimal
	PlannedHoursPerPerson decimal.Decimal

	rateSnapshot decimal.Decimal
}

// NewTeamCompositionItem restores an item with a previously captured rate.
// Stores use it when loading rows; negative quantities or hours clamp to 0.
func NewTeamCompositionItem(stageID generic.StageID, referenceID string, referenceType ReferenceType, quantity, hoursPerPerson, rateSnapshot decimal.Decimal) TeamCompositionItem {
	return TeamCompositionItem{
		StageID:               stageID,
		ReferenceID:           referenceID,
		ReferenceType:         referenceType,
		PlannedQuantity:       generic.NonNegative(quantity),
		PlannedHoursPerPerson: generic.NonNegative(hoursPerPerson),
		rateSnapshot:          rateSnapshot,
	}
}

// SnapshotItem builds a new item, capturing the live rate for its reference.
// This is the only place a live rate enters a composition.
func SnapshotItem(cards []RateCard, stageID generic.StageID, referenceID string, referenceType ReferenceType, quantity, hoursPerPerson decimal.Decimal) TeamCompositionItem {
	rate := ResolveRate(cards, referenceID, referenceType)
	return NewTeamCompositionItem(stageID, referenceID, referenceType, quantity, hoursPerPerson, rate)
}

// RateSnapshot is the rate captured when the item was saved.
func (i TeamCompositionItem) RateSnapshot() decimal.Decimal { return i.rateSnapshot }

// TotalPlannedHours is quantity x hours per person.
func (i TeamCompositionItem) TotalPlannedHours() decimal.Decimal {
	return i.PlannedQuantity.Mul(i.PlannedHoursPerPerson)
}

// TotalBudgetAmount is planned hours x the snapshot rate.
func (i TeamCompositionItem) TotalBudgetAmount() decimal.Decimal {
	return i.TotalPlannedHours().Mul(i.rateSnapshot)
}

// =============================================================================
// ROLLUP
// =============================================================================

// Rollup is the planned totals of a set of items.
type Rollup struct {
	TotalPlannedHours decimal.Decimal
	TotalBudgetAmount decimal.Decimal
}

// RollupComposition sums planned hours and budget over items using each
// item's stored rate snapshot.
func RollupComposition(items []TeamCompositionItem) Rollup {
	r := Rollup{TotalPlannedHours: decimal.Zero, TotalBudgetAmount: decimal.Zero}
	for _, it := range items {
		r.TotalPlannedHours = r.TotalPlannedHours.Add(it.TotalPlannedHours())
		r.TotalBudgetAmount = r.TotalBudgetAmount.Add(it.TotalBudgetAmount())
	}
	return r
}

// ItemsForStage filters items belonging to one stage.
func ItemsForStage(items []TeamCompositionItem, stageID generic.StageID) []TeamCompositionItem {
	var out []TeamCompositionItem
	for _, it := range items {
		if it.StageID == stageID {
			out = append(out, it)
		}
	}
	return out
}
