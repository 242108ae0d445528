// Package stage derives project-stage date windows and progress.
//
// A stage has no dates of its own: it runs from the project's contract start
// for ContractedWeeks weeks. Allocations inside that window are highlighted
// in the grid and count towards the stage's progress.
package stage

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/allocation"
	"github.com/warp/resourcing-engine/generic"
)

// Project is the owning project of a set of stages.
type Project struct {
	ID                generic.ProjectID
	CompanyID         generic.CompanyID
	Name              string
	ContractStartDate *generic.TimePoint
}

// ProjectStage is a budgeted slice of a project.
type ProjectStage struct {
	ID                 generic.StageID
	ProjectID          generic.ProjectID
	Name               string
	TotalBudgetedHours decimal.Decimal
	ContractedWeeks    *int
}

// =============================================================================
// INTERVAL
// =============================================================================

// Interval is a stage window. End is start + weeks*7 days.
type Interval struct {
	Start generic.TimePoint
	End   generic.TimePoint
}

// IntervalFor returns nil when either input is absent.
func IntervalFor(contractStart *generic.TimePoint, contractedWeeks *int) *Interval {
	if contractStart == nil || contractedWeeks == nil || contractStart.IsZero() {
		return nil
	}
	return &Interval{
		Start: *contractStart,
		End:   contractStart.AddDays(*contractedWeeks * 7),
	}
}

// Contains reports start <= date <= end. The end day is included, which makes
// the window weeks*7+1 days long. Existing stage highlights depend on this;
// see TestContains_EndDayIsIncluded. A nil interval contains nothing.
func (iv *Interval) Contains(date generic.TimePoint) bool {
	if iv == nil {
		return false
	}
	return date.AfterOrEqual(iv.Start) && date.BeforeOrEqual(iv.End)
}

// IsWithinStage is the free-function form of Contains.
func IsWithinStage(date generic.TimePoint, iv *Interval) bool {
	return iv.Contains(date)
}

// ElapsedWeeks returns how many weeks of the interval have passed by asOf,
// clamped to [0, interval length].
func (iv *Interval) ElapsedWeeks(asOf generic.TimePoint) decimal.Decimal {
	if iv == nil || asOf.Before(iv.Start) {
		return decimal.Zero
	}
	end := asOf
	if end.After(iv.End) {
		end = iv.End
	}
	return decimal.NewFromInt(int64(generic.DaysBetween(iv.Start, end))).Div(decimal.NewFromInt(7))
}

// HighlightAllocations returns the allocation rows that fall inside the stage.
func HighlightAllocations(facts []generic.AllocationFact, iv *Interval) []generic.AllocationFact {
	if iv == nil {
		return nil
	}
	return allocation.Select(facts, allocation.Within(iv.Contains))
}

// =============================================================================
// PROGRESS
// =============================================================================

// ProgressPercent is allocated / budgeted x 100, or 0 when budgeted <= 0.
func ProgressPercent(allocated, budgeted decimal.Decimal) decimal.Decimal {
	return generic.Percent(allocated, budgeted)
}

// IsOverAllocated reports allocated > budgeted.
func IsOverAllocated(allocated, budgeted decimal.Decimal) bool {
	return allocated.GreaterThan(budgeted)
}

// Progress is a stage's hour progress card.
type Progress struct {
	Stage           ProjectStage
	Interval        *Interval
	AllocatedHours  decimal.Decimal
	BudgetedHours   decimal.Decimal
	Percent         decimal.Decimal
	IsOverAllocated bool
}

// ProgressFor sums committed demand (active and pre-registered) on the
// stage's project inside its interval. Without an interval nothing counts.
func ProgressFor(project Project, s ProjectStage, facts []generic.AllocationFact) Progress {
	iv := IntervalFor(project.ContractStartDate, s.ContractedWeeks)
	allocated := decimal.Zero
	if iv != nil {
		allocated = allocation.SumHours(facts, allocation.All(
			allocation.CommittedDemand,
			allocation.ForProject(s.ProjectID),
			allocation.Within(iv.Contains),
		))
	}
	return Progress{
		Stage:           s,
		Interval:        iv,
		AllocatedHours:  allocated,
		BudgetedHours:   s.TotalBudgetedHours,
		Percent:         ProgressPercent(allocated, s.TotalBudgetedHours),
		IsOverAllocated: IsOverAllocated(allocated, s.TotalBudgetedHours),
	}
}
