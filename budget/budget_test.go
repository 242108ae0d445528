package budget_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/generic"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func cards() []budget.RateCard {
	return []budget.RateCard{
		{ReferenceID: "dev", ReferenceType: budget.ReferenceRole, Value: d(100), Unit: budget.UnitHour},
		{ReferenceID: "pm", ReferenceType: budget.ReferenceRole, Value: d(800), Unit: budget.UnitDay},
		{ReferenceID: "lisbon", ReferenceType: budget.ReferenceLocation, Value: d(2000), Unit: budget.UnitWeek},
	}
}

// =============================================================================
// RATES
// =============================================================================

func TestResolveRate(t *testing.T) {
	assert.True(t, budget.ResolveRate(cards(), "dev", budget.ReferenceRole).Equal(d(100)))
	assert.True(t, budget.ResolveRate(cards(), "lisbon", budget.ReferenceLocation).Equal(d(2000)))
}

func TestResolveRate_MissingIsZero(t *testing.T) {
	assert.True(t, budget.ResolveRate(cards(), "designer", budget.ReferenceRole).IsZero())
	// Same id, wrong type.
	assert.True(t, budget.ResolveRate(cards(), "dev", budget.ReferenceLocation).IsZero())
	assert.True(t, budget.ResolveRate(nil, "dev", budget.ReferenceRole).IsZero())
}

func TestResolveHourlyRate_NormalisesUnits(t *testing.T) {
	assert.True(t, budget.ResolveHourlyRate(cards(), "dev", budget.ReferenceRole, d(40)).Equal(d(100)))
	assert.True(t, budget.ResolveHourlyRate(cards(), "pm", budget.ReferenceRole, d(40)).Equal(d(100)))
	assert.True(t, budget.ResolveHourlyRate(cards(), "lisbon", budget.ReferenceLocation, d(40)).Equal(d(50)))
	assert.True(t, budget.ResolveHourlyRate(cards(), "lisbon", budget.ReferenceLocation, d(0)).IsZero())
}

func TestMemberHourlyRate_RoleThenLocation(t *testing.T) {
	dev := generic.Member{ID: "a", RoleID: "dev", LocationID: "lisbon"}
	unknownRole := generic.Member{ID: "b", RoleID: "designer", LocationID: "lisbon"}
	nothing := generic.Member{ID: "c"}

	assert.True(t, budget.MemberHourlyRate(cards(), dev, d(40)).Equal(d(100)))
	assert.True(t, budget.MemberHourlyRate(cards(), unknownRole, d(40)).Equal(d(50)))
	assert.True(t, budget.MemberHourlyRate(cards(), nothing, d(40)).IsZero())
}

// =============================================================================
// ROLLUP
// =============================================================================

func TestRollupComposition(t *testing.T) {
	items := []budget.TeamCompositionItem{
		budget.NewTeamCompositionItem("s1", "dev", budget.ReferenceRole, d(2), d(10), d(100)),
		budget.NewTeamCompositionItem("s1", "qa", budget.ReferenceRole, d(1), d(5), d(50)),
	}
	r := budget.RollupComposition(items)
	assert.True(t, r.TotalPlannedHours.Equal(d(25)), "hours %s", r.TotalPlannedHours)
	assert.True(t, r.TotalBudgetAmount.Equal(d(2250)), "budget %s", r.TotalBudgetAmount)
}

func TestRollupComposition_Empty(t *testing.T) {
	r := budget.RollupComposition(nil)
	assert.True(t, r.TotalPlannedHours.IsZero())
	assert.True(t, r.TotalBudgetAmount.IsZero())
}

func TestSnapshotItem_IsNotRecomputedWhenRatesChange(t *testing.T) {
	// GIVEN: an item saved while dev cost 100/h
	live := cards()
	item := budget.SnapshotItem(live, "s1", "dev", budget.ReferenceRole, d(1), d(10))

	// WHEN: the dev rate card doubles
	live[0].Value = d(200)

	// THEN: the item still budgets at 100/h
	assert.True(t, item.RateSnapshot().Equal(d(100)))
	assert.True(t, budget.RollupComposition([]budget.TeamCompositionItem{item}).TotalBudgetAmount.Equal(d(1000)))
}

func TestNewTeamCompositionItem_ClampsNegatives(t *testing.T) {
	item := budget.NewTeamCompositionItem("s1", "dev", budget.ReferenceRole, d(-1), d(10), d(100))
	assert.True(t, item.TotalPlannedHours().IsZero())
}

func TestItemsForStage(t *testing.T) {
	items := []budget.TeamCompositionItem{
		budget.NewTeamCompositionItem("s1", "dev", budget.ReferenceRole, d(1), d(1), d(1)),
		budget.NewTeamCompositionItem("s2", "dev", budget.ReferenceRole, d(1), d(1), d(1)),
	}
	assert.Len(t, budget.ItemsForStage(items, "s2"), 1)
	assert.Empty(t, budget.ItemsForStage(items, "s3"))
}

// =============================================================================
// BURN & RUNWAY
// =============================================================================

func TestUtilizationPercent(t *testing.T) {
	assert.True(t, budget.UtilizationPercent(d(500), d(1000)).Equal(d(50)))
	assert.True(t, budget.UtilizationPercent(d(500), d(0)).IsZero())
	assert.True(t, budget.UtilizationPercent(d(500), d(-10)).IsZero())
}

func TestBurnRate(t *testing.T) {
	assert.True(t, budget.BurnRate(d(1000), d(4)).Equal(d(250)))
	assert.True(t, budget.BurnRate(d(1000), d(0)).IsZero())
}

func TestRunwayWeeks(t *testing.T) {
	r := budget.RunwayWeeks(d(1000), d(250))
	assert.False(t, r.Unbounded)
	assert.True(t, r.Weeks.Equal(d(4)))

	r = budget.RunwayWeeks(d(1000), d(0))
	assert.True(t, r.Unbounded)
	assert.True(t, math.IsInf(r.Float64(), 1))

	r = budget.RunwayWeeks(d(0), d(0))
	assert.False(t, r.Unbounded)
	assert.Equal(t, 0.0, r.Float64())

	r = budget.RunwayWeeks(d(-50), d(100))
	assert.False(t, r.Unbounded)
	assert.True(t, r.Weeks.IsZero())
}

func TestBadgeFor(t *testing.T) {
	cases := []struct {
		pct  float64
		want budget.Badge
	}{
		{0, budget.BadgeHealthy},
		{50, budget.BadgeHealthy},
		{50.5, budget.BadgeOnTrack},
		{75, budget.BadgeOnTrack},
		{76, budget.BadgeWarning},
		{90, budget.BadgeWarning},
		{90.01, budget.BadgeCritical},
		{140, budget.BadgeCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, budget.BadgeFor(d(tc.pct)), "pct %v", tc.pct)
	}
}

func TestSummarize(t *testing.T) {
	o := budget.Summarize(d(10000), d(8000), d(4))
	assert.True(t, o.Remaining.Equal(d(2000)))
	assert.True(t, o.BurnRate.Equal(d(2000)))
	assert.True(t, o.Runway.Weeks.Equal(d(1)))
	assert.Equal(t, budget.BadgeWarning, o.Badge)

	over := budget.Summarize(d(1000), d(1500), d(2))
	assert.True(t, over.Remaining.Equal(d(-500)))
	assert.True(t, over.Runway.Weeks.IsZero())
	assert.Equal(t, budget.BadgeCritical, over.Badge)
}
