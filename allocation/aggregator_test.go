package allocation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/resourcing-engine/allocation"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func h(v float64) decimal.Decimal { return generic.Hours(v) }

func day(m time.Month, d int) generic.TimePoint { return generic.NewTimePoint(2025, m, d) }

func fact(member, project string, date generic.TimePoint, hours float64, rt generic.ResourceType) generic.AllocationFact {
	return generic.AllocationFact{
		ResourceID:   generic.MemberID(member),
		ProjectID:    generic.ProjectID(project),
		Date:         date,
		Hours:        h(hours),
		ResourceType: rt,
	}
}

// Week of Mon 2025-03-03 and Mon 2025-03-10.
func fixture() []generic.AllocationFact {
	return []generic.AllocationFact{
		fact("A", "P1", day(time.March, 3), 8, generic.ResourceActive),
		fact("A", "P1", day(time.March, 4), 4, generic.ResourceActive),
		fact("A", "P2", day(time.March, 11), 6, generic.ResourceActive),
		fact("B", "P1", day(time.March, 5), 10, generic.ResourceActive),
		fact("TBD", "P2", day(time.March, 12), 16, generic.ResourcePreRegistered),
		fact("A", "P3", day(time.March, 6), 0, generic.ResourceActive),
	}
}

// =============================================================================
// SUMS
// =============================================================================

func TestSumHours_FiltersByResourceType(t *testing.T) {
	facts := fixture()
	assert.True(t, allocation.SumHours(facts, nil).Equal(h(44)))
	assert.True(t, allocation.SumHours(facts, allocation.ActiveOnly).Equal(h(28)))
	assert.True(t, allocation.SumHours(facts, allocation.CommittedDemand).Equal(h(44)))
}

func TestSumHours_ComposedFilters(t *testing.T) {
	facts := fixture()
	firstWeek := generic.NewPeriodWindow(day(time.March, 5), 1)
	got := allocation.SumHours(facts, allocation.All(allocation.ActiveOnly, allocation.InWindow(firstWeek)))
	assert.True(t, got.Equal(h(22)), "got %s", got)

	got = allocation.SumHours(facts, allocation.All(allocation.ForMember("A"), allocation.ForProject("P1")))
	assert.True(t, got.Equal(h(12)), "got %s", got)
}

func TestSumHours_RoundsEachFactToTwoPlaces(t *testing.T) {
	var facts []generic.AllocationFact
	for i := 0; i < 1000; i++ {
		facts = append(facts, fact("A", "P1", day(time.March, 3), 0.1, generic.ResourceActive))
	}
	facts = append(facts, fact("A", "P1", day(time.March, 3), 1.004, generic.ResourceActive))
	assert.Equal(t, "101", allocation.SumHours(facts, nil).String())
}

func TestEmptyInput_ReturnsZeroStructures(t *testing.T) {
	assert.True(t, allocation.SumHours(nil, nil).IsZero())
	assert.Empty(t, allocation.MemberTotals(nil))
	assert.Empty(t, allocation.ProjectTotals(nil))
	assert.Equal(t, 0, allocation.DistinctProjectCount(nil, "A"))
	assert.Empty(t, allocation.ByEntityAndWeek(nil, nil, nil, allocation.ByMember))
}

func TestTotals(t *testing.T) {
	facts := fixture()

	members := allocation.MemberTotals(facts)
	assert.True(t, members["A"].Equal(h(18)))
	assert.True(t, members["B"].Equal(h(10)))
	assert.True(t, members["TBD"].Equal(h(16)))

	projects := allocation.ProjectTotals(facts)
	assert.True(t, projects["P1"].Equal(h(22)))
	assert.True(t, projects["P2"].Equal(h(22)))
	assert.True(t, projects["P3"].IsZero())
}

func TestDistinctProjectCount_IgnoresZeroHourRows(t *testing.T) {
	facts := fixture()
	// A has P1, P2 with hours and P3 with a zero row.
	assert.Equal(t, 2, allocation.DistinctProjectCount(facts, "A"))
	assert.Equal(t, 1, allocation.DistinctProjectCount(facts, "B"))
	assert.Equal(t, 0, allocation.DistinctProjectCount(facts, "nobody"))
}

// =============================================================================
// WEEKLY BUCKETS
// =============================================================================

func TestByEntityAndWeek_PreSeedsZeros(t *testing.T) {
	facts := fixture()
	weeks := generic.WeekStarts(day(time.March, 3), 3)
	buckets := allocation.ByEntityAndWeek(
		allocation.Select(facts, allocation.ActiveOnly),
		weeks,
		[]string{"A", "B", "C"},
		allocation.ByMember,
	)

	require.Contains(t, buckets, "C")
	for _, wk := range []string{"2025-03-03", "2025-03-10", "2025-03-17"} {
		v, ok := buckets["C"][wk]
		assert.True(t, ok, "C missing week %s", wk)
		assert.True(t, v.IsZero())
	}

	assert.True(t, buckets["A"]["2025-03-03"].Equal(h(12)))
	assert.True(t, buckets["A"]["2025-03-10"].Equal(h(6)))
	assert.True(t, buckets["A"]["2025-03-17"].IsZero())
	assert.True(t, buckets["B"]["2025-03-03"].Equal(h(10)))
}

func TestByEntityAndWeek_IgnoresFactsOutsideWeeks(t *testing.T) {
	facts := []generic.AllocationFact{
		fact("A", "P1", day(time.March, 3), 8, generic.ResourceActive),
		fact("A", "P1", day(time.April, 1), 8, generic.ResourceActive),
	}
	buckets := allocation.ByEntityAndWeek(facts, generic.WeekStarts(day(time.March, 3), 1), nil, allocation.ByProject)
	assert.Len(t, buckets["P1"], 1)
	assert.True(t, buckets["P1"]["2025-03-03"].Equal(h(8)))
}

func TestWeekTotals(t *testing.T) {
	weeks := generic.WeekStarts(day(time.March, 3), 2)
	totals := allocation.WeekTotals(fixture(), weeks)
	assert.Len(t, totals, 2)
	assert.True(t, totals["2025-03-03"].Equal(h(22)))
	assert.True(t, totals["2025-03-10"].Equal(h(22)))
}
