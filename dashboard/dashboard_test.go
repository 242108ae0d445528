package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/capacity"
	"github.com/warp/resourcing-engine/dashboard"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/generic/store"
	"github.com/warp/resourcing-engine/stage"
)

const acme generic.CompanyID = "acme"

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func date(m time.Month, day int) generic.TimePoint { return generic.NewTimePoint(2025, m, day) }

func ptr[T any](v T) *T { return &v }

func alloc(member generic.MemberID, project generic.ProjectID, day generic.TimePoint, hours float64, rt generic.ResourceType) generic.AllocationFact {
	return generic.AllocationFact{ResourceID: member, ProjectID: project, Date: day, Hours: d(hours), ResourceType: rt}
}

// fixture: today is Wednesday 2025-03-05.
//
//	A  capacity 40 (company default), role dev @100/h, 32h active in the week
//	B  capacity 20 (override), location lis @400/day, 25h active in the week
//	X  pre-registered placeholder, 10h on P1
func fixture(t *testing.T) (*dashboard.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutCompany(generic.Company{ID: acme, Name: "Acme", WorkWeekHours: d(40), DisplayMode: generic.DisplayHours})
	mem.PutMembers(acme,
		generic.Member{ID: "A", Name: "Ada", RoleID: "dev"},
		generic.Member{ID: "B", Name: "Bo", WeeklyCapacity: decimal.NewNullDecimal(d(20)), LocationID: "lis"},
	)
	mem.AddAllocations(acme,
		alloc("A", "P1", date(time.February, 25), 8, generic.ResourceActive),
		alloc("A", "P1", date(time.March, 3), 8, generic.ResourceActive),
		alloc("A", "P1", date(time.March, 4), 8, generic.ResourceActive),
		alloc("A", "P2", date(time.March, 5), 8, generic.ResourceActive),
		alloc("A", "P2", date(time.March, 6), 8, generic.ResourceActive),
		alloc("B", "P1", date(time.March, 3), 25, generic.ResourceActive),
		alloc("X", "P1", date(time.March, 4), 10, generic.ResourcePreRegistered),
	)
	mem.AddLeave(
		generic.LeaveRecord{ID: "l1", MemberID: "A", CompanyID: acme, Date: date(time.March, 7), Hours: d(8), LeaveType: generic.LeaveAnnual},
		generic.LeaveRecord{ID: "l2", MemberID: "B", CompanyID: acme, Date: date(time.March, 12), Hours: d(4), LeaveType: generic.LeaveHoliday},
	)
	mem.PutRateCards(acme,
		budget.RateCard{ReferenceID: "dev", ReferenceType: budget.ReferenceRole, Value: d(100), Unit: budget.UnitHour},
		budget.RateCard{ReferenceID: "lis", ReferenceType: budget.ReferenceLocation, Value: d(400), Unit: budget.UnitDay},
	)
	mem.PutProjects(acme,
		stage.Project{ID: "P1", Name: "Website", ContractStartDate: ptr(date(time.February, 19))},
		stage.Project{ID: "P2", Name: "App"},
	)
	mem.PutStages(acme,
		stage.ProjectStage{ID: "s2", ProjectID: "P1", Name: "Later", TotalBudgetedHours: d(50)},
		stage.ProjectStage{ID: "s1", ProjectID: "P1", Name: "Build", TotalBudgetedHours: d(100), ContractedWeeks: ptr(3)},
	)
	item := budget.NewTeamCompositionItem("s1", "dev", budget.ReferenceRole, d(1), d(100), d(100))
	item.ID = "c1"
	mem.PutCompositions(acme, item)

	logger, _ := test.NewNullLogger()
	clock := cache.NewFakeClock(time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC))
	dash := cache.NewDashboard(mem, cache.WithClock(clock), cache.WithLogger(logger))
	return dashboard.NewService(dash, mem, logger), mem
}

func weekQuery() dashboard.Query {
	return dashboard.Query{CompanyID: acme, Range: generic.RangeWeek}
}

func TestDashboard_TeamAndMembers(t *testing.T) {
	// GIVEN
	svc, _ := fixture(t)

	// WHEN
	r, err := svc.Dashboard(context.Background(), weekQuery())
	require.NoError(t, err)

	// THEN team figures count active members only
	assert.Equal(t, "2025-03-03", r.Window.Start.String())
	assert.Equal(t, 2, r.Team.MemberCount)
	assert.True(t, r.Team.Capacity.Equal(d(60)))
	assert.True(t, r.Team.Allocated.Equal(d(57)))
	assert.True(t, r.Team.Available.Equal(d(3)))
	assert.Equal(t, int64(95), r.Team.Percent)
	assert.Equal(t, capacity.BandHigh, r.Team.Band)
	assert.True(t, r.Team.LeaveHours.Equal(d(8)))
	assert.True(t, r.Team.AdjustedCapacity.Equal(d(52)))

	require.Len(t, r.Members, 2)
	a, b := r.Members[0], r.Members[1]

	assert.Equal(t, generic.MemberID("A"), a.MemberID)
	assert.True(t, a.WeeklyCapacity.Equal(d(40)))
	assert.True(t, a.Allocated.Equal(d(32)))
	assert.Equal(t, int64(80), a.Percent)
	assert.Equal(t, capacity.BandOptimal, a.Band)
	assert.True(t, a.Available.Equal(d(8)))
	assert.Equal(t, 2, a.ProjectCount)
	assert.True(t, a.LeaveHours.Equal(d(8)))
	assert.True(t, a.AdjustedCapacity.Equal(d(32)))
	require.Len(t, a.Weeks, 1)
	assert.Equal(t, "32h", a.Weeks[0].Display)

	assert.True(t, b.WeeklyCapacity.Equal(d(20)))
	assert.Equal(t, int64(125), b.Percent)
	assert.Equal(t, capacity.BandOverallocated, b.Band)
	assert.True(t, b.Available.IsZero(), "never negative")
	assert.Equal(t, capacity.WarningNormal, b.Weeks[0].Warning)
}

func TestDashboard_ProjectsAndHeatMap(t *testing.T) {
	svc, _ := fixture(t)
	r, err := svc.Dashboard(context.Background(), weekQuery())
	require.NoError(t, err)

	require.Len(t, r.Projects, 2)
	assert.Equal(t, generic.ProjectID("P1"), r.Projects[0].ProjectID)
	assert.Equal(t, "Website", r.Projects[0].Name)
	assert.True(t, r.Projects[0].Hours.Equal(d(51)), "pre-registered counts as committed demand")
	assert.True(t, r.Projects[0].ActiveHours.Equal(d(41)))
	assert.True(t, r.Projects[1].Hours.Equal(d(16)))

	require.Len(t, r.Weeks, 1)
	assert.True(t, r.Weeks[0].Allocated.Equal(d(57)))
	assert.True(t, r.Weeks[0].Capacity.Equal(d(60)))
	assert.True(t, r.Weeks[0].LeaveHours.Equal(d(8)))
	assert.Equal(t, int64(95), r.Weeks[0].Percent)
}

func TestDashboard_LeaveInsights(t *testing.T) {
	svc, _ := fixture(t)
	ins, err := svc.LeaveInsights(context.Background(), weekQuery())
	require.NoError(t, err)

	assert.Equal(t, 1, ins.NextWeekCount)
	assert.Equal(t, 0, ins.NextMonthCount)
	require.NotNil(t, ins.PeakWeek)
	assert.Equal(t, "2025-03-03", ins.PeakWeek.Start.String(), "tie keeps the earliest week")
}

func TestDashboard_PercentageMode(t *testing.T) {
	svc, mem := fixture(t)
	mem.PutCompany(generic.Company{ID: acme, WorkWeekHours: d(40), DisplayMode: generic.DisplayPercentage})

	rows, mode, err := svc.Members(context.Background(), weekQuery())
	require.NoError(t, err)
	assert.Equal(t, generic.DisplayPercentage, mode)
	assert.Equal(t, "80%", rows[0].Weeks[0].Display)
	assert.Equal(t, "125%", rows[1].Weeks[0].Display)
}

func TestProjectStages(t *testing.T) {
	// GIVEN stage "Build" runs 2025-02-19 .. 2025-03-12 and today is 03-05
	svc, _ := fixture(t)

	// WHEN
	reports, err := svc.ProjectStages(context.Background(), weekQuery(), "P1")
	require.NoError(t, err)

	// THEN
	require.Len(t, reports, 2)
	build, later := reports[0], reports[1]
	assert.Equal(t, "Build", build.Progress.Stage.Name)

	assert.True(t, build.Progress.AllocatedHours.Equal(d(59)), "includes hours before the window, got %s", build.Progress.AllocatedHours)
	assert.True(t, build.Progress.Percent.Equal(d(59)))
	assert.False(t, build.Progress.IsOverAllocated)
	assert.Len(t, build.Highlighted, 5, "P2 rows are not highlighted")

	assert.True(t, build.Rollup.TotalPlannedHours.Equal(d(100)))
	assert.True(t, build.Rollup.TotalBudgetAmount.Equal(d(10000)))
	assert.True(t, build.ElapsedWeeks.Equal(d(2)))

	assert.True(t, build.Budget.Spent.Equal(d(3650)), "A 24h x 100 + B 25h x 50, got %s", build.Budget.Spent)
	assert.True(t, build.Budget.Remaining.Equal(d(6350)))
	assert.True(t, build.Budget.UtilizationPercent.Equal(d(36.5)))
	assert.True(t, build.Budget.BurnRate.Equal(d(1825)))
	assert.Equal(t, "3.48", build.Budget.Runway.Weeks.Round(2).String())
	assert.Equal(t, budget.BadgeHealthy, build.Budget.Badge)

	assert.Nil(t, later.Progress.Interval)
	assert.True(t, later.Progress.AllocatedHours.IsZero())
	assert.True(t, later.Budget.Budget.IsZero())
	assert.False(t, later.Budget.Runway.Unbounded)
}

func TestProjectStages_UnknownProject(t *testing.T) {
	svc, _ := fixture(t)
	_, err := svc.ProjectStages(context.Background(), weekQuery(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrProjectNotFound)
}

func TestProjectStages_StageFetchFailure(t *testing.T) {
	svc, mem := fixture(t)
	ctx := context.Background()
	_, err := svc.Dashboard(ctx, weekQuery())
	require.NoError(t, err)

	mem.FailOn("allocations", errors.New("timeout"))
	_, err = svc.ProjectStages(ctx, weekQuery(), "P1")

	var fe *generic.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "stage_allocations", fe.Source)
}

func TestBuild_EmptyBundle(t *testing.T) {
	b := &cache.Bundle{
		Company: generic.Company{ID: acme, WorkWeekHours: d(40)},
		Window:  generic.RangeMonth.Window(date(time.March, 3)),
		AsOf:    date(time.March, 5),
	}
	r := dashboard.Build(b, capacity.DefaultThresholds)

	assert.True(t, r.Team.Capacity.IsZero())
	assert.Equal(t, int64(0), r.Team.Percent)
	assert.Empty(t, r.Members)
	assert.Empty(t, r.Projects)
	assert.Len(t, r.Weeks, 4)
	assert.Nil(t, r.Leave.PeakWeek)
}

func TestSpentAmount_UnknownResourcesCostNothing(t *testing.T) {
	members := map[generic.MemberID]generic.Member{"A": {ID: "A", RoleID: "dev"}}
	cards := []budget.RateCard{{ReferenceID: "dev", ReferenceType: budget.ReferenceRole, Value: d(90), Unit: budget.UnitHour}}
	facts := []generic.AllocationFact{
		alloc("A", "P1", date(time.March, 3), 1.5, generic.ResourceActive),
		alloc("ghost", "P1", date(time.March, 3), 10, generic.ResourcePreRegistered),
	}
	assert.True(t, dashboard.SpentAmount(facts, members, cards, d(40)).Equal(d(135)))
}
