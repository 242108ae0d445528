package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/generic/store"
	"github.com/warp/resourcing-engine/leave"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func date(m time.Month, day int) generic.TimePoint { return generic.NewTimePoint(2025, m, day) }

func hours(days []leave.DailyLeave) []string {
	out := make([]string, len(days))
	for i, day := range days {
		out[i] = day.Hours.String()
	}
	return out
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

func TestDistribute_WholeHours(t *testing.T) {
	days := leave.DistributeWeeklyTotal(d(23), date(time.March, 5))

	require.Len(t, days, 5)
	assert.Equal(t, []string{"5", "5", "5", "4", "4"}, hours(days))
	assert.Equal(t, "2025-03-03", days[0].Date.String(), "snaps to Monday")
	assert.Equal(t, "2025-03-07", days[4].Date.String())
	assert.True(t, leave.Total(days).Equal(d(23)))
}

func TestDistribute_EvenSplit(t *testing.T) {
	days := leave.DistributeWeeklyTotal(d(40), date(time.March, 3))
	assert.Equal(t, []string{"8", "8", "8", "8", "8"}, hours(days))
}

func TestDistribute_FractionalRemainderKeepsTotal(t *testing.T) {
	days := leave.DistributeWeeklyTotal(d(7.5), date(time.March, 3))
	assert.Equal(t, []string{"2", "2", "1.5", "1", "1"}, hours(days))
	assert.True(t, leave.Total(days).Equal(d(7.5)))
}

func TestDistribute_ZeroAndNegative(t *testing.T) {
	for _, total := range []float64{0, -12} {
		days := leave.DistributeWeeklyTotal(d(total), date(time.March, 3))
		require.Len(t, days, 5, "always five weekday rows")
		assert.True(t, leave.Total(days).IsZero())
	}
}

func TestDistribute_NeverTouchesWeekend(t *testing.T) {
	for _, day := range leave.DistributeWeeklyTotal(d(3), date(time.March, 9)) {
		assert.True(t, day.Date.IsWorkday(), "%s", day.Date)
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

func facts() []generic.LeaveFact {
	return []generic.LeaveFact{
		{MemberID: "A", Date: date(time.March, 4), Hours: d(8), LeaveType: generic.LeaveAnnual},
		{MemberID: "A", Date: date(time.March, 11), Hours: d(4), LeaveType: generic.LeaveHoliday},
		{MemberID: "B", Date: date(time.March, 5), Hours: d(2.5), LeaveType: generic.LeaveOther},
		{MemberID: "B", Date: date(time.April, 2), Hours: d(8), LeaveType: generic.LeaveAnnual},
	}
}

func TestSumHours_WindowAndMember(t *testing.T) {
	w := generic.NewPeriodWindow(date(time.March, 3), 1)
	assert.True(t, leave.SumHours(facts(), "A", w).Equal(d(8)))
	assert.True(t, leave.SumHours(facts(), "B", w).Equal(d(2.5)))
	assert.True(t, leave.SumHours(facts(), "C", w).IsZero())

	totals := leave.SumByMember(facts())
	assert.True(t, totals["A"].Equal(d(12)))
	assert.True(t, totals["B"].Equal(d(10.5)))
}

func TestByMemberAndWeek_SeedsZeros(t *testing.T) {
	weeks := generic.WeekStarts(date(time.March, 3), 2)
	grid := leave.ByMemberAndWeek(facts(), []generic.MemberID{"A", "B", "C"}, weeks)

	assert.True(t, grid["A"]["2025-03-03"].Equal(d(8)))
	assert.True(t, grid["A"]["2025-03-10"].Equal(d(4)))
	assert.True(t, grid["B"]["2025-03-10"].IsZero())
	assert.Len(t, grid["C"], 2)
	assert.NotContains(t, grid["B"], "2025-03-31")
}

func TestByMemberAndMonth(t *testing.T) {
	grid := leave.ByMemberAndMonth(facts())
	assert.True(t, grid["A"]["2025-03"].Equal(d(12)))
	assert.True(t, grid["B"]["2025-04"].Equal(d(8)))
}

// =============================================================================
// INSIGHTS
// =============================================================================

func TestInsights_Counts(t *testing.T) {
	// GIVEN today is Wednesday 2025-03-05
	today := date(time.March, 5)
	fs := []generic.LeaveFact{
		{MemberID: "A", Date: date(time.March, 10), Hours: d(8)},
		{MemberID: "A", Date: date(time.March, 11), Hours: d(8)},
		{MemberID: "B", Date: date(time.March, 14), Hours: d(4)},
		{MemberID: "C", Date: date(time.April, 7), Hours: d(8)},
		{MemberID: "D", Date: date(time.March, 12), Hours: d(0)},
	}

	// WHEN
	got := leave.Insights(fs, nil, today)

	// THEN
	assert.Equal(t, 2, got.NextWeekCount, "A counted once, zero-hour D ignored")
	assert.Equal(t, 1, got.NextMonthCount)
	require.NotNil(t, got.PeakWeek)
	assert.Equal(t, "2025-03-10", got.PeakWeek.Start.String())
	assert.Equal(t, "Mar 10 - Mar 16", got.PeakWeek.Label)
	assert.Equal(t, 2, got.PeakWeek.Members)
}

func TestInsights_PeakTieKeepsEarliestWeek(t *testing.T) {
	today := date(time.March, 5)
	fs := []generic.LeaveFact{
		{MemberID: "A", Date: date(time.March, 18), Hours: d(8)},
		{MemberID: "B", Date: date(time.April, 1), Hours: d(8)},
	}
	got := leave.Insights(fs, nil, today)
	require.NotNil(t, got.PeakWeek)
	assert.Equal(t, "2025-03-17", got.PeakWeek.Start.String())
	assert.Equal(t, 1, got.PeakWeek.Members)
}

func TestInsights_NoLeaveMeansNoPeak(t *testing.T) {
	got := leave.Insights(nil, nil, date(time.March, 5))
	assert.Nil(t, got.PeakWeek)
	assert.Zero(t, got.NextWeekCount)
	assert.Zero(t, got.NextMonthCount)
}

func TestInsights_BeyondScanWindowIgnoredForPeak(t *testing.T) {
	today := date(time.March, 5)
	fs := []generic.LeaveFact{{MemberID: "A", Date: date(time.June, 2), Hours: d(8)}}
	assert.Nil(t, leave.Insights(fs, nil, today).PeakWeek)
}

func TestInsights_RestrictedToMembers(t *testing.T) {
	today := date(time.March, 5)
	fs := []generic.LeaveFact{
		{MemberID: "A", Date: date(time.March, 10), Hours: d(8)},
		{MemberID: "gone", Date: date(time.March, 10), Hours: d(8)},
	}
	got := leave.Insights(fs, []generic.MemberID{"A"}, today)
	assert.Equal(t, 1, got.NextWeekCount)
}

// =============================================================================
// PLANNER
// =============================================================================

func newPlanner(t *testing.T) (*leave.Planner, *store.Memory, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	mem := store.NewMemory()
	return leave.NewPlanner(mem, mem, logger), mem, hook
}

func request(total float64) leave.WeeklyRequest {
	return leave.WeeklyRequest{
		CompanyID:  "acme",
		MemberID:   "A",
		LeaveType:  generic.LeaveAnnual,
		WeekStart:  date(time.March, 5),
		TotalHours: d(total),
		ActorID:    "manager-1",
	}
}

func TestReplaceWeek_ReplacesNotMerges(t *testing.T) {
	// GIVEN
	p, mem, _ := newPlanner(t)
	ctx := context.Background()
	var changed []generic.CompanyID
	p.OnChange = func(id generic.CompanyID) { changed = append(changed, id) }

	// WHEN the same week is entered twice
	_, err := p.ReplaceWeek(ctx, request(20))
	require.NoError(t, err)
	recs, err := p.ReplaceWeek(ctx, request(23))
	require.NoError(t, err)

	// THEN only the second distribution remains
	stored := mem.LeaveRecords("A")
	require.Len(t, stored, 5)
	total := decimal.Zero
	for _, r := range stored {
		total = total.Add(r.Hours)
	}
	assert.True(t, total.Equal(d(23)), "got %s", total)
	assert.Equal(t, recs, stored)
	assert.Equal(t, []generic.CompanyID{"acme", "acme"}, changed)
}

func TestReplaceWeek_OtherTypesAndWeeksUntouched(t *testing.T) {
	p, mem, _ := newPlanner(t)
	ctx := context.Background()
	mem.AddLeave(
		generic.LeaveRecord{ID: "h1", MemberID: "A", CompanyID: "acme", Date: date(time.March, 4), Hours: d(8), LeaveType: generic.LeaveHoliday},
		generic.LeaveRecord{ID: "a0", MemberID: "A", CompanyID: "acme", Date: date(time.February, 26), Hours: d(8), LeaveType: generic.LeaveAnnual},
		generic.LeaveRecord{ID: "b1", MemberID: "B", CompanyID: "acme", Date: date(time.March, 4), Hours: d(8), LeaveType: generic.LeaveAnnual},
	)

	_, err := p.ReplaceWeek(ctx, request(0))
	require.NoError(t, err)

	var ids []string
	for _, r := range mem.LeaveRecords("A") {
		if r.LeaveType == generic.LeaveHoliday || r.Date.Before(date(time.March, 3)) {
			ids = append(ids, r.ID)
		}
	}
	assert.ElementsMatch(t, []string{"h1", "a0"}, ids)
	assert.Len(t, mem.LeaveRecords("B"), 1)
}

func TestReplaceWeek_WritesAuditEntry(t *testing.T) {
	p, mem, _ := newPlanner(t)
	_, err := p.ReplaceWeek(context.Background(), request(16))
	require.NoError(t, err)

	entries, err := mem.QueryAudit(context.Background(), generic.AuditFilter{CompanyID: "acme"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, generic.AuditLeaveReplaced, entries[0].Action)
	assert.Equal(t, "manager-1", entries[0].ActorID)
	assert.Equal(t, "2025-03-03", entries[0].Payload["week"])
	assert.Equal(t, "16", entries[0].Payload["total"])
}

func TestReplaceWeek_AuditFailureDoesNotFailWrite(t *testing.T) {
	p, mem, hook := newPlanner(t)
	mem.FailOn("audit", errors.New("disk full"))

	_, err := p.ReplaceWeek(context.Background(), request(8))
	require.NoError(t, err)
	assert.Len(t, mem.LeaveRecords("A"), 5)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestReplaceWeek_WriteFailure(t *testing.T) {
	p, mem, _ := newPlanner(t)
	called := false
	p.OnChange = func(generic.CompanyID) { called = true }
	mem.FailOn("replace_leave", errors.New("locked"))

	_, err := p.ReplaceWeek(context.Background(), request(8))
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrWriteFailed)
	assert.False(t, called)
	assert.Empty(t, mem.LeaveRecords("A"))
}

func TestReplaceWeek_Validation(t *testing.T) {
	p, _, _ := newPlanner(t)

	req := request(8)
	req.LeaveType = "sabbatical"
	_, err := p.ReplaceWeek(context.Background(), req)
	assert.ErrorIs(t, err, generic.ErrInvalidLeaveType)

	req = request(8)
	req.MemberID = ""
	_, err = p.ReplaceWeek(context.Background(), req)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.True(t, generic.IsClientError(err))
}
