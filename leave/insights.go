package leave

import (
	"fmt"

	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// UTILIZATION INSIGHTS
// =============================================================================

// PeakWindowWeeks is how far ahead peak-week detection scans.
const PeakWindowWeeks = 12

// PeakWeek is the week ahead with the most distinct members on leave.
type PeakWeek struct {
	Start   generic.TimePoint
	Label   string
	Members int
}

// UtilizationInsights summarises upcoming leave.
type UtilizationInsights struct {
	NextWeekCount  int
	NextMonthCount int
	PeakWeek       *PeakWeek
}

// Insights counts distinct members with positive leave:
//   - next week: the Monday-start week containing today+7
//   - next month: the calendar month after today's month
//   - peak week: the week with the strictly highest count among the 12 weeks
//     starting with today's week; the earliest wins ties; nil when all zero
//
// A nil memberIDs counts every member present in facts; otherwise facts for
// other members are ignored.
func Insights(facts []generic.LeaveFact, memberIDs []generic.MemberID, today generic.TimePoint) UtilizationInsights {
	var allowed map[generic.MemberID]bool
	if memberIDs != nil {
		allowed = make(map[generic.MemberID]bool, len(memberIDs))
		for _, id := range memberIDs {
			allowed[id] = true
		}
	}
	counted := func(f generic.LeaveFact) bool {
		if !generic.RoundHours(f.Hours).IsPositive() {
			return false
		}
		return allowed == nil || allowed[f.MemberID]
	}

	nextWeek := generic.NewPeriodWindow(today.AddDays(7), 1)
	thisMonth := generic.StartOfMonth(today.Year(), today.Month())
	nextMonth := generic.MonthPeriod(thisMonth.AddMonths(1))

	weeks := generic.WeekStarts(today, PeakWindowWeeks)
	scan := generic.NewPeriodWindow(today, PeakWindowWeeks)

	weekMembers := make(map[string]map[generic.MemberID]bool, len(weeks))
	nextWeekMembers := make(map[generic.MemberID]bool)
	nextMonthMembers := make(map[generic.MemberID]bool)

	for _, f := range facts {
		if !counted(f) {
			continue
		}
		if nextWeek.Contains(f.Date) {
			nextWeekMembers[f.MemberID] = true
		}
		if nextMonth.Contains(f.Date) {
			nextMonthMembers[f.MemberID] = true
		}
		if scan.Contains(f.Date) {
			wk := f.Date.WeekKey()
			if weekMembers[wk] == nil {
				weekMembers[wk] = make(map[generic.MemberID]bool)
			}
			weekMembers[wk][f.MemberID] = true
		}
	}

	var peak *PeakWeek
	for _, w := range weeks {
		n := len(weekMembers[w.WeekKey()])
		if n == 0 {
			continue
		}
		if peak == nil || n > peak.Members {
			peak = &PeakWeek{Start: w, Label: WeekLabel(w), Members: n}
		}
	}

	return UtilizationInsights{
		NextWeekCount:  len(nextWeekMembers),
		NextMonthCount: len(nextMonthMembers),
		PeakWeek:       peak,
	}
}

// WeekLabel renders a week as "Mar 3 - Mar 9".
func WeekLabel(weekStart generic.TimePoint) string {
	start := weekStart.StartOfWeek()
	end := start.AddDays(6)
	return fmt.Sprintf("%s - %s", start.Time.Format("Jan 2"), end.Time.Format("Jan 2"))
}
