/*
Package leave aggregates and distributes leave hours.

PURPOSE:
  Leave (annual, public holiday, other) shrinks the time a member can be
  allocated. The dashboard reads it three ways:

    - totals per member (leave summary cards)
    - per member per week / month (heat maps)
    - insights: who is out next week, next month, and the busiest week ahead

  and writes it one way: a weekly total typed into a grid cell is spread
  evenly across Monday..Friday and replaces whatever was there.

WEEKS:
  Weeks start on Monday. Week keys are the ISO date of that Monday, the same
  keys the allocation package uses, so leave and allocation grids line up.

SEE ALSO:
  - insights.go: next-week / next-month counts and peak-week detection
  - distribute.go: even weekday distribution
  - planner.go: replace-not-merge write path
*/
package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// SumByMember totals leave hours per member.
func SumByMember(facts []generic.LeaveFact) map[generic.MemberID]decimal.Decimal {
	out := make(map[generic.MemberID]decimal.Decimal)
	for _, f := range facts {
		out[f.MemberID] = out[f.MemberID].Add(generic.RoundHours(f.Hours))
	}
	return out
}

// SumHours totals leave hours for one member inside the window.
func SumHours(facts []generic.LeaveFact, memberID generic.MemberID, window generic.PeriodWindow) decimal.Decimal {
	total := decimal.Zero
	for _, f := range facts {
		if f.MemberID == memberID && window.Contains(f.Date) {
			total = total.Add(generic.RoundHours(f.Hours))
		}
	}
	return total
}

// ByMemberAndWeek buckets leave per member per week key. Every member in
// memberIDs gets a zero for each requested week; facts outside the weeks are
// ignored.
func ByMemberAndWeek(facts []generic.LeaveFact, memberIDs []generic.MemberID, weeks []generic.TimePoint) map[generic.MemberID]map[string]decimal.Decimal {
	keys := generic.WeekKeys(weeks)
	out := make(map[generic.MemberID]map[string]decimal.Decimal, len(memberIDs))
	seed := func(id generic.MemberID) map[string]decimal.Decimal {
		row, ok := out[id]
		if !ok {
			row = make(map[string]decimal.Decimal, len(keys))
			for _, k := range keys {
				row[k] = decimal.Zero
			}
			out[id] = row
		}
		return row
	}
	for _, id := range memberIDs {
		seed(id)
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	for _, f := range facts {
		wk := f.Date.WeekKey()
		if !wanted[wk] {
			continue
		}
		row := seed(f.MemberID)
		row[wk] = row[wk].Add(generic.RoundHours(f.Hours))
	}
	return out
}

// ByMemberAndMonth buckets leave per member per "YYYY-MM".
func ByMemberAndMonth(facts []generic.LeaveFact) map[generic.MemberID]map[string]decimal.Decimal {
	out := make(map[generic.MemberID]map[string]decimal.Decimal)
	for _, f := range facts {
		row, ok := out[f.MemberID]
		if !ok {
			row = make(map[string]decimal.Decimal)
			out[f.MemberID] = row
		}
		mk := f.Date.MonthKey()
		row[mk] = row[mk].Add(generic.RoundHours(f.Hours))
	}
	return out
}
