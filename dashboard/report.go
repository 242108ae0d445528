/*
Package dashboard assembles the figures shown on the resourcing dashboard.

PURPOSE:
  The aggregation packages are leaf functions. This package wires them over
  one cache.Bundle into the report the API serves:

    Team      capacity, active allocation, available hours, band
    Members   one row per member with a weekly breakdown
    Projects  hours per project in the window (committed demand)
    Weeks     team heat map, one cell per week
    Leave     upcoming leave insights
    Stages    per-stage progress and budget (see stages.go)

RULES:
  - Utilization figures count active resources only. Pre-registered
    placeholders are demand, not load on a real person.
  - Project and stage figures count active and pre-registered hours.
  - Utilization uses raw capacity. Leave-adjusted capacity is reported
    alongside but never used as the denominator.

SEE ALSO:
  - service.go: loads bundles through the cache
  - stages.go: stage progress and budget reports
*/
package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/allocation"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/capacity"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/leave"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// Report is the full dashboard for one company and window.
type Report struct {
	CompanyID   generic.CompanyID
	Window      generic.PeriodWindow
	AsOf        generic.TimePoint
	DisplayMode generic.DisplayMode
	Team        TeamSummary
	Members     []MemberRow
	Projects    []ProjectRow
	Weeks       []WeekCell
	Leave       leave.UtilizationInsights
}

// TeamSummary is the top utilization card.
type TeamSummary struct {
	capacity.Summary
	MemberCount      int
	LeaveHours       decimal.Decimal
	AdjustedCapacity decimal.Decimal
}

// MemberRow is one member's line in the utilization table.
type MemberRow struct {
	capacity.Summary
	MemberID         generic.MemberID
	Name             string
	WeeklyCapacity   decimal.Decimal
	LeaveHours       decimal.Decimal
	AdjustedCapacity decimal.Decimal
	ProjectCount     int
	Weeks            []WeekCell
}

// ProjectRow totals one project's committed demand in the window.
type ProjectRow struct {
	ProjectID   generic.ProjectID
	Name        string
	Hours       decimal.Decimal
	ActiveHours decimal.Decimal
}

// WeekCell is one week of a member row or of the team heat map.
type WeekCell struct {
	Week       generic.TimePoint
	Allocated  decimal.Decimal
	LeaveHours decimal.Decimal
	Capacity   decimal.Decimal
	Percent    int64
	Band       capacity.Band
	Warning    capacity.WarningLevel
	Display    string
}

// =============================================================================
// BUILD
// =============================================================================

// Build computes the report for a bundle. It never fails: missing data reads
// as zero.
func Build(b *cache.Bundle, t capacity.Thresholds) Report {
	weeks := b.Window.WeekStarts()
	active := allocation.Select(b.Allocations, allocation.All(
		allocation.ActiveOnly,
		allocation.InWindow(b.Window),
		allocation.ForMembers(b.MemberIDs()),
	))
	leaveFacts := b.AllLeave()

	members := MemberRows(b, t)

	team := TeamSummary{MemberCount: len(b.Members), LeaveHours: decimal.Zero, AdjustedCapacity: decimal.Zero}
	teamCapacity := capacity.TeamCapacity(b.Members, b.Company.WorkWeekHours, b.Window.Weeks)
	team.Summary = capacity.Summarize(allocation.SumHours(active, nil), teamCapacity)
	for _, row := range members {
		team.LeaveHours = team.LeaveHours.Add(row.LeaveHours)
		team.AdjustedCapacity = team.AdjustedCapacity.Add(row.AdjustedCapacity)
	}

	return Report{
		CompanyID:   b.Company.ID,
		Window:      b.Window,
		AsOf:        b.AsOf,
		DisplayMode: b.Company.DisplayMode,
		Team:        team,
		Members:     members,
		Projects:    ProjectRows(b),
		Weeks:       heatMap(b, active, leaveFacts, weeks, t),
		Leave:       leave.Insights(leaveFacts, b.MemberIDs(), b.AsOf),
	}
}

// MemberRows builds the member table in bundle order.
func MemberRows(b *cache.Bundle, t capacity.Thresholds) []MemberRow {
	weeks := b.Window.WeekStarts()
	active := allocation.Select(b.Allocations, allocation.All(allocation.ActiveOnly, allocation.InWindow(b.Window)))
	leaveFacts := b.AllLeave()

	ids := make([]string, len(b.Members))
	for i, m := range b.Members {
		ids[i] = string(m.ID)
	}
	allocGrid := allocation.ByEntityAndWeek(active, weeks, ids, allocation.ByMember)
	leaveGrid := leave.ByMemberAndWeek(leaveFacts, b.MemberIDs(), weeks)
	totals := allocation.MemberTotals(active)

	rows := make([]MemberRow, 0, len(b.Members))
	for _, m := range b.Members {
		weekly := capacity.ForMember(m, b.Company)
		periodCap := capacity.ForPeriod(weekly, b.Window.Weeks)
		leaveHours := leave.SumHours(leaveFacts, m.ID, b.Window)
		allocated := totals[m.ID]
		if allocated.IsZero() {
			allocated = decimal.Zero
		}

		row := MemberRow{
			Summary:          capacity.Summarize(allocated, periodCap),
			MemberID:         m.ID,
			Name:             m.Name,
			WeeklyCapacity:   weekly,
			LeaveHours:       leaveHours,
			AdjustedCapacity: capacity.LeaveAdjusted(periodCap, leaveHours),
			ProjectCount:     allocation.DistinctProjectCount(active, m.ID),
		}
		for _, w := range weeks {
			wk := w.WeekKey()
			row.Weeks = append(row.Weeks, cell(w, allocGrid[string(m.ID)][wk], leaveGrid[m.ID][wk], weekly, b.Company.DisplayMode, t))
		}
		rows = append(rows, row)
	}
	return rows
}

// ProjectRows totals committed demand per project in the window, largest
// first. Projects without hours are omitted.
func ProjectRows(b *cache.Bundle) []ProjectRow {
	inWindow := allocation.Select(b.Allocations, allocation.All(allocation.CommittedDemand, allocation.InWindow(b.Window)))
	totals := allocation.ProjectTotals(inWindow)
	activeTotals := allocation.ProjectTotals(allocation.Select(inWindow, allocation.ActiveOnly))

	names := make(map[generic.ProjectID]string, len(b.Projects))
	for _, p := range b.Projects {
		names[p.ID] = p.Name
	}

	rows := make([]ProjectRow, 0, len(totals))
	for id, hours := range totals {
		active := activeTotals[id]
		if active.IsZero() {
			active = decimal.Zero
		}
		rows = append(rows, ProjectRow{ProjectID: id, Name: names[id], Hours: hours, ActiveHours: active})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Hours.Equal(rows[j].Hours) {
			return rows[i].Hours.GreaterThan(rows[j].Hours)
		}
		return rows[i].ProjectID < rows[j].ProjectID
	})
	return rows
}

func heatMap(b *cache.Bundle, active []generic.AllocationFact, leaveFacts []generic.LeaveFact, weeks []generic.TimePoint, t capacity.Thresholds) []WeekCell {
	allocTotals := allocation.WeekTotals(active, weeks)
	weeklyCap := capacity.TeamCapacity(b.Members, b.Company.WorkWeekHours, 1)

	members := make(map[generic.MemberID]bool, len(b.Members))
	for _, m := range b.Members {
		members[m.ID] = true
	}
	leaveTotals := make(map[string]decimal.Decimal, len(weeks))
	for _, w := range weeks {
		leaveTotals[w.WeekKey()] = decimal.Zero
	}
	for _, f := range leaveFacts {
		if !members[f.MemberID] {
			continue
		}
		wk := f.Date.WeekKey()
		if cur, ok := leaveTotals[wk]; ok {
			leaveTotals[wk] = cur.Add(generic.RoundHours(f.Hours))
		}
	}

	cells := make([]WeekCell, len(weeks))
	for i, w := range weeks {
		wk := w.WeekKey()
		cells[i] = cell(w, allocTotals[wk], leaveTotals[wk], weeklyCap, b.Company.DisplayMode, t)
	}
	return cells
}

func cell(week generic.TimePoint, allocated, leaveHours, weeklyCap decimal.Decimal, mode generic.DisplayMode, t capacity.Thresholds) WeekCell {
	pct := capacity.Percent(allocated, weeklyCap)
	return WeekCell{
		Week:       week,
		Allocated:  allocated,
		LeaveHours: leaveHours,
		Capacity:   weeklyCap,
		Percent:    pct,
		Band:       capacity.BandFor(pct),
		Warning:    capacity.WarningLevelFor(pct, t),
		Display:    capacity.ToDisplay(allocated, weeklyCap, mode),
	}
}
