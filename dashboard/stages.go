package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/allocation"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/stage"
)

// =============================================================================
// STAGE REPORT
// =============================================================================

// StageReport is the progress and budget card of one project stage.
type StageReport struct {
	ProjectID    generic.ProjectID
	ProjectName  string
	Progress     stage.Progress
	Composition  []budget.TeamCompositionItem
	Rollup       budget.Rollup
	ElapsedWeeks decimal.Decimal
	Budget       budget.Overview
	Highlighted  []generic.AllocationFact
}

// StageReports builds a report for every stage of project, ordered by stage
// name. facts must cover the stages' intervals; facts outside them or for
// other projects are ignored.
func StageReports(b *cache.Bundle, project stage.Project, facts []generic.AllocationFact) []StageReport {
	members := make(map[generic.MemberID]generic.Member, len(b.Members))
	for _, m := range b.Members {
		members[m.ID] = m
	}

	var out []StageReport
	for _, s := range b.Stages {
		if s.ProjectID != project.ID {
			continue
		}
		progress := stage.ProgressFor(project, s, facts)
		items := budget.ItemsForStage(b.Compositions, s.ID)
		rollup := budget.RollupComposition(items)

		highlighted := allocation.Select(stage.HighlightAllocations(facts, progress.Interval), allocation.All(
			allocation.CommittedDemand,
			allocation.ForProject(project.ID),
		))
		spent := SpentAmount(highlighted, members, b.RateCards, b.Company.WorkWeekHours)

		elapsed := decimal.Zero
		if progress.Interval != nil {
			elapsed = progress.Interval.ElapsedWeeks(b.AsOf)
		}

		out = append(out, StageReport{
			ProjectID:    project.ID,
			ProjectName:  project.Name,
			Progress:     progress,
			Composition:  items,
			Rollup:       rollup,
			ElapsedWeeks: elapsed,
			Budget:       budget.Summarize(rollup.TotalBudgetAmount, spent, elapsed),
			Highlighted:  highlighted,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Progress.Stage.Name < out[j].Progress.Stage.Name })
	return out
}

// SpentAmount prices allocated hours at each member's hourly rate. Hours of
// resources that are not members (pre-registered placeholders) have no rate
// and cost nothing.
func SpentAmount(facts []generic.AllocationFact, members map[generic.MemberID]generic.Member, cards []budget.RateCard, workWeekHours decimal.Decimal) decimal.Decimal {
	spent := decimal.Zero
	rates := make(map[generic.MemberID]decimal.Decimal)
	for _, f := range facts {
		m, ok := members[f.ResourceID]
		if !ok {
			continue
		}
		rate, cached := rates[m.ID]
		if !cached {
			rate = budget.MemberHourlyRate(cards, m, workWeekHours)
			rates[m.ID] = rate
		}
		spent = spent.Add(generic.RoundHours(f.Hours).Mul(rate))
	}
	return generic.RoundHours(spent)
}

// StagePeriod is the closed date span covering every dated stage of the
// project. ok is false when no stage has an interval.
func StagePeriod(b *cache.Bundle, project stage.Project) (generic.Period, bool) {
	var p generic.Period
	found := false
	for _, s := range b.Stages {
		if s.ProjectID != project.ID {
			continue
		}
		iv := stage.IntervalFor(project.ContractStartDate, s.ContractedWeeks)
		if iv == nil {
			continue
		}
		if !found || iv.Start.Before(p.Start) {
			p.Start = iv.Start
		}
		if !found || iv.End.After(p.End) {
			p.End = iv.End
		}
		found = true
	}
	return p, found
}
