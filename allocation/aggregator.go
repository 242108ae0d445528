/*
Package allocation sums raw per-date allocation facts.

PURPOSE:
  Allocation rows arrive one per member/project/day. Dashboards need them
  rolled up per member, per project, per week and per team over a window.
  Everything here is a pure function over an in-memory slice.

FILTERS:
  Call sites differ on purpose about which rows count:
    - utilization views count only active members (ActiveOnly)
    - stage progress and budgets count pre-registered placeholders too,
      because they are committed demand (CommittedDemand)

  Filters compose with All(...):

    allocation.SumHours(facts, allocation.All(
        allocation.ActiveOnly,
        allocation.InWindow(window),
    ))

ZERO-SEEDING:
  ByEntityAndWeek pre-seeds every requested entity x week with zero so a
  missing week reads as 0, never as an absent key.

PRECISION:
  Each fact's hours are rounded to 2 places before they are added.

SEE ALSO:
  - capacity: denominators for the sums produced here
  - stage/timeline.go: Interval used by Within
*/
package allocation

import (
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// FILTERS
// =============================================================================

// Filter selects facts. A nil Filter selects everything.
type Filter func(generic.AllocationFact) bool

// ActiveOnly keeps rows for active members.
func ActiveOnly(f generic.AllocationFact) bool {
	return f.ResourceType == generic.ResourceActive || f.ResourceType == ""
}

// CommittedDemand keeps active and pre-registered rows.
func CommittedDemand(f generic.AllocationFact) bool {
	return ActiveOnly(f) || f.ResourceType == generic.ResourcePreRegistered
}

// InWindow keeps rows dated inside the window.
func InWindow(w generic.PeriodWindow) Filter {
	return func(f generic.AllocationFact) bool { return w.Contains(f.Date) }
}

// InPeriod keeps rows dated inside the closed period.
func InPeriod(p generic.Period) Filter {
	return func(f generic.AllocationFact) bool { return p.Contains(f.Date) }
}

// ForMember keeps one member's rows.
func ForMember(id generic.MemberID) Filter {
	return func(f generic.AllocationFact) bool { return f.ResourceID == id }
}

// ForMembers keeps facts of the given members.
func ForMembers(ids []generic.MemberID) Filter {
	set := make(map[generic.MemberID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(f generic.AllocationFact) bool { return set[f.ResourceID] }
}

// ForProject keeps one project's rows.
func ForProject(id generic.ProjectID) Filter {
	return func(f generic.AllocationFact) bool { return f.ProjectID == id }
}

// Within keeps rows whose date satisfies contains. It adapts interval types
// that live in other packages without an import cycle.
func Within(contains func(generic.TimePoint) bool) Filter {
	return func(f generic.AllocationFact) bool { return contains(f.Date) }
}

// All combines filters with AND. Nil entries are skipped.
func All(filters ...Filter) Filter {
	return func(f generic.AllocationFact) bool {
		for _, fn := range filters {
			if fn != nil && !fn(f) {
				return false
			}
		}
		return true
	}
}

// Select returns the facts matching filter.
func Select(facts []generic.AllocationFact, filter Filter) []generic.AllocationFact {
	var out []generic.AllocationFact
	for _, f := range facts {
		if filter == nil || filter(f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// SUMS
// =============================================================================

// SumHours totals the hours of facts matching filter.
func SumHours(facts []generic.AllocationFact, filter Filter) decimal.Decimal {
	total := decimal.Zero
	for _, f := range facts {
		if filter != nil && !filter(f) {
			continue
		}
		total = total.Add(generic.RoundHours(f.Hours))
	}
	return total
}

// MemberTotals sums hours per member with no period segmentation.
func MemberTotals(facts []generic.AllocationFact) map[generic.MemberID]decimal.Decimal {
	out := make(map[generic.MemberID]decimal.Decimal)
	for _, f := range facts {
		out[f.ResourceID] = out[f.ResourceID].Add(generic.RoundHours(f.Hours))
	}
	return out
}

// ProjectTotals sums hours per project with no period segmentation.
func ProjectTotals(facts []generic.AllocationFact) map[generic.ProjectID]decimal.Decimal {
	out := make(map[generic.ProjectID]decimal.Decimal)
	for _, f := range facts {
		out[f.ProjectID] = out[f.ProjectID].Add(generic.RoundHours(f.Hours))
	}
	return out
}

// DistinctProjectCount counts the projects a member has positive hours on.
// Zero-hour rows do not count.
func DistinctProjectCount(facts []generic.AllocationFact, memberID generic.MemberID) int {
	projects := make(map[generic.ProjectID]decimal.Decimal)
	for _, f := range facts {
		if f.ResourceID != memberID {
			continue
		}
		projects[f.ProjectID] = projects[f.ProjectID].Add(generic.RoundHours(f.Hours))
	}
	count := 0
	for _, hours := range projects {
		if hours.IsPositive() {
			count++
		}
	}
	return count
}

// =============================================================================
// WEEKLY BUCKETS
// =============================================================================

// EntityKey picks the entity a fact is bucketed under.
type EntityKey func(generic.AllocationFact) string

// ByMember buckets facts by member id.
func ByMember(f generic.AllocationFact) string { return string(f.ResourceID) }

// ByProject buckets facts by project id.
func ByProject(f generic.AllocationFact) string { return string(f.ProjectID) }

// WeekBuckets is entity -> week key (Monday ISO date) -> hours.
type WeekBuckets map[string]map[string]decimal.Decimal

// ByEntityAndWeek buckets facts per entity per week. Every entity in entities
// gets a zero for every requested week, whether or not it has facts. Facts
// dated outside the requested weeks are ignored; facts for entities not in
// entities are still bucketed.
func ByEntityAndWeek(facts []generic.AllocationFact, weeks []generic.TimePoint, entities []string, key EntityKey) WeekBuckets {
	keys := generic.WeekKeys(weeks)
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	out := make(WeekBuckets, len(entities))
	seed := func(entity string) map[string]decimal.Decimal {
		row, ok := out[entity]
		if !ok {
			row = make(map[string]decimal.Decimal, len(keys))
			for _, k := range keys {
				row[k] = decimal.Zero
			}
			out[entity] = row
		}
		return row
	}
	for _, e := range entities {
		seed(e)
	}

	for _, f := range facts {
		wk := f.Date.WeekKey()
		if !wanted[wk] {
			continue
		}
		row := seed(key(f))
		row[wk] = row[wk].Add(generic.RoundHours(f.Hours))
	}
	return out
}

// WeekTotals sums all facts per week, zero-seeded for every requested week.
func WeekTotals(facts []generic.AllocationFact, weeks []generic.TimePoint) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(weeks))
	for _, k := range generic.WeekKeys(weeks) {
		out[k] = decimal.Zero
	}
	for _, f := range facts {
		wk := f.Date.WeekKey()
		if cur, ok := out[wk]; ok {
			out[wk] = cur.Add(generic.RoundHours(f.Hours))
		}
	}
	return out
}
