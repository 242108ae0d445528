// Package store provides an in-memory data store.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/stage"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements cache.Source, cache.Importer, generic.LeaveWriter and
// generic.AuditLog.
type Memory struct {
	mu           sync.RWMutex
	companies    map[generic.CompanyID]generic.Company
	members      map[generic.CompanyID][]generic.Member
	allocations  map[generic.CompanyID][]generic.AllocationFact
	leave        []generic.LeaveRecord
	rateCards    map[generic.CompanyID][]budget.RateCard
	projects     map[generic.CompanyID][]stage.Project
	stages       map[generic.CompanyID][]stage.ProjectStage
	compositions map[generic.CompanyID][]budget.TeamCompositionItem
	audit        []generic.AuditEntry

	failures map[string]error
	calls    map[string]int
}

var (
	_ cache.Source        = (*Memory)(nil)
	_ cache.Importer      = (*Memory)(nil)
	_ generic.LeaveWriter = (*Memory)(nil)
	_ generic.AuditLog    = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		companies:    make(map[generic.CompanyID]generic.Company),
		members:      make(map[generic.CompanyID][]generic.Member),
		allocations:  make(map[generic.CompanyID][]generic.AllocationFact),
		rateCards:    make(map[generic.CompanyID][]budget.RateCard),
		projects:     make(map[generic.CompanyID][]stage.Project),
		stages:       make(map[generic.CompanyID][]stage.ProjectStage),
		compositions: make(map[generic.CompanyID][]budget.TeamCompositionItem),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
}

// =============================================================================
// FAILURE INJECTION
// =============================================================================

// FailOn makes every call to the named source return err until cleared with
// a nil err. Names match the cache fetch sources: "company", "members",
// "allocations", "leave", "rate_cards", "projects", "stages", "compositions",
// "replace_leave", "audit", "import".
func (m *Memory) FailOn(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, source)
		return
	}
	m.failures[source] = err
}

// Calls reports how many times source was called.
func (m *Memory) Calls(source string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[source]
}

// enter records the call and returns the injected failure. Caller holds mu.
func (m *Memory) enter(source string) error {
	m.calls[source]++
	return m.failures[source]
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) PutCompany(c generic.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
}

func (m *Memory) PutMembers(companyID generic.CompanyID, members ...generic.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range members {
		mem.CompanyID = companyID
		m.members[companyID] = upsertBy(m.members[companyID], mem, func(x generic.Member) string { return string(x.ID) })
	}
}

func (m *Memory) AddAllocations(companyID generic.CompanyID, facts ...generic.AllocationFact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range facts {
		m.allocations[companyID] = upsertBy(m.allocations[companyID], f, allocationKey)
	}
}

func (m *Memory) AddLeave(records ...generic.LeaveRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.leave = upsertBy(m.leave, r, func(x generic.LeaveRecord) string { return x.ID })
	}
}

func (m *Memory) PutRateCards(companyID generic.CompanyID, cards ...budget.RateCard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cards {
		c.CompanyID = companyID
		m.rateCards[companyID] = upsertBy(m.rateCards[companyID], c, rateCardKey)
	}
}

func (m *Memory) PutProjects(companyID generic.CompanyID, projects ...stage.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range projects {
		p.CompanyID = companyID
		m.projects[companyID] = upsertBy(m.projects[companyID], p, func(x stage.Project) string { return string(x.ID) })
	}
}

func (m *Memory) PutStages(companyID generic.CompanyID, stages ...stage.ProjectStage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stages {
		m.stages[companyID] = upsertBy(m.stages[companyID], s, func(x stage.ProjectStage) string { return string(x.ID) })
	}
}

func (m *Memory) PutCompositions(companyID generic.CompanyID, items ...budget.TeamCompositionItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.compositions[companyID] = upsertBy(m.compositions[companyID], it, func(x budget.TeamCompositionItem) string { return x.ID })
	}
}

// LeaveRecords returns every stored leave row for the member, ordered by date.
func (m *Memory) LeaveRecords(memberID generic.MemberID) []generic.LeaveRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.LeaveRecord
	for _, r := range m.leave {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// SOURCE
// =============================================================================

func (m *Memory) Company(_ context.Context, companyID generic.CompanyID) (generic.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("company"); err != nil {
		return generic.Company{}, err
	}
	c, ok := m.companies[companyID]
	if !ok {
		return generic.Company{}, fmt.Errorf("%w: %s", generic.ErrCompanyNotFound, companyID)
	}
	return c, nil
}

func (m *Memory) Members(_ context.Context, companyID generic.CompanyID) ([]generic.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("members"); err != nil {
		return nil, err
	}
	return append([]generic.Member(nil), m.members[companyID]...), nil
}

func (m *Memory) Allocations(_ context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.AllocationFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("allocations"); err != nil {
		return nil, err
	}
	var out []generic.AllocationFact
	for _, f := range m.allocations[companyID] {
		if period.Contains(f.Date) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) Leave(_ context.Context, companyID generic.CompanyID, leaveType generic.LeaveType, period generic.Period) ([]generic.LeaveFact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("leave"); err != nil {
		return nil, err
	}
	var out []generic.LeaveFact
	for _, r := range m.leave {
		if r.CompanyID != companyID || r.LeaveType != leaveType || !period.Contains(r.Date) {
			continue
		}
		out = append(out, generic.LeaveFact{MemberID: r.MemberID, Date: r.Date, Hours: r.Hours, LeaveType: r.LeaveType})
	}
	return out, nil
}

func (m *Memory) RateCards(_ context.Context, companyID generic.CompanyID) ([]budget.RateCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("rate_cards"); err != nil {
		return nil, err
	}
	return append([]budget.RateCard(nil), m.rateCards[companyID]...), nil
}

func (m *Memory) Projects(_ context.Context, companyID generic.CompanyID) ([]stage.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("projects"); err != nil {
		return nil, err
	}
	return append([]stage.Project(nil), m.projects[companyID]...), nil
}

func (m *Memory) Stages(_ context.Context, companyID generic.CompanyID) ([]stage.ProjectStage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("stages"); err != nil {
		return nil, err
	}
	return append([]stage.ProjectStage(nil), m.stages[companyID]...), nil
}

func (m *Memory) Compositions(_ context.Context, companyID generic.CompanyID) ([]budget.TeamCompositionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("compositions"); err != nil {
		return nil, err
	}
	return append([]budget.TeamCompositionItem(nil), m.compositions[companyID]...), nil
}

// =============================================================================
// WRITES
// =============================================================================

// ReplaceLeaveWeek drops the member's rows of leaveType in the week and
// inserts records. Nothing changes when the write fails.
func (m *Memory) ReplaceLeaveWeek(_ context.Context, companyID generic.CompanyID, memberID generic.MemberID, leaveType generic.LeaveType, weekStart generic.TimePoint, records []generic.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("replace_leave"); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrWriteFailed, err)
	}

	monday := weekStart.StartOfWeek()
	week := generic.Period{Start: monday, End: monday.AddDays(6)}
	kept := m.leave[:0:0]
	for _, r := range m.leave {
		if r.CompanyID == companyID && r.MemberID == memberID && r.LeaveType == leaveType && week.Contains(r.Date) {
			continue
		}
		kept = append(kept, r)
	}
	m.leave = append(kept, records...)
	return nil
}

// Import upserts the batch.
func (m *Memory) Import(_ context.Context, b cache.Batch) error {
	m.mu.Lock()
	if err := m.enter("import"); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", generic.ErrWriteFailed, err)
	}
	if b.Company != nil {
		c := *b.Company
		if prev, ok := m.companies[c.ID]; ok {
			if c.Name == "" {
				c.Name = prev.Name
			}
			if b.KeepWorkWeekHours {
				c.WorkWeekHours = prev.WorkWeekHours
			}
			if b.KeepDisplayMode {
				c.DisplayMode = prev.DisplayMode
			}
		}
		m.companies[c.ID] = c
	}
	m.mu.Unlock()

	m.PutMembers(b.CompanyID, b.Members...)
	m.AddAllocations(b.CompanyID, b.Allocations...)
	leave := make([]generic.LeaveRecord, len(b.Leave))
	for i, r := range b.Leave {
		r.CompanyID = b.CompanyID
		leave[i] = r
	}
	m.AddLeave(leave...)
	m.PutRateCards(b.CompanyID, b.RateCards...)
	m.PutProjects(b.CompanyID, b.Projects...)
	m.PutStages(b.CompanyID, b.Stages...)
	m.PutCompositions(b.CompanyID, b.Compositions...)
	return nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("audit"); err != nil {
		return err
	}
	m.audit = append(m.audit, e)
	return nil
}

// QueryAudit returns matching entries newest first.
func (m *Memory) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actions := make(map[generic.AuditAction]bool, len(f.Actions))
	for _, a := range f.Actions {
		actions[a] = true
	}
	var out []generic.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.CompanyID != "" && e.CompanyID != f.CompanyID {
			continue
		}
		if f.MemberID != nil && e.MemberID != *f.MemberID {
			continue
		}
		if len(actions) > 0 && !actions[e.Action] {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func upsertBy[T any](rows []T, row T, key func(T) string) []T {
	k := key(row)
	for i := range rows {
		if key(rows[i]) == k {
			rows[i] = row
			return rows
		}
	}
	return append(rows, row)
}

func allocationKey(f generic.AllocationFact) string {
	return string(f.ResourceID) + "|" + string(f.ProjectID) + "|" + f.Date.String()
}

func rateCardKey(c budget.RateCard) string {
	return string(c.ReferenceType) + "|" + c.ReferenceID
}
