/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	dashboard data. Every scenario is dated relative to the current week, so
	a freshly loaded scenario always has something in the default window.

AVAILABLE SCENARIOS:

	balanced-team:  Four members around 80-100%, a role and a location rate
	overallocated:  Double-booked members and pre-registered demand
	holiday-peak:   Leave clustered in one upcoming week plus a public holiday
	stage-budget:   A project two weeks into a budgeted stage with a team plan

HOW SCENARIOS WORK:
 1. Reset the store (clear all data) and the dashboard cache
 2. Build an import payload (the same JSON the import endpoint accepts)
 3. Convert it through the record factory
 4. Import it in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "stage-budget", "company_id": "demo"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a builder function to 'scenarioBuilders'

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ImportRecords, which shares the conversion path
  - factory/records.go: import JSON schema
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/factory"
	"github.com/warp/resourcing-engine/generic"
)

// DefaultScenarioCompany is used when a load request names no company.
const DefaultScenarioCompany = "demo"

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	CompanyID  string `json:"company_id,omitempty"`
}

// Resetter is implemented by stores that can be wiped.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "balanced-team",
		Name:        "Balanced Team",
		Description: "Four members between 80% and 100%, mixed role and location rates",
		Category:    "utilization",
	},
	{
		ID:          "overallocated",
		Name:        "Overallocated",
		Description: "Double-booked members and pre-registered placeholder demand",
		Category:    "utilization",
	},
	{
		ID:          "holiday-peak",
		Name:        "Holiday Peak",
		Description: "Annual leave clustered in one upcoming week plus a public holiday",
		Category:    "leave",
	},
	{
		ID:          "stage-budget",
		Name:        "Stage Budget",
		Description: "Project two weeks into a budgeted stage with a planned team",
		Category:    "budget",
	},
}

var scenarioBuilders = map[string]func(b *scenarioBuilder){
	"balanced-team": buildBalancedTeam,
	"overallocated": buildOverallocated,
	"holiday-peak":  buildHolidayPeak,
	"stage-budget":  buildStageBudget,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	companyID := generic.CompanyID(req.CompanyID)
	if companyID == "" {
		companyID = DefaultScenarioCompany
	}

	bj, err := BuildScenario(req.ScenarioID, companyID, h.Cache.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown scenario", err)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		h.fail(w, r, "failed to reset store", err)
		return
	}
	h.currentScenario = ""

	batch, _, err := h.Records.FromJSON(companyID, bj)
	if err != nil {
		h.fail(w, r, "failed to build scenario", err)
		return
	}
	if err := h.Store.Import(ctx, batch); err != nil {
		h.fail(w, r, "failed to load scenario", err)
		return
	}
	h.Cache.InvalidateAll()
	h.currentScenario = req.ScenarioID

	h.Logger.WithField("scenario", req.ScenarioID).WithField("company_id", companyID).Info("[API] scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "loaded",
		"scenario":   req.ScenarioID,
		"company_id": companyID,
		"rows":       batch.Rows(),
	})
}

// ResetDatabase wipes the store and the cache.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.reset(r.Context()); err != nil {
		h.fail(w, r, "failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(Resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	h.Cache.InvalidateAll()
	return nil
}

// BuildScenario returns the import payload of a scenario dated around the
// week of today.
func BuildScenario(id string, companyID generic.CompanyID, today generic.TimePoint) (factory.BatchJSON, error) {
	build, ok := scenarioBuilders[id]
	if !ok {
		return factory.BatchJSON{}, fmt.Errorf("scenario %q not found", id)
	}
	b := &scenarioBuilder{monday: today.StartOfWeek()}
	b.batch.Company = &factory.CompanyJSON{
		ID:            string(companyID),
		Name:          "Demo Studio",
		WorkWeekHours: num("40"),
		DisplayMode:   string(generic.DisplayHours),
	}
	build(b)
	return b.batch, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func buildBalancedTeam(b *scenarioBuilder) {
	b.rate("role", "dev", "100", "hour")
	b.rate("role", "design", "90", "hour")
	b.rate("location", "lisbon", "560", "day")

	b.member("ana", "Ana Silva", "", "dev", "lisbon")
	b.member("ben", "Ben Ortiz", "", "design", "")
	b.member("cho", "Cho Park", "32", "dev", "")
	b.member("dev", "Dev Patel", "", "", "lisbon")

	b.project("web", "Web Platform", nil)
	b.project("app", "Mobile App", nil)

	for week := 0; week < 4; week++ {
		b.allocate("ana", "web", week, "8", "")
		b.allocate("ben", "web", week, "4", "")
		b.allocate("ben", "app", week, "3", "")
		b.allocate("cho", "app", week, "6", "")
		b.allocate("dev", "app", week, "6.5", "")
	}
	b.leave("ben", "annual", 2, 5, "8")
}

func buildOverallocated(b *scenarioBuilder) {
	b.rate("role", "dev", "110", "hour")

	b.member("eva", "Eva Novak", "", "dev", "")
	b.member("finn", "Finn Berg", "20", "dev", "")
	b.member("gus", "Gus Lee", "", "dev", "")

	b.project("launch", "Launch", nil)
	b.project("support", "Support", nil)

	for week := 0; week < 4; week++ {
		b.allocate("eva", "launch", week, "8", "")
		b.allocate("eva", "support", week, "4", "")
		b.allocate("finn", "launch", week, "6", "")
		b.allocate("gus", "support", week, "3", "")
		b.allocate("new-hire", "launch", week, "8", string(generic.ResourcePreRegistered))
	}
}

func buildHolidayPeak(b *scenarioBuilder) {
	b.member("hana", "Hana Ito", "", "", "")
	b.member("ivan", "Ivan Petrov", "", "", "")
	b.member("jo", "Jo Smith", "30", "", "")
	b.member("kai", "Kai Wong", "", "", "")

	b.project("ops", "Operations", nil)
	for week := 0; week < 13; week++ {
		for _, m := range []string{"hana", "ivan", "jo", "kai"} {
			b.allocate(m, "ops", week, "6", "")
		}
	}

	b.leave("hana", "annual", 1, 2, "8")
	b.leave("ivan", "annual", 3, 5, "8")
	b.leave("jo", "annual", 3, 3, "6")
	b.leave("kai", "annual", 3, 5, "8")
	for _, m := range []string{"hana", "ivan", "jo", "kai"} {
		b.leave(m, "holiday", 6, 1, "8")
	}
	b.leave("kai", "other", 8, 1, "4")
}

func buildStageBudget(b *scenarioBuilder) {
	b.rate("role", "dev", "100", "hour")
	b.rate("role", "pm", "4400", "week")

	b.member("lea", "Lea Costa", "", "dev", "")
	b.member("max", "Max Weber", "", "dev", "")
	b.member("nia", "Nia Okafor", "", "pm", "")

	start := -2
	b.project("portal", "Client Portal", &start)
	b.stage("discovery", "portal", "Discovery", "120", 2)
	b.stage("build", "portal", "Build", "640", 8)
	b.stage("launch", "portal", "Launch", "80", 0)

	b.compose("build", "role", "dev", "2", "240")
	b.compose("build", "role", "pm", "1", "80")

	for week := -2; week < 4; week++ {
		b.allocate("lea", "portal", week, "7", "")
		b.allocate("max", "portal", week, "5", "")
		b.allocate("nia", "portal", week, "2", "")
	}
	b.allocate("contractor", "portal", 1, "4", string(generic.ResourcePreRegistered))
}

// =============================================================================
// BUILDER
// =============================================================================

type scenarioBuilder struct {
	monday generic.TimePoint
	batch  factory.BatchJSON
}

func num(v string) factory.LooseNumber {
	if v == "" {
		return factory.LooseNumber{}
	}
	return factory.LooseNumber{Value: decimal.RequireFromString(v), Present: true, Raw: v}
}

func (b *scenarioBuilder) day(week, weekday int) string {
	return b.monday.AddWeeks(week).AddDays(weekday).String()
}

func (b *scenarioBuilder) rate(refType, refID, value, unit string) {
	b.batch.RateCards = append(b.batch.RateCards, factory.RateCardJSON{
		ReferenceID: refID, ReferenceType: refType, Value: num(value), Unit: unit,
	})
}

// member adds a member; an empty capacity uses the company default.
func (b *scenarioBuilder) member(id, name, capacity, role, location string) {
	b.batch.Members = append(b.batch.Members, factory.MemberJSON{
		ID: id, Name: name, WeeklyCapacity: num(capacity), RoleID: role, LocationID: location,
	})
}

// project adds a project; startWeek is the contract start relative to this
// week, nil for none.
func (b *scenarioBuilder) project(id, name string, startWeek *int) {
	p := factory.ProjectJSON{ID: id, Name: name}
	if startWeek != nil {
		s := b.day(*startWeek, 0)
		p.ContractStartDate = &s
	}
	b.batch.Projects = append(b.batch.Projects, p)
}

// stage adds a stage; weeks <= 0 leaves it without a contracted length.
func (b *scenarioBuilder) stage(id, project, name, budgeted string, weeks int) {
	s := factory.StageJSON{ID: id, ProjectID: project, Name: name, TotalBudgetedHours: num(budgeted)}
	if weeks > 0 {
		s.ContractedWeeks = num(fmt.Sprint(weeks))
	}
	b.batch.Stages = append(b.batch.Stages, s)
}

func (b *scenarioBuilder) compose(stage, refType, refID, qty, hours string) {
	b.batch.Compositions = append(b.batch.Compositions, factory.CompositionJSON{
		StageID: stage, ReferenceID: refID, ReferenceType: refType,
		PlannedQuantity: num(qty), PlannedHoursPerPerson: num(hours),
	})
}

// allocate books hoursPerDay on every weekday of the week.
func (b *scenarioBuilder) allocate(resource, project string, week int, hoursPerDay, resourceType string) {
	for d := 0; d < generic.WorkdaysPerWeek; d++ {
		b.batch.Allocations = append(b.batch.Allocations, factory.AllocationJSON{
			ResourceID: resource, ProjectID: project, Date: b.day(week, d),
			Hours: num(hoursPerDay), ResourceType: resourceType,
		})
	}
}

// leave books hoursPerDay on the first days weekdays of the week.
func (b *scenarioBuilder) leave(member, leaveType string, week, days int, hoursPerDay string) {
	for d := 0; d < days && d < generic.WorkdaysPerWeek; d++ {
		b.batch.Leave = append(b.batch.Leave, factory.LeaveJSON{
			ID:       fmt.Sprintf("%s-%s-%s", member, leaveType, b.day(week, d)),
			MemberID: member, Date: b.day(week, d), Hours: num(hoursPerDay), LeaveType: leaveType,
		})
	}
}
