/*
Package factory converts loosely-typed import JSON into domain rows.

PURPOSE:
  Everything past this package works on strict decimal.Decimal values and
  never sees a string, a null or a NaN. Manual entry and spreadsheet exports
  do not cooperate: hours arrive as "7.5", "", "abc" or null. This package is
  the single place where that mess is coerced.

COERCION RULES:
  JSON number            -> the number
  numeric string "7.5"   -> 7.5 (surrounding whitespace ignored)
  null, missing, ""      -> absent (0 for hours; company default for capacity)
  anything else          -> 0, and the field path is reported in Report.Coerced

  Hours are then rounded to 2 decimals and clamped at 0. Structural fields
  (IDs, dates, enum values) are not coerced: a bad one fails the import with
  a generic.ValidationError.

JSON SCHEMA:
  {
    "company":      {"id": "acme", "name": "Acme", "work_week_hours": "40", "display_mode": "hours"},
    "members":      [{"id": "m1", "name": "Ada", "weekly_capacity": null, "role_id": "dev"}],
    "allocations":  [{"resource_id": "m1", "project_id": "p1", "date": "2025-03-03", "hours": "8"}],
    "leave":        [{"member_id": "m1", "date": "2025-03-04", "hours": 4, "leave_type": "annual"}],
    "rate_cards":   [{"reference_id": "dev", "reference_type": "role", "value": 100, "unit": "hour"}],
    "projects":     [{"id": "p1", "name": "Site", "contract_start_date": "2025-01-06"}],
    "stages":       [{"id": "s1", "project_id": "p1", "total_budgeted_hours": 200, "contracted_weeks": 4}],
    "compositions": [{"id": "c1", "stage_id": "s1", "reference_id": "dev", "reference_type": "role",
                      "planned_quantity": 2, "planned_hours_per_person": 120}]
  }

  A composition without "rate_snapshot" captures the rate from the batch's
  own rate cards at import time.

USAGE:
  f := factory.NewRecordFactory()
  batch, report, err := f.ParseBatch("acme", body)

SEE ALSO:
  - cache/source.go: Batch and Importer
  - api/handlers.go: the import endpoint
*/
package factory

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/stage"
)

// =============================================================================
// LOOSE NUMBER
// =============================================================================

// LooseNumber accepts a JSON number, a numeric string or null.
type LooseNumber struct {
	Value   decimal.Decimal
	Present bool // a value other than null/""/missing was supplied
	Invalid bool // the value was not numeric and was discarded
	Raw     string
}

// UnmarshalJSON never fails: anything that is not a number becomes Invalid.
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	*n = LooseNumber{}
	raw := string(bytes.TrimSpace(data))
	if raw == "null" || raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			n.Present, n.Invalid, n.Raw = true, true, raw
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	n.Present, n.Raw = true, raw
	v, err := decimal.NewFromString(raw)
	if err != nil {
		n.Invalid = true
		return nil
	}
	n.Value = v
	return nil
}

// Decimal is the coerced value: 0 when absent or invalid.
func (n LooseNumber) Decimal() decimal.Decimal {
	if !n.Present || n.Invalid {
		return decimal.Zero
	}
	return n.Value
}

// Hours is Decimal rounded to 2 places and clamped at 0.
func (n LooseNumber) Hours() decimal.Decimal {
	return generic.NonNegative(generic.RoundHours(n.Decimal()))
}

// Nullable maps absent to an invalid NullDecimal and everything else,
// including coerced garbage, to a valid value.
func (n LooseNumber) Nullable() decimal.NullDecimal {
	if !n.Present {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(generic.NonNegative(n.Decimal()))
}

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BatchJSON is the import payload.
type BatchJSON struct {
	Company      *CompanyJSON      `json:"company,omitempty"`
	Members      []MemberJSON      `json:"members,omitempty"`
	Allocations  []AllocationJSON  `json:"allocations,omitempty"`
	Leave        []LeaveJSON       `json:"leave,omitempty"`
	RateCards    []RateCardJSON    `json:"rate_cards,omitempty"`
	Projects     []ProjectJSON     `json:"projects,omitempty"`
	Stages       []StageJSON       `json:"stages,omitempty"`
	Compositions []CompositionJSON `json:"compositions,omitempty"`
}

type CompanyJSON struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	WorkWeekHours LooseNumber `json:"work_week_hours"`
	DisplayMode   string      `json:"display_mode,omitempty"`
}

type MemberJSON struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	WeeklyCapacity LooseNumber `json:"weekly_capacity"`
	RoleID         string      `json:"role_id,omitempty"`
	LocationID     string      `json:"location_id,omitempty"`
}

type AllocationJSON struct {
	ResourceID   string      `json:"resource_id"`
	ProjectID    string      `json:"project_id"`
	Date         string      `json:"date"`
	Hours        LooseNumber `json:"hours"`
	ResourceType string      `json:"resource_type,omitempty"`
}

type LeaveJSON struct {
	ID        string      `json:"id,omitempty"`
	MemberID  string      `json:"member_id"`
	Date      string      `json:"date"`
	Hours     LooseNumber `json:"hours"`
	LeaveType string      `json:"leave_type"`
}

type RateCardJSON struct {
	ReferenceID   string      `json:"reference_id"`
	ReferenceType string      `json:"reference_type"`
	Value         LooseNumber `json:"value"`
	Unit          string      `json:"unit,omitempty"`
}

type ProjectJSON struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ContractStartDate *string `json:"contract_start_date,omitempty"`
}

type StageJSON struct {
	ID                 string      `json:"id"`
	ProjectID          string      `json:"project_id"`
	Name               string      `json:"name"`
	TotalBudgetedHours LooseNumber `json:"total_budgeted_hours"`
	ContractedWeeks    LooseNumber `json:"contracted_weeks"`
}

type CompositionJSON struct {
	ID                    string       `json:"id,omitempty"`
	StageID               string       `json:"stage_id"`
	ReferenceID           string       `json:"reference_id"`
	ReferenceType         string       `json:"reference_type"`
	PlannedQuantity       LooseNumber  `json:"planned_quantity"`
	PlannedHoursPerPerson LooseNumber  `json:"planned_hours_per_person"`
	RateSnapshot          *LooseNumber `json:"rate_snapshot,omitempty"`
}

// Report lists the numeric fields that were discarded and set to 0.
type Report struct {
	Coerced []string
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts import JSON into a cache.Batch.
type RecordFactory struct {
	newID func() string
}

// NewRecordFactory creates a factory that fills missing row IDs with UUIDs.
func NewRecordFactory() *RecordFactory {
	return &RecordFactory{newID: uuid.NewString}
}

// ParseBatch decodes and converts an import payload.
func (f *RecordFactory) ParseBatch(companyID generic.CompanyID, data []byte) (cache.Batch, Report, error) {
	var bj BatchJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return cache.Batch{}, Report{}, &generic.ValidationError{Field: "body", Message: fmt.Sprintf("failed to parse import JSON: %v", err)}
	}
	return f.FromJSON(companyID, bj)
}

// FromJSON converts a decoded payload.
func (f *RecordFactory) FromJSON(companyID generic.CompanyID, bj BatchJSON) (cache.Batch, Report, error) {
	if companyID == "" {
		return cache.Batch{}, Report{}, &generic.ValidationError{Field: "company_id", Message: "required"}
	}
	c := &converter{report: &Report{}}
	b := cache.Batch{CompanyID: companyID}

	if bj.Company != nil {
		company, err := c.company(companyID, *bj.Company)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.Company = &company
		b.KeepWorkWeekHours = !bj.Company.WorkWeekHours.Present
		b.KeepDisplayMode = strings.TrimSpace(bj.Company.DisplayMode) == ""
	}
	for i, mj := range bj.Members {
		m, err := c.member(fmt.Sprintf("members[%d]", i), companyID, mj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.Members = append(b.Members, m)
	}
	for i, aj := range bj.Allocations {
		a, err := c.allocation(fmt.Sprintf("allocations[%d]", i), aj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.Allocations = append(b.Allocations, a)
	}
	for i, lj := range bj.Leave {
		l, err := c.leave(fmt.Sprintf("leave[%d]", i), companyID, lj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		if l.ID == "" {
			l.ID = f.newID()
		}
		b.Leave = append(b.Leave, l)
	}
	for i, rj := range bj.RateCards {
		r, err := c.rateCard(fmt.Sprintf("rate_cards[%d]", i), companyID, rj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.RateCards = append(b.RateCards, r)
	}
	for i, pj := range bj.Projects {
		p, err := c.project(fmt.Sprintf("projects[%d]", i), companyID, pj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.Projects = append(b.Projects, p)
	}
	for i, sj := range bj.Stages {
		s, err := c.stage(fmt.Sprintf("stages[%d]", i), sj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		b.Stages = append(b.Stages, s)
	}
	for i, cj := range bj.Compositions {
		item, err := c.composition(fmt.Sprintf("compositions[%d]", i), b.RateCards, cj)
		if err != nil {
			return cache.Batch{}, Report{}, err
		}
		if item.ID == "" {
			item.ID = f.newID()
		}
		b.Compositions = append(b.Compositions, item)
	}
	return b, *c.report, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

type converter struct {
	report *Report
}

func (c *converter) hours(path string, n LooseNumber) decimal.Decimal {
	c.note(path, n)
	return n.Hours()
}

func (c *converter) note(path string, n LooseNumber) {
	if n.Invalid {
		c.report.Coerced = append(c.report.Coerced, fmt.Sprintf("%s=%s", path, n.Raw))
	}
}

func required(path, value string) error {
	if strings.TrimSpace(value) == "" {
		return &generic.ValidationError{Field: path, Message: "required"}
	}
	return nil
}

func parseDate(path, s string) (generic.TimePoint, error) {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, &generic.ValidationError{Field: path, Message: fmt.Sprintf("invalid date %q", s)}
	}
	return tp, nil
}

func (c *converter) company(id generic.CompanyID, cj CompanyJSON) (generic.Company, error) {
	if cj.ID != "" && generic.CompanyID(cj.ID) != id {
		return generic.Company{}, &generic.ValidationError{Field: "company.id", Message: "does not match the URL company"}
	}
	mode, err := parseDisplayMode(cj.DisplayMode)
	if err != nil {
		return generic.Company{}, err
	}
	hours := c.hours("company.work_week_hours", cj.WorkWeekHours)
	if !cj.WorkWeekHours.Present {
		hours = generic.DefaultWorkWeekHours
	}
	return generic.Company{
		ID:            id,
		Name:          cj.Name,
		WorkWeekHours: hours,
		DisplayMode:   mode,
	}, nil
}

func (c *converter) member(path string, companyID generic.CompanyID, mj MemberJSON) (generic.Member, error) {
	if err := required(path+".id", mj.ID); err != nil {
		return generic.Member{}, err
	}
	c.note(path+".weekly_capacity", mj.WeeklyCapacity)
	return generic.Member{
		ID:             generic.MemberID(mj.ID),
		CompanyID:      companyID,
		Name:           mj.Name,
		WeeklyCapacity: mj.WeeklyCapacity.Nullable(),
		RoleID:         mj.RoleID,
		LocationID:     mj.LocationID,
	}, nil
}

func (c *converter) allocation(path string, aj AllocationJSON) (generic.AllocationFact, error) {
	if err := required(path+".resource_id", aj.ResourceID); err != nil {
		return generic.AllocationFact{}, err
	}
	if err := required(path+".project_id", aj.ProjectID); err != nil {
		return generic.AllocationFact{}, err
	}
	date, err := parseDate(path+".date", aj.Date)
	if err != nil {
		return generic.AllocationFact{}, err
	}
	rt, err := parseResourceType(path+".resource_type", aj.ResourceType)
	if err != nil {
		return generic.AllocationFact{}, err
	}
	return generic.AllocationFact{
		ResourceID:   generic.MemberID(aj.ResourceID),
		ProjectID:    generic.ProjectID(aj.ProjectID),
		Date:         date,
		Hours:        c.hours(path+".hours", aj.Hours),
		ResourceType: rt,
	}, nil
}

func (c *converter) leave(path string, companyID generic.CompanyID, lj LeaveJSON) (generic.LeaveRecord, error) {
	if err := required(path+".member_id", lj.MemberID); err != nil {
		return generic.LeaveRecord{}, err
	}
	date, err := parseDate(path+".date", lj.Date)
	if err != nil {
		return generic.LeaveRecord{}, err
	}
	lt := generic.LeaveType(strings.ToLower(lj.LeaveType))
	if !lt.Valid() {
		return generic.LeaveRecord{}, fmt.Errorf("%s: %w: %q", path, generic.ErrInvalidLeaveType, lj.LeaveType)
	}
	return generic.LeaveRecord{
		ID:        lj.ID,
		MemberID:  generic.MemberID(lj.MemberID),
		CompanyID: companyID,
		Date:      date,
		Hours:     c.hours(path+".hours", lj.Hours),
		LeaveType: lt,
	}, nil
}

func (c *converter) rateCard(path string, companyID generic.CompanyID, rj RateCardJSON) (budget.RateCard, error) {
	if err := required(path+".reference_id", rj.ReferenceID); err != nil {
		return budget.RateCard{}, err
	}
	ref, err := parseReferenceType(path+".reference_type", rj.ReferenceType)
	if err != nil {
		return budget.RateCard{}, err
	}
	unit, err := parseRateUnit(path+".unit", rj.Unit)
	if err != nil {
		return budget.RateCard{}, err
	}
	c.note(path+".value", rj.Value)
	return budget.RateCard{
		CompanyID:     companyID,
		ReferenceID:   rj.ReferenceID,
		ReferenceType: ref,
		Value:         generic.NonNegative(rj.Value.Decimal()),
		Unit:          unit,
	}, nil
}

func (c *converter) project(path string, companyID generic.CompanyID, pj ProjectJSON) (stage.Project, error) {
	if err := required(path+".id", pj.ID); err != nil {
		return stage.Project{}, err
	}
	p := stage.Project{ID: generic.ProjectID(pj.ID), CompanyID: companyID, Name: pj.Name}
	if pj.ContractStartDate != nil && strings.TrimSpace(*pj.ContractStartDate) != "" {
		start, err := parseDate(path+".contract_start_date", *pj.ContractStartDate)
		if err != nil {
			return stage.Project{}, err
		}
		p.ContractStartDate = &start
	}
	return p, nil
}

func (c *converter) stage(path string, sj StageJSON) (stage.ProjectStage, error) {
	if err := required(path+".id", sj.ID); err != nil {
		return stage.ProjectStage{}, err
	}
	if err := required(path+".project_id", sj.ProjectID); err != nil {
		return stage.ProjectStage{}, err
	}
	s := stage.ProjectStage{
		ID:                 generic.StageID(sj.ID),
		ProjectID:          generic.ProjectID(sj.ProjectID),
		Name:               sj.Name,
		TotalBudgetedHours: c.hours(path+".total_budgeted_hours", sj.TotalBudgetedHours),
	}
	c.note(path+".contracted_weeks", sj.ContractedWeeks)
	if sj.ContractedWeeks.Present && !sj.ContractedWeeks.Invalid {
		weeks := int(generic.NonNegative(sj.ContractedWeeks.Value).IntPart())
		s.ContractedWeeks = &weeks
	}
	return s, nil
}

func (c *converter) composition(path string, cards []budget.RateCard, cj CompositionJSON) (budget.TeamCompositionItem, error) {
	if err := required(path+".stage_id", cj.StageID); err != nil {
		return budget.TeamCompositionItem{}, err
	}
	if err := required(path+".reference_id", cj.ReferenceID); err != nil {
		return budget.TeamCompositionItem{}, err
	}
	ref, err := parseReferenceType(path+".reference_type", cj.ReferenceType)
	if err != nil {
		return budget.TeamCompositionItem{}, err
	}
	c.note(path+".planned_quantity", cj.PlannedQuantity)
	qty := cj.PlannedQuantity.Decimal()
	hrs := c.hours(path+".planned_hours_per_person", cj.PlannedHoursPerPerson)

	var item budget.TeamCompositionItem
	if cj.RateSnapshot != nil && cj.RateSnapshot.Present {
		c.note(path+".rate_snapshot", *cj.RateSnapshot)
		item = budget.NewTeamCompositionItem(generic.StageID(cj.StageID), cj.ReferenceID, ref, qty, hrs, generic.NonNegative(cj.RateSnapshot.Decimal()))
	} else {
		item = budget.SnapshotItem(cards, generic.StageID(cj.StageID), cj.ReferenceID, ref, qty, hrs)
	}
	item.ID = cj.ID
	return item, nil
}

func parseDisplayMode(s string) (generic.DisplayMode, error) {
	switch generic.DisplayMode(strings.ToLower(s)) {
	case "", generic.DisplayHours:
		return generic.DisplayHours, nil
	case generic.DisplayPercentage:
		return generic.DisplayPercentage, nil
	}
	return "", &generic.ValidationError{Field: "company.display_mode", Message: fmt.Sprintf("unknown display mode %q", s)}
}

func parseResourceType(path, s string) (generic.ResourceType, error) {
	switch generic.ResourceType(strings.ToLower(s)) {
	case "", generic.ResourceActive:
		return generic.ResourceActive, nil
	case generic.ResourcePreRegistered:
		return generic.ResourcePreRegistered, nil
	}
	return "", &generic.ValidationError{Field: path, Message: fmt.Sprintf("unknown resource type %q", s)}
}

func parseReferenceType(path, s string) (budget.ReferenceType, error) {
	switch budget.ReferenceType(strings.ToLower(s)) {
	case budget.ReferenceRole:
		return budget.ReferenceRole, nil
	case budget.ReferenceLocation:
		return budget.ReferenceLocation, nil
	}
	return "", &generic.ValidationError{Field: path, Message: fmt.Sprintf("unknown reference type %q", s)}
}

func parseRateUnit(path, s string) (budget.RateUnit, error) {
	switch budget.RateUnit(strings.ToLower(s)) {
	case "", budget.UnitHour:
		return budget.UnitHour, nil
	case budget.UnitDay:
		return budget.UnitDay, nil
	case budget.UnitWeek:
		return budget.UnitWeek, nil
	}
	return "", &generic.ValidationError{Field: path, Message: fmt.Sprintf("unknown rate unit %q", s)}
}
