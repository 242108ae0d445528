/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the dashboard report types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

NUMBERS:
  Hours and money are decimal.Decimal and encode as JSON strings ("32.5").
  Percentages used for bands are integers. Display strings follow the
  company's display mode.

SEE ALSO:
  - handlers.go: Uses these types
  - dashboard/report.go: source report types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/capacity"
	"github.com/warp/resourcing-engine/dashboard"
	"github.com/warp/resourcing-engine/factory"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/leave"
)

// =============================================================================
// DASHBOARD
// =============================================================================

// SummaryDTO is a utilization card.
type SummaryDTO struct {
	Capacity  decimal.Decimal `json:"capacity"`
	Allocated decimal.Decimal `json:"allocated"`
	Available decimal.Decimal `json:"available"`
	Percent   int64           `json:"percent"`
	Band      string          `json:"band"`
	Color     string          `json:"color"`
	Display   string          `json:"display"`
}

// TeamDTO is the team card.
type TeamDTO struct {
	SummaryDTO
	MemberCount      int             `json:"member_count"`
	LeaveHours       decimal.Decimal `json:"leave_hours"`
	AdjustedCapacity decimal.Decimal `json:"adjusted_capacity"`
}

// WeekCellDTO is one heat map cell.
type WeekCellDTO struct {
	Week       string          `json:"week"`
	Allocated  decimal.Decimal `json:"allocated"`
	LeaveHours decimal.Decimal `json:"leave_hours"`
	Capacity   decimal.Decimal `json:"capacity"`
	Percent    int64           `json:"percent"`
	Band       string          `json:"band"`
	Warning    string          `json:"warning"`
	Display    string          `json:"display"`
}

// MemberRowDTO is one line of the member table.
type MemberRowDTO struct {
	SummaryDTO
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	WeeklyCapacity   decimal.Decimal `json:"weekly_capacity"`
	LeaveHours       decimal.Decimal `json:"leave_hours"`
	AdjustedCapacity decimal.Decimal `json:"adjusted_capacity"`
	ProjectCount     int             `json:"project_count"`
	Weeks            []WeekCellDTO   `json:"weeks"`
}

// ProjectRowDTO totals one project.
type ProjectRowDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Hours       decimal.Decimal `json:"hours"`
	ActiveHours decimal.Decimal `json:"active_hours"`
}

// PeakWeekDTO is the busiest leave week.
type PeakWeekDTO struct {
	Start   string `json:"start"`
	Label   string `json:"label"`
	Members int    `json:"members"`
}

// LeaveInsightsDTO counts members on upcoming leave.
type LeaveInsightsDTO struct {
	NextWeekCount  int          `json:"next_week_count"`
	NextMonthCount int          `json:"next_month_count"`
	PeakWeek       *PeakWeekDTO `json:"peak_week"`
}

// DashboardDTO is the full dashboard response.
type DashboardDTO struct {
	CompanyID   string           `json:"company_id"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
	Weeks       int              `json:"weeks"`
	AsOf        string           `json:"as_of"`
	DisplayMode string           `json:"display_mode"`
	Team        TeamDTO          `json:"team"`
	Members     []MemberRowDTO   `json:"members"`
	Projects    []ProjectRowDTO  `json:"projects"`
	HeatMap     []WeekCellDTO    `json:"heat_map"`
	Leave       LeaveInsightsDTO `json:"leave"`
}

// =============================================================================
// STAGES
// =============================================================================

// IntervalDTO is a stage window, both ends inclusive.
type IntervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CompositionItemDTO is one planned team line.
type CompositionItemDTO struct {
	ID                    string          `json:"id"`
	ReferenceID           string          `json:"reference_id"`
	ReferenceType         string          `json:"reference_type"`
	PlannedQuantity       decimal.Decimal `json:"planned_quantity"`
	PlannedHoursPerPerson decimal.Decimal `json:"planned_hours_per_person"`
	RateSnapshot          decimal.Decimal `json:"rate_snapshot"`
	TotalPlannedHours     decimal.Decimal `json:"total_planned_hours"`
	TotalBudgetAmount     decimal.Decimal `json:"total_budget_amount"`
}

// BudgetDTO is the stage budget card. RunwayWeeks is null when nothing has
// been spent yet and money is left.
type BudgetDTO struct {
	Budget             decimal.Decimal  `json:"budget"`
	Spent              decimal.Decimal  `json:"spent"`
	Remaining          decimal.Decimal  `json:"remaining"`
	UtilizationPercent decimal.Decimal  `json:"utilization_percent"`
	BurnRate           decimal.Decimal  `json:"burn_rate"`
	RunwayWeeks        *decimal.Decimal `json:"runway_weeks"`
	Badge              string           `json:"badge"`
}

// AllocationDTO is an allocation row.
type AllocationDTO struct {
	ResourceID   string          `json:"resource_id"`
	ProjectID    string          `json:"project_id"`
	Date         string          `json:"date"`
	Hours        decimal.Decimal `json:"hours"`
	ResourceType string          `json:"resource_type"`
}

// StageReportDTO is one stage card.
type StageReportDTO struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	ProjectID       string               `json:"project_id"`
	ProjectName     string               `json:"project_name"`
	Interval        *IntervalDTO         `json:"interval"`
	AllocatedHours  decimal.Decimal      `json:"allocated_hours"`
	BudgetedHours   decimal.Decimal      `json:"budgeted_hours"`
	ProgressPercent decimal.Decimal      `json:"progress_percent"`
	IsOverAllocated bool                 `json:"is_over_allocated"`
	ElapsedWeeks    decimal.Decimal      `json:"elapsed_weeks"`
	PlannedHours    decimal.Decimal      `json:"planned_hours"`
	Composition     []CompositionItemDTO `json:"composition"`
	Budget          BudgetDTO            `json:"budget"`
	Highlighted     []AllocationDTO      `json:"highlighted"`
}

// =============================================================================
// WRITES
// =============================================================================

// WeeklyLeaveRequest sets a member's leave total for one week. TotalHours
// accepts numbers or numeric strings.
type WeeklyLeaveRequest struct {
	LeaveType  string              `json:"leave_type"`
	WeekStart  string              `json:"week_start"`
	TotalHours factory.LooseNumber `json:"total_hours"`
}

// LeaveRecordDTO is one persisted leave row.
type LeaveRecordDTO struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"member_id"`
	Date      string          `json:"date"`
	Hours     decimal.Decimal `json:"hours"`
	LeaveType string          `json:"leave_type"`
}

// WeeklyLeaveResponse echoes the rows written.
type WeeklyLeaveResponse struct {
	WeekStart string           `json:"week_start"`
	Total     decimal.Decimal  `json:"total"`
	Records   []LeaveRecordDTO `json:"records"`
}

// ImportResponse reports what an import wrote.
type ImportResponse struct {
	Rows        map[string]int `json:"rows"`
	Coerced     []string       `json:"coerced"`
	Invalidated int            `json:"invalidated"`
}

// InvalidateResponse reports how many cache entries were dropped.
type InvalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// AuditEntryDTO is one audit trail entry.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	CompanyID string         `json:"company_id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	MemberID  string         `json:"member_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toSummaryDTO(s capacity.Summary, mode generic.DisplayMode) SummaryDTO {
	return SummaryDTO{
		Capacity:  s.Capacity,
		Allocated: s.Allocated,
		Available: s.Available,
		Percent:   s.Percent,
		Band:      string(s.Band),
		Color:     s.Band.Color(),
		Display:   capacity.ToDisplay(s.Allocated, s.Capacity, mode),
	}
}

func toWeekCellDTOs(cells []dashboard.WeekCell) []WeekCellDTO {
	out := make([]WeekCellDTO, len(cells))
	for i, c := range cells {
		out[i] = WeekCellDTO{
			Week:       c.Week.String(),
			Allocated:  c.Allocated,
			LeaveHours: c.LeaveHours,
			Capacity:   c.Capacity,
			Percent:    c.Percent,
			Band:       string(c.Band),
			Warning:    string(c.Warning),
			Display:    c.Display,
		}
	}
	return out
}

func toMemberRowDTOs(rows []dashboard.MemberRow, mode generic.DisplayMode) []MemberRowDTO {
	out := make([]MemberRowDTO, len(rows))
	for i, r := range rows {
		out[i] = MemberRowDTO{
			SummaryDTO:       toSummaryDTO(r.Summary, mode),
			ID:               string(r.MemberID),
			Name:             r.Name,
			WeeklyCapacity:   r.WeeklyCapacity,
			LeaveHours:       r.LeaveHours,
			AdjustedCapacity: r.AdjustedCapacity,
			ProjectCount:     r.ProjectCount,
			Weeks:            toWeekCellDTOs(r.Weeks),
		}
	}
	return out
}

func toLeaveInsightsDTO(in leave.UtilizationInsights) LeaveInsightsDTO {
	dto := LeaveInsightsDTO{NextWeekCount: in.NextWeekCount, NextMonthCount: in.NextMonthCount}
	if in.PeakWeek != nil {
		dto.PeakWeek = &PeakWeekDTO{
			Start:   in.PeakWeek.Start.String(),
			Label:   in.PeakWeek.Label,
			Members: in.PeakWeek.Members,
		}
	}
	return dto
}

func toDashboardDTO(rep dashboard.Report) DashboardDTO {
	projects := make([]ProjectRowDTO, len(rep.Projects))
	for i, p := range rep.Projects {
		projects[i] = ProjectRowDTO{ID: string(p.ProjectID), Name: p.Name, Hours: p.Hours, ActiveHours: p.ActiveHours}
	}
	return DashboardDTO{
		CompanyID:   string(rep.CompanyID),
		Start:       rep.Window.Start.String(),
		End:         rep.Window.Last().String(),
		Weeks:       rep.Window.Weeks,
		AsOf:        rep.AsOf.String(),
		DisplayMode: string(rep.DisplayMode),
		Team: TeamDTO{
			SummaryDTO:       toSummaryDTO(rep.Team.Summary, rep.DisplayMode),
			MemberCount:      rep.Team.MemberCount,
			LeaveHours:       rep.Team.LeaveHours,
			AdjustedCapacity: rep.Team.AdjustedCapacity,
		},
		Members:  toMemberRowDTOs(rep.Members, rep.DisplayMode),
		Projects: projects,
		HeatMap:  toWeekCellDTOs(rep.Weeks),
		Leave:    toLeaveInsightsDTO(rep.Leave),
	}
}

func toBudgetDTO(o budget.Overview) BudgetDTO {
	dto := BudgetDTO{
		Budget:             o.Budget,
		Spent:              o.Spent,
		Remaining:          o.Remaining,
		UtilizationPercent: o.UtilizationPercent.Round(2),
		BurnRate:           o.BurnRate.Round(2),
		Badge:              string(o.Badge),
	}
	if !o.Runway.Unbounded {
		weeks := o.Runway.Weeks.Round(2)
		dto.RunwayWeeks = &weeks
	}
	return dto
}

func toStageReportDTO(s dashboard.StageReport) StageReportDTO {
	items := make([]CompositionItemDTO, len(s.Composition))
	for i, it := range s.Composition {
		items[i] = CompositionItemDTO{
			ID:                    it.ID,
			ReferenceID:           it.ReferenceID,
			ReferenceType:         string(it.ReferenceType),
			PlannedQuantity:       it.PlannedQuantity,
			PlannedHoursPerPerson: it.PlannedHoursPerPerson,
			RateSnapshot:          it.RateSnapshot(),
			TotalPlannedHours:     it.TotalPlannedHours(),
			TotalBudgetAmount:     it.TotalBudgetAmount(),
		}
	}
	highlighted := make([]AllocationDTO, len(s.Highlighted))
	for i, f := range s.Highlighted {
		highlighted[i] = toAllocationDTO(f)
	}

	dto := StageReportDTO{
		ID:              string(s.Progress.Stage.ID),
		Name:            s.Progress.Stage.Name,
		ProjectID:       string(s.ProjectID),
		ProjectName:     s.ProjectName,
		AllocatedHours:  s.Progress.AllocatedHours,
		BudgetedHours:   s.Progress.BudgetedHours,
		ProgressPercent: s.Progress.Percent.Round(2),
		IsOverAllocated: s.Progress.IsOverAllocated,
		ElapsedWeeks:    s.ElapsedWeeks.Round(2),
		PlannedHours:    s.Rollup.TotalPlannedHours,
		Composition:     items,
		Budget:          toBudgetDTO(s.Budget),
		Highlighted:     highlighted,
	}
	if iv := s.Progress.Interval; iv != nil {
		dto.Interval = &IntervalDTO{Start: iv.Start.String(), End: iv.End.String()}
	}
	return dto
}

func toAllocationDTO(f generic.AllocationFact) AllocationDTO {
	rt := f.ResourceType
	if rt == "" {
		rt = generic.ResourceActive
	}
	return AllocationDTO{
		ResourceID:   string(f.ResourceID),
		ProjectID:    string(f.ProjectID),
		Date:         f.Date.String(),
		Hours:        f.Hours,
		ResourceType: string(rt),
	}
}

func toLeaveRecordDTO(r generic.LeaveRecord) LeaveRecordDTO {
	return LeaveRecordDTO{
		ID:        r.ID,
		MemberID:  string(r.MemberID),
		Date:      r.Date.String(),
		Hours:     r.Hours,
		LeaveType: string(r.LeaveType),
	}
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		CompanyID: string(e.CompanyID),
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		ActorID:   e.ActorID,
		Action:    string(e.Action),
		MemberID:  string(e.MemberID),
		Payload:   e.Payload,
	}
}
