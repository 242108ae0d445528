package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/stage"
)

// =============================================================================
// SOURCE (cache.Source interface)
// =============================================================================

// Company returns the company defaults.
func (s *Store) Company(ctx context.Context, companyID generic.CompanyID) (generic.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c generic.Company
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, work_week_hours, display_mode FROM companies WHERE id = ?`,
		companyID,
	).Scan(&c.ID, &c.Name, &c.WorkWeekHours, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Company{}, fmt.Errorf("%w: %s", generic.ErrCompanyNotFound, companyID)
	}
	if err != nil {
		return generic.Company{}, fmt.Errorf("failed to get company: %w", err)
	}
	c.DisplayMode = generic.DisplayMode(mode)
	return c, nil
}

// Members returns the company's members ordered by name.
func (s *Store) Members(ctx context.Context, companyID generic.CompanyID) ([]generic.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, weekly_capacity, role_id, location_id
		FROM members
		WHERE company_id = ?
		ORDER BY name, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []generic.Member
	for rows.Next() {
		var m generic.Member
		var roleID, locationID sql.NullString
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.Name, &m.WeeklyCapacity, &roleID, &locationID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.RoleID, m.LocationID = roleID.String, locationID.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// Allocations returns allocation rows dated inside period.
func (s *Store) Allocations(ctx context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.AllocationFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id, project_id, allocation_date, hours, resource_type
		FROM allocations
		WHERE company_id = ? AND allocation_date >= ? AND allocation_date <= ?
		ORDER BY allocation_date, resource_id, project_id
	`, companyID, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var facts []generic.AllocationFact
	for rows.Next() {
		var f generic.AllocationFact
		var date, rt string
		if err := rows.Scan(&f.ResourceID, &f.ProjectID, &date, &f.Hours, &rt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if f.Date, err = parseDate("allocation_date", date); err != nil {
			return nil, err
		}
		f.ResourceType = generic.ResourceType(rt)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Leave returns leave rows of one type dated inside period.
func (s *Store) Leave(ctx context.Context, companyID generic.CompanyID, leaveType generic.LeaveType, period generic.Period) ([]generic.LeaveFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, leave_date, hours
		FROM leave_entries
		WHERE company_id = ? AND leave_type = ? AND leave_date >= ? AND leave_date <= ?
		ORDER BY leave_date, member_id
	`, companyID, leaveType, period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query leave: %w", err)
	}
	defer rows.Close()

	var facts []generic.LeaveFact
	for rows.Next() {
		f := generic.LeaveFact{LeaveType: leaveType}
		var date string
		if err := rows.Scan(&f.MemberID, &date, &f.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		if f.Date, err = parseDate("leave_date", date); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// RateCards returns every active rate card of the company.
func (s *Store) RateCards(ctx context.Context, companyID generic.CompanyID) ([]budget.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, reference_id, reference_type, value, unit
		FROM rate_cards
		WHERE company_id = ?
		ORDER BY reference_type, reference_id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate cards: %w", err)
	}
	defer rows.Close()

	var cards []budget.RateCard
	for rows.Next() {
		var c budget.RateCard
		var refType, unit string
		if err := rows.Scan(&c.CompanyID, &c.ReferenceID, &refType, &c.Value, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan rate card: %w", err)
		}
		c.ReferenceType, c.Unit = budget.ReferenceType(refType), budget.RateUnit(unit)
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Projects returns the company's projects.
func (s *Store) Projects(ctx context.Context, companyID generic.CompanyID) ([]stage.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, contract_start_date
		FROM projects
		WHERE company_id = ?
		ORDER BY name, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []stage.Project
	for rows.Next() {
		var p stage.Project
		var start sql.NullString
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &start); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if start.Valid {
			tp, err := parseDate("contract_start_date", start.String)
			if err != nil {
				return nil, err
			}
			p.ContractStartDate = &tp
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Stages returns every stage of every project of the company.
func (s *Store) Stages(ctx context.Context, companyID generic.CompanyID) ([]stage.ProjectStage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, total_budgeted_hours, contracted_weeks
		FROM project_stages
		WHERE company_id = ?
		ORDER BY project_id, name, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer rows.Close()

	var stages []stage.ProjectStage
	for rows.Next() {
		var st stage.ProjectStage
		var weeks sql.NullInt64
		if err := rows.Scan(&st.ID, &st.ProjectID, &st.Name, &st.TotalBudgetedHours, &weeks); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		if weeks.Valid {
			w := int(weeks.Int64)
			st.ContractedWeeks = &w
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// Compositions returns every team composition item of the company with its
// stored rate snapshot.
func (s *Store) Compositions(ctx context.Context, companyID generic.CompanyID) ([]budget.TeamCompositionItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage_id, reference_id, reference_type, planned_quantity, planned_hours_per_person, rate_snapshot
		FROM team_compositions
		WHERE company_id = ?
		ORDER BY stage_id, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query compositions: %w", err)
	}
	defer rows.Close()

	var items []budget.TeamCompositionItem
	for rows.Next() {
		var id, stageID, refID, refType string
		var qty, hrs, rate decimal.Decimal
		if err := rows.Scan(&id, &stageID, &refID, &refType, &qty, &hrs, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan composition: %w", err)
		}
		item := budget.NewTeamCompositionItem(generic.StageID(stageID), refID, budget.ReferenceType(refType), qty, hrs, rate)
		item.ID = id
		items = append(items, item)
	}
	return items, rows.Err()
}
