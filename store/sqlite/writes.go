package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/generic"
)

// timestampLayout is fixed-width so created_at sorts as a string.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// =============================================================================
// LEAVE WRITER
// =============================================================================

// ReplaceLeaveWeek deletes the member's rows of leaveType in the week of
// weekStart and inserts records, in one transaction.
func (s *Store) ReplaceLeaveWeek(ctx context.Context, companyID generic.CompanyID, memberID generic.MemberID, leaveType generic.LeaveType, weekStart generic.TimePoint, records []generic.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", generic.ErrWriteFailed, err)
	}
	defer tx.Rollback()

	monday := weekStart.StartOfWeek()
	_, err = tx.ExecContext(ctx, `
		DELETE FROM leave_entries
		WHERE company_id = ? AND member_id = ? AND leave_type = ? AND leave_date >= ? AND leave_date <= ?
	`, companyID, memberID, leaveType, monday.String(), monday.AddDays(6).String())
	if err != nil {
		return fmt.Errorf("%w: failed to delete leave week: %v", generic.ErrWriteFailed, err)
	}

	for _, r := range records {
		if err := upsertLeave(ctx, tx, companyID, r); err != nil {
			return fmt.Errorf("%w: %v", generic.ErrWriteFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", generic.ErrWriteFailed, err)
	}
	return nil
}

func upsertLeave(ctx context.Context, e execer, companyID generic.CompanyID, r generic.LeaveRecord) error {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO leave_entries (id, company_id, member_id, leave_date, hours, leave_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, id) DO UPDATE SET
			member_id = excluded.member_id,
			leave_date = excluded.leave_date,
			hours = excluded.hours,
			leave_type = excluded.leave_type
	`, id, companyID, r.MemberID, r.Date.String(), r.Hours, r.LeaveType)
	if err != nil {
		return fmt.Errorf("failed to write leave %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import upserts every row of the batch in one transaction. A failure rolls
// back the whole batch.
func (s *Store) Import(ctx context.Context, b cache.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", generic.ErrWriteFailed, err)
	}
	defer tx.Rollback()

	if err := importBatch(ctx, tx, b); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", generic.ErrWriteFailed, err)
	}
	return nil
}

func importBatch(ctx context.Context, e execer, b cache.Batch) error {
	cid := b.CompanyID

	if c := b.Company; c != nil {
		mode := c.DisplayMode
		if mode == "" {
			mode = generic.DisplayHours
		}
		_, err := e.ExecContext(ctx, `
			INSERT INTO companies (id, name, work_week_hours, display_mode)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = CASE WHEN excluded.name = '' THEN companies.name ELSE excluded.name END,
				work_week_hours = CASE WHEN ? THEN companies.work_week_hours ELSE excluded.work_week_hours END,
				display_mode = CASE WHEN ? THEN companies.display_mode ELSE excluded.display_mode END
		`, c.ID, c.Name, c.WorkWeekHours, mode, b.KeepWorkWeekHours, b.KeepDisplayMode)
		if err != nil {
			return fmt.Errorf("failed to write company: %w", err)
		}
	}

	for _, m := range b.Members {
		_, err := e.ExecContext(ctx, `
			INSERT INTO members (id, company_id, name, weekly_capacity, role_id, location_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, id) DO UPDATE SET
				name = excluded.name,
				weekly_capacity = excluded.weekly_capacity,
				role_id = excluded.role_id,
				location_id = excluded.location_id
		`, m.ID, cid, m.Name, m.WeeklyCapacity, nullString(m.RoleID), nullString(m.LocationID))
		if err != nil {
			return fmt.Errorf("failed to write member %s: %w", m.ID, err)
		}
	}

	for _, f := range b.Allocations {
		rt := f.ResourceType
		if rt == "" {
			rt = generic.ResourceActive
		}
		_, err := e.ExecContext(ctx, `
			INSERT INTO allocations (company_id, resource_id, project_id, allocation_date, hours, resource_type)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, resource_id, project_id, allocation_date) DO UPDATE SET
				hours = excluded.hours,
				resource_type = excluded.resource_type
		`, cid, f.ResourceID, f.ProjectID, f.Date.String(), f.Hours, rt)
		if err != nil {
			return fmt.Errorf("failed to write allocation %s/%s/%s: %w", f.ResourceID, f.ProjectID, f.Date, err)
		}
	}

	for _, r := range b.Leave {
		if err := upsertLeave(ctx, e, cid, r); err != nil {
			return err
		}
	}

	for _, c := range b.RateCards {
		_, err := e.ExecContext(ctx, `
			INSERT INTO rate_cards (company_id, reference_type, reference_id, value, unit)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(company_id, reference_type, reference_id) DO UPDATE SET
				value = excluded.value,
				unit = excluded.unit
		`, cid, c.ReferenceType, c.ReferenceID, c.Value, c.Unit)
		if err != nil {
			return fmt.Errorf("failed to write rate card %s/%s: %w", c.ReferenceType, c.ReferenceID, err)
		}
	}

	for _, p := range b.Projects {
		var start sql.NullString
		if p.ContractStartDate != nil {
			start = nullString(p.ContractStartDate.String())
		}
		_, err := e.ExecContext(ctx, `
			INSERT INTO projects (id, company_id, name, contract_start_date)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(company_id, id) DO UPDATE SET
				name = excluded.name,
				contract_start_date = excluded.contract_start_date
		`, p.ID, cid, p.Name, start)
		if err != nil {
			return fmt.Errorf("failed to write project %s: %w", p.ID, err)
		}
	}

	for _, st := range b.Stages {
		var weeks sql.NullInt64
		if st.ContractedWeeks != nil {
			weeks = sql.NullInt64{Int64: int64(*st.ContractedWeeks), Valid: true}
		}
		_, err := e.ExecContext(ctx, `
			INSERT INTO project_stages (id, company_id, project_id, name, total_budgeted_hours, contracted_weeks)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, id) DO UPDATE SET
				project_id = excluded.project_id,
				name = excluded.name,
				total_budgeted_hours = excluded.total_budgeted_hours,
				contracted_weeks = excluded.contracted_weeks
		`, st.ID, cid, st.ProjectID, st.Name, st.TotalBudgetedHours, weeks)
		if err != nil {
			return fmt.Errorf("failed to write stage %s: %w", st.ID, err)
		}
	}

	for _, item := range b.Compositions {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		// The snapshot is the rate at creation time; updates keep it.
		_, err := e.ExecContext(ctx, `
			INSERT INTO team_compositions (id, company_id, stage_id, reference_id, reference_type, planned_quantity, planned_hours_per_person, rate_snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(company_id, id) DO UPDATE SET
				stage_id = excluded.stage_id,
				reference_id = excluded.reference_id,
				reference_type = excluded.reference_type,
				planned_quantity = excluded.planned_quantity,
				planned_hours_per_person = excluded.planned_hours_per_person
		`, id, cid, item.StageID, item.ReferenceID, item.ReferenceType,
			item.PlannedQuantity, item.PlannedHoursPerPerson, item.RateSnapshot())
		if err != nil {
			return fmt.Errorf("failed to write composition %s: %w", id, err)
		}
	}

	return nil
}

// =============================================================================
// AUDIT
// =============================================================================

// AppendAudit stores one audit entry. Missing IDs and timestamps are filled in.
func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var payload sql.NullString
	if entry.Payload != nil {
		data, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal audit payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, company_id, member_id, actor_id, action, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.CompanyID, nullString(string(entry.MemberID)), nullString(entry.ActorID),
		entry.Action, payload, entry.Timestamp.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to append audit: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries newest first.
func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, company_id, member_id, actor_id, action, payload_json, created_at FROM audit_log WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.MemberID != nil {
		query += ` AND member_id = ?`
		args = append(args, *filter.MemberID)
	}
	if len(filter.Actions) > 0 {
		query += ` AND action IN (?` + strings.Repeat(", ?", len(filter.Actions)-1) + `)`
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var e generic.AuditEntry
		var memberID, actorID, payload sql.NullString
		var action, created string
		if err := rows.Scan(&e.ID, &e.CompanyID, &memberID, &actorID, &action, &payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		e.MemberID = generic.MemberID(memberID.String)
		e.ActorID = actorID.String
		e.Action = generic.AuditAction(action)
		if e.Timestamp, err = time.Parse(timestampLayout, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
