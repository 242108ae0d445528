package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/generic"
)

// =============================================================================
// PLANNER - replace-not-merge write path
// =============================================================================

// Planner writes weekly leave totals as weekday rows.
type Planner struct {
	Writer generic.LeaveWriter
	Audit  generic.AuditLog // optional
	Logger logrus.FieldLogger

	// OnChange runs after a successful write, typically to drop cached
	// dashboards for the company.
	OnChange func(generic.CompanyID)

	now func() time.Time
}

// NewPlanner creates a planner. audit may be nil.
func NewPlanner(writer generic.LeaveWriter, audit generic.AuditLog, logger logrus.FieldLogger) *Planner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Planner{Writer: writer, Audit: audit, Logger: logger, now: time.Now}
}

// WeeklyRequest is one weekly total entered for a member.
type WeeklyRequest struct {
	CompanyID  generic.CompanyID
	MemberID   generic.MemberID
	LeaveType  generic.LeaveType
	WeekStart  generic.TimePoint
	TotalHours decimal.Decimal
	ActorID    string
}

// ReplaceWeek distributes req.TotalHours over the week's weekdays and replaces
// the member's existing rows of that leave type for the week. The returned
// records are exactly what was persisted.
func (p *Planner) ReplaceWeek(ctx context.Context, req WeeklyRequest) ([]generic.LeaveRecord, error) {
	if !req.LeaveType.Valid() {
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidLeaveType, req.LeaveType)
	}
	if req.MemberID == "" {
		return nil, &generic.ValidationError{Field: "member_id", Message: "required"}
	}

	monday := req.WeekStart.StartOfWeek()
	days := DistributeWeeklyTotal(req.TotalHours, monday)
	records := make([]generic.LeaveRecord, len(days))
	for i, d := range days {
		records[i] = generic.LeaveRecord{
			ID:        uuid.NewString(),
			MemberID:  req.MemberID,
			CompanyID: req.CompanyID,
			Date:      d.Date,
			Hours:     d.Hours,
			LeaveType: req.LeaveType,
		}
	}

	if err := p.Writer.ReplaceLeaveWeek(ctx, req.CompanyID, req.MemberID, req.LeaveType, monday, records); err != nil {
		return nil, fmt.Errorf("replace leave week %s for %s: %w", monday, req.MemberID, err)
	}

	fields := logrus.Fields{
		"company_id": req.CompanyID,
		"member_id":  req.MemberID,
		"leave_type": req.LeaveType,
		"week":       monday.String(),
		"total":      Total(days).String(),
	}
	p.Logger.WithFields(fields).Info("[Leave] weekly total replaced")

	if p.Audit != nil {
		entry := generic.AuditEntry{
			ID:        uuid.NewString(),
			CompanyID: req.CompanyID,
			Timestamp: p.clock().UTC(),
			ActorID:   req.ActorID,
			Action:    generic.AuditLeaveReplaced,
			MemberID:  req.MemberID,
			Payload: map[string]any{
				"leave_type": string(req.LeaveType),
				"week":       monday.String(),
				"total":      Total(days).String(),
			},
		}
		// Best effort: a lost audit entry never fails the write.
		if err := p.Audit.AppendAudit(ctx, entry); err != nil {
			p.Logger.WithFields(fields).WithError(err).Warn("[Leave] audit append failed")
		}
	}

	if p.OnChange != nil {
		p.OnChange(req.CompanyID)
	}
	return records, nil
}

func (p *Planner) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}
