/*
store.go - Write-side persistence interfaces

PURPOSE:
  The core is read-mostly: it sums facts it is handed. Two writes exist and
  they are defined here so both stores (sqlite, memory) implement the same
  contract:

  LeaveWriter: replace a member's leave rows for one week
  AuditLog:    best-effort local trail of who changed what

REPLACE-NOT-MERGE:
  ReplaceLeaveWeek deletes every existing row for (member, leave type,
  Monday..Sunday of the week) and inserts the new rows in one transaction.
  A weekly total of 20h entered twice leaves 20h on the books, not 40h.

AUDIT TRAIL:
  The audit log is not a ledger. Entries can be lost if the write fails;
  callers log and continue.

SEE ALSO:
  - leave/planner.go: builds the rows and calls ReplaceLeaveWeek
  - store/sqlite/sqlite.go: production implementation
  - generic/store/memory.go: in-memory implementation for tests
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE WRITER
// =============================================================================

// LeaveRecord is the row shape the write path persists verbatim.
type LeaveRecord struct {
	ID        string
	MemberID  MemberID
	CompanyID CompanyID
	Date      TimePoint
	Hours     decimal.Decimal
	LeaveType LeaveType
}

// LeaveWriter persists weekly leave distributions.
type LeaveWriter interface {
	// ReplaceLeaveWeek atomically deletes the company member's rows of the
	// given type in the week starting at weekStart and inserts records.
	ReplaceLeaveWeek(ctx context.Context, companyID CompanyID, memberID MemberID, leaveType LeaveType, weekStart TimePoint, records []LeaveRecord) error
}

// =============================================================================
// AUDIT LOG - best-effort trail, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	CompanyID CompanyID
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	MemberID  MemberID
	Payload   map[string]any
}

type AuditAction string

const (
	AuditLeaveReplaced    AuditAction = "leave_replaced"
	AuditRecordsImported  AuditAction = "records_imported"
	AuditCacheInvalidated AuditAction = "cache_invalidated"
)

// AuditLog stores audit entries.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	CompanyID CompanyID
	MemberID  *MemberID
	Actions   []AuditAction
	Limit     int
}
