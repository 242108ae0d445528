/*
Package sqlite provides a SQLite-backed implementation of the data store.

PURPOSE:
  Holds the raw facts the dashboard aggregates (members, allocations, leave,
  rate cards, projects, stages, compositions) plus the audit trail. The
  aggregation core never writes here except through the leave planner and
  the import endpoint.

INTERFACES IMPLEMENTED:
  cache.Source:        dashboard reads
  cache.Importer:      bulk upserts from the import endpoint
  generic.LeaveWriter: replace-not-merge weekly leave
  generic.AuditLog:    best-effort audit trail

KEY TABLES:
  companies:         work week hours and display mode
  members:           weekly_capacity is NULL when the company default applies
  allocations:       one row per (company, resource, project, date)
  leave_entries:     one row per member/day/type
  rate_cards:        one row per (company, reference type, reference id)
  projects:          contract_start_date may be NULL
  project_stages:    contracted_weeks may be NULL
  team_compositions: rate_snapshot is written once and never re-derived
  audit_log:         JSON payload, newest first on read

  Member, leave, project, stage and composition IDs are unique per
  company only; those tables are keyed by (company_id, id).

STORAGE FORMAT:
  Decimals are TEXT (decimal.Decimal implements Scanner/Valuer) so hours
  and money survive without float drift. Dates are ISO "2006-01-02" TEXT,
  which compares correctly as strings.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are limited to a
  single connection because each connection would otherwise see its own
  empty database.

USAGE:
  store, err := sqlite.New("./data/resourcing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - cache/source.go: Source, Batch and Importer
  - generic/store.go: LeaveWriter and AuditLog
  - generic/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/generic"
)

// Store implements the data store interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ cache.Source        = (*Store)(nil)
	_ cache.Importer      = (*Store)(nil)
	_ generic.LeaveWriter = (*Store)(nil)
	_ generic.AuditLog    = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection. The health endpoint uses it.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		work_week_hours TEXT NOT NULL DEFAULT '40',
		display_mode TEXT NOT NULL DEFAULT 'hours'
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		weekly_capacity TEXT,
		role_id TEXT,
		location_id TEXT,
		PRIMARY KEY (company_id, id)
	);

	CREATE TABLE IF NOT EXISTS allocations (
		company_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		allocation_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		resource_type TEXT NOT NULL DEFAULT 'active',
		PRIMARY KEY (company_id, resource_id, project_id, allocation_date)
	);

	-- Dashboard window scans (hot path)
	CREATE INDEX IF NOT EXISTS idx_allocations_company_date
		ON allocations(company_id, allocation_date);

	CREATE TABLE IF NOT EXISTS leave_entries (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		leave_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		PRIMARY KEY (company_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_company_type_date
		ON leave_entries(company_id, leave_type, leave_date);
	-- Weekly replace deletes by member, type and date range
	CREATE INDEX IF NOT EXISTS idx_leave_member_type_date
		ON leave_entries(company_id, member_id, leave_type, leave_date);

	-- At most one active rate per (reference type, reference id)
	CREATE TABLE IF NOT EXISTS rate_cards (
		company_id TEXT NOT NULL,
		reference_type TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		value TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT 'hour',
		PRIMARY KEY (company_id, reference_type, reference_id)
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		contract_start_date TEXT,
		PRIMARY KEY (company_id, id)
	);

	CREATE TABLE IF NOT EXISTS project_stages (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		total_budgeted_hours TEXT NOT NULL DEFAULT '0',
		contracted_weeks INTEGER,
		PRIMARY KEY (company_id, id)
	);

	CREATE TABLE IF NOT EXISTS team_compositions (
		id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		stage_id TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		reference_type TEXT NOT NULL,
		planned_quantity TEXT NOT NULL,
		planned_hours_per_person TEXT NOT NULL,
		rate_snapshot TEXT NOT NULL,
		PRIMARY KEY (company_id, id)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		member_id TEXT,
		actor_id TEXT,
		action TEXT NOT NULL,
		payload_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_company_created
		ON audit_log(company_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"companies", "members", "allocations", "leave_entries", "rate_cards",
		"projects", "project_stages", "team_compositions", "audit_log",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDate(column, value string) (generic.TimePoint, error) {
	tp, err := generic.ParseDate(value)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return tp, nil
}
