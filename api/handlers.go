/*
handlers.go - HTTP API handlers for the resourcing dashboard

PURPOSE:
  Exposes the aggregation engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates to the dashboard service,
  the leave planner and the import factory.

ENDPOINTS:
  Dashboard (cached per company, range and week):
    GET    /api/companies/{companyID}/dashboard?range=&start=
    GET    /api/companies/{companyID}/members?range=&start=
    GET    /api/companies/{companyID}/projects/{projectID}/stages?range=&start=
    GET    /api/companies/{companyID}/leave/insights

  Writes (invalidate the company's cached dashboards):
    POST   /api/companies/{companyID}/members/{memberID}/leave/weekly
    POST   /api/companies/{companyID}/import

  Cache:
    POST   /api/companies/{companyID}/cache/invalidate
    POST   /api/cache/invalidate

  Audit:
    GET    /api/companies/{companyID}/audit?member=&action=&limit=

  Scenarios (demo data, see scenarios.go):
    GET    /api/scenarios
    GET    /api/scenarios/current
    POST   /api/scenarios/load
    POST   /api/scenarios/reset

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: dashboard reads through the cache
  - Cache:   invalidation after writes
  - Planner: replace-not-merge weekly leave
  - Store:   import and audit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid range, invalid leave type
  - 404: Unknown company or project
  - 502: Upstream fetch failed and nothing cached
  - 500: Write failures and internal errors

ACTOR:
  The X-Actor-ID header, when present, is recorded on audit entries.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/dashboard"
	"github.com/warp/resourcing-engine/factory"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/leave"
)

// maxImportBytes caps import bodies.
const maxImportBytes = 10 << 20

// defaultAuditLimit applies when the audit query has no limit.
const defaultAuditLimit = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API needs from persistence. Both the sqlite and
// the in-memory stores implement it.
type Store interface {
	cache.Source
	cache.Importer
	generic.LeaveWriter
	generic.AuditLog
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Cache   *cache.Dashboard
	Service *dashboard.Service
	Planner *leave.Planner
	Records *factory.RecordFactory
	Logger  logrus.FieldLogger

	now func() time.Time

	// Track currently loaded demo scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler wires the service, planner and factory around store and the
// dashboard cache.
func NewHandler(store Store, dash *cache.Dashboard, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{
		Store:   store,
		Cache:   dash,
		Service: dashboard.NewService(dash, store, logger),
		Planner: leave.NewPlanner(store, store, logger),
		Records: factory.NewRecordFactory(),
		Logger:  logger,
		now:     time.Now,
	}
	h.Planner.OnChange = func(companyID generic.CompanyID) {
		n := dash.Invalidate(companyID)
		logger.WithFields(logrus.Fields{"company_id": companyID, "entries": n}).Debug("[API] cache invalidated after leave write")
	}
	return h
}

// =============================================================================
// DASHBOARD ENDPOINTS
// =============================================================================

// GetDashboard returns the full report.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, "invalid query", err)
		return
	}

	rep, err := h.Service.Dashboard(r.Context(), q)
	if err != nil {
		h.fail(w, r, "failed to load dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(rep))
}

// GetMembers returns the member table.
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, "invalid query", err)
		return
	}

	rows, mode, err := h.Service.Members(r.Context(), q)
	if err != nil {
		h.fail(w, r, "failed to load members", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberRowDTOs(rows, mode))
}

// GetProjectStages returns the stage cards of one project.
func (h *Handler) GetProjectStages(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, "invalid query", err)
		return
	}
	projectID := generic.ProjectID(chi.URLParam(r, "projectID"))

	reports, err := h.Service.ProjectStages(r.Context(), q, projectID)
	if err != nil {
		h.fail(w, r, "failed to load stages", err)
		return
	}

	dtos := make([]StageReportDTO, len(reports))
	for i, s := range reports {
		dtos[i] = toStageReportDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLeaveInsights returns the upcoming leave counts.
func (h *Handler) GetLeaveInsights(w http.ResponseWriter, r *http.Request) {
	q := dashboard.Query{CompanyID: generic.CompanyID(chi.URLParam(r, "companyID"))}

	insights, err := h.Service.LeaveInsights(r.Context(), q)
	if err != nil {
		h.fail(w, r, "failed to load leave insights", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveInsightsDTO(insights))
}

// =============================================================================
// WRITE ENDPOINTS
// =============================================================================

// ReplaceWeeklyLeave distributes a weekly total over the week's weekdays,
// replacing what was there.
func (h *Handler) ReplaceWeeklyLeave(w http.ResponseWriter, r *http.Request) {
	companyID := generic.CompanyID(chi.URLParam(r, "companyID"))
	memberID := generic.MemberID(chi.URLParam(r, "memberID"))

	var req WeeklyLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	weekStart, err := generic.ParseDate(req.WeekStart)
	if err != nil {
		h.fail(w, r, "invalid week_start", &generic.ValidationError{Field: "week_start", Message: err.Error()})
		return
	}

	if err := h.requireMember(r.Context(), companyID, memberID); err != nil {
		h.fail(w, r, "unknown member", err)
		return
	}

	records, err := h.Planner.ReplaceWeek(r.Context(), leave.WeeklyRequest{
		CompanyID:  companyID,
		MemberID:   memberID,
		LeaveType:  generic.LeaveType(req.LeaveType),
		WeekStart:  weekStart,
		TotalHours: req.TotalHours.Hours(),
		ActorID:    actorID(r),
	})
	if err != nil {
		h.fail(w, r, "failed to replace leave", err)
		return
	}

	resp := WeeklyLeaveResponse{
		WeekStart: weekStart.StartOfWeek().String(),
		Records:   make([]LeaveRecordDTO, len(records)),
	}
	days := make([]leave.DailyLeave, len(records))
	for i, rec := range records {
		resp.Records[i] = toLeaveRecordDTO(rec)
		days[i] = leave.DailyLeave{Date: rec.Date, Hours: rec.Hours}
	}
	resp.Total = leave.Total(days)
	writeJSON(w, http.StatusOK, resp)
}

// requireMember checks that memberID is on companyID's roster.
func (h *Handler) requireMember(ctx context.Context, companyID generic.CompanyID, memberID generic.MemberID) error {
	members, err := h.Store.Members(ctx, companyID)
	if err != nil {
		return &generic.FetchError{CompanyID: companyID, Source: "members", Err: err}
	}
	for _, m := range members {
		if m.ID == memberID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", generic.ErrMemberNotFound, memberID, companyID)
}

// ImportRecords upserts a loose JSON batch. Bad numbers are coerced to zero
// and listed in the response; structural errors reject the whole batch.
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	companyID := generic.CompanyID(chi.URLParam(r, "companyID"))

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "failed to read body", err)
		return
	}

	batch, report, err := h.Records.ParseBatch(companyID, data)
	if err != nil {
		h.fail(w, r, "invalid import", err)
		return
	}

	if err := h.Store.Import(r.Context(), batch); err != nil {
		h.fail(w, r, "failed to import", err)
		return
	}
	n := h.Cache.Invalidate(companyID)

	rows := batch.Rows()
	h.Logger.WithFields(logrus.Fields{
		"company_id": companyID,
		"rows":       rows,
		"coerced":    len(report.Coerced),
	}).Info("[API] records imported")

	payload := map[string]any{"coerced": len(report.Coerced)}
	for kind, count := range rows {
		payload[kind] = count
	}
	h.audit(r, generic.AuditEntry{
		CompanyID: companyID,
		Action:    generic.AuditRecordsImported,
		Payload:   payload,
	})

	coerced := report.Coerced
	if coerced == nil {
		coerced = []string{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{Rows: rows, Coerced: coerced, Invalidated: n})
}

// =============================================================================
// CACHE ENDPOINTS
// =============================================================================

// InvalidateCompany drops every cached dashboard of the company.
func (h *Handler) InvalidateCompany(w http.ResponseWriter, r *http.Request) {
	companyID := generic.CompanyID(chi.URLParam(r, "companyID"))
	n := h.Cache.Invalidate(companyID)

	h.audit(r, generic.AuditEntry{
		CompanyID: companyID,
		Action:    generic.AuditCacheInvalidated,
		Payload:   map[string]any{"entries": n},
	})
	writeJSON(w, http.StatusOK, InvalidateResponse{Invalidated: n})
}

// InvalidateAll drops every cached dashboard.
func (h *Handler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	n := h.Cache.InvalidateAll()
	h.Logger.WithField("entries", n).Info("[API] cache cleared")
	writeJSON(w, http.StatusOK, InvalidateResponse{Invalidated: n})
}

// =============================================================================
// AUDIT & HEALTH
// =============================================================================

// GetAudit lists audit entries, newest first.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	filter := generic.AuditFilter{
		CompanyID: generic.CompanyID(chi.URLParam(r, "companyID")),
		Limit:     defaultAuditLimit,
	}
	if m := r.URL.Query().Get("member"); m != "" {
		id := generic.MemberID(m)
		filter.MemberID = &id
	}
	if a := r.URL.Query().Get("action"); a != "" {
		for _, part := range strings.Split(a, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Actions = append(filter.Actions, generic.AuditAction(part))
			}
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			h.fail(w, r, "invalid limit", &generic.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "failed to query audit", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health pings the store when it supports it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseQuery reads companyID, range and start.
func parseQuery(r *http.Request) (dashboard.Query, error) {
	q := dashboard.Query{CompanyID: generic.CompanyID(chi.URLParam(r, "companyID"))}

	rng, err := generic.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		return q, err
	}
	q.Range = rng

	if s := r.URL.Query().Get("start"); s != "" {
		start, err := generic.ParseDate(s)
		if err != nil {
			return q, &generic.ValidationError{Field: "start", Message: fmt.Sprintf("invalid date %q", s)}
		}
		q.Start = start
	}
	return q, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsRetryable(err):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail logs server-side failures and writes the mapped error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
		}).WithError(err).Error("[API] " + message)
	}
	writeError(w, status, message, err)
}

// audit appends an entry, logging instead of failing.
func (h *Handler) audit(r *http.Request, entry generic.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = h.now().UTC()
	entry.ActorID = actorID(r)
	if err := h.Store.AppendAudit(r.Context(), entry); err != nil {
		h.Logger.WithFields(logrus.Fields{
			"company_id": entry.CompanyID,
			"action":     entry.Action,
		}).WithError(err).Warn("[API] audit append failed")
	}
}

func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
