package dashboard

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/capacity"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/leave"
	"github.com/warp/resourcing-engine/stage"
)

// =============================================================================
// SERVICE
// =============================================================================

// Loader returns cached bundles. *cache.Dashboard implements it.
type Loader interface {
	Load(ctx context.Context, key cache.Key) (*cache.Bundle, error)
	KeyFor(companyID generic.CompanyID, r generic.TimeRange, start generic.TimePoint) cache.Key
}

// AllocationSource fetches allocations outside the dashboard window. Stage
// reports need the whole stage interval, which the cached bundle does not
// cover.
type AllocationSource interface {
	Allocations(ctx context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.AllocationFact, error)
}

// Query selects a company and window.
type Query struct {
	CompanyID generic.CompanyID
	Range     generic.TimeRange
	Start     generic.TimePoint // zero means the current week
}

// Service answers dashboard queries.
type Service struct {
	loader      Loader
	allocations AllocationSource
	thresholds  capacity.Thresholds
	logger      logrus.FieldLogger
}

// NewService creates a service. allocations may be nil, in which case stage
// reports only see the allocations of the cached window.
func NewService(loader Loader, allocations AllocationSource, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		loader:      loader,
		allocations: allocations,
		thresholds:  capacity.DefaultThresholds,
		logger:      logger,
	}
}

// SetThresholds overrides the allocation warning thresholds.
func (s *Service) SetThresholds(t capacity.Thresholds) { s.thresholds = t }

func (s *Service) bundle(ctx context.Context, q Query) (*cache.Bundle, error) {
	r := q.Range
	if r == "" {
		r = generic.RangeMonth
	}
	return s.loader.Load(ctx, s.loader.KeyFor(q.CompanyID, r, q.Start))
}

// Dashboard builds the full report.
func (s *Service) Dashboard(ctx context.Context, q Query) (Report, error) {
	b, err := s.bundle(ctx, q)
	if err != nil {
		return Report{}, err
	}
	return Build(b, s.thresholds), nil
}

// Members builds the member table only, with the company's display mode.
func (s *Service) Members(ctx context.Context, q Query) ([]MemberRow, generic.DisplayMode, error) {
	b, err := s.bundle(ctx, q)
	if err != nil {
		return nil, "", err
	}
	return MemberRows(b, s.thresholds), b.Company.DisplayMode, nil
}

// LeaveInsights counts upcoming leave for the company's members.
func (s *Service) LeaveInsights(ctx context.Context, q Query) (leave.UtilizationInsights, error) {
	b, err := s.bundle(ctx, q)
	if err != nil {
		return leave.UtilizationInsights{}, err
	}
	return leave.Insights(b.AllLeave(), b.MemberIDs(), b.AsOf), nil
}

// ProjectStages builds the stage reports of one project.
func (s *Service) ProjectStages(ctx context.Context, q Query, projectID generic.ProjectID) ([]StageReport, error) {
	b, err := s.bundle(ctx, q)
	if err != nil {
		return nil, err
	}

	var project *stage.Project
	for i := range b.Projects {
		if b.Projects[i].ID == projectID {
			project = &b.Projects[i]
			break
		}
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", generic.ErrProjectNotFound, projectID)
	}

	facts := b.Allocations
	if period, ok := StagePeriod(b, *project); ok && s.allocations != nil {
		facts, err = s.allocations.Allocations(ctx, q.CompanyID, period)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"company_id": q.CompanyID,
				"project_id": projectID,
				"period":     period.String(),
			}).WithError(err).Error("[Dashboard] stage allocation fetch failed")
			return nil, &generic.FetchError{CompanyID: q.CompanyID, Source: "stage_allocations", Err: err}
		}
	}
	return StageReports(b, *project, facts), nil
}
