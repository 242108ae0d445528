package cache

import (
	"context"

	"github.com/warp/resourcing-engine/budget"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/stage"
)

// Source is the external data store the dashboard reads from. Every method
// is independent; the dashboard cache calls them concurrently.
type Source interface {
	Company(ctx context.Context, companyID generic.CompanyID) (generic.Company, error)
	Members(ctx context.Context, companyID generic.CompanyID) ([]generic.Member, error)
	Allocations(ctx context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.AllocationFact, error)
	Leave(ctx context.Context, companyID generic.CompanyID, leaveType generic.LeaveType, period generic.Period) ([]generic.LeaveFact, error)
	RateCards(ctx context.Context, companyID generic.CompanyID) ([]budget.RateCard, error)
	Projects(ctx context.Context, companyID generic.CompanyID) ([]stage.Project, error)
	Stages(ctx context.Context, companyID generic.CompanyID) ([]stage.ProjectStage, error)
	Compositions(ctx context.Context, companyID generic.CompanyID) ([]budget.TeamCompositionItem, error)
}

// Bundle is everything one dashboard render needs for a company and range.
type Bundle struct {
	Company      generic.Company
	Window       generic.PeriodWindow
	AsOf         generic.TimePoint
	Members      []generic.Member
	Allocations  []generic.AllocationFact
	Leave        map[generic.LeaveType][]generic.LeaveFact
	RateCards    []budget.RateCard
	Projects     []stage.Project
	Stages       []stage.ProjectStage
	Compositions []budget.TeamCompositionItem
}

// AllLeave flattens every leave type into one slice.
func (b *Bundle) AllLeave() []generic.LeaveFact {
	var out []generic.LeaveFact
	for _, t := range generic.LeaveTypes {
		out = append(out, b.Leave[t]...)
	}
	return out
}

// MemberIDs lists the bundle's members in order.
func (b *Bundle) MemberIDs() []generic.MemberID {
	ids := make([]generic.MemberID, len(b.Members))
	for i, m := range b.Members {
		ids[i] = m.ID
	}
	return ids
}

// =============================================================================
// IMPORT
// =============================================================================

// Batch is a set of rows pushed into the store by the import endpoint. Every
// row belongs to CompanyID.
type Batch struct {
	CompanyID generic.CompanyID
	Company   *generic.Company
	// Company fields the payload left out. An existing company keeps its
	// stored value; a new one gets the defaults already set on Company.
	KeepWorkWeekHours bool
	KeepDisplayMode   bool

	Members      []generic.Member
	Allocations  []generic.AllocationFact
	Leave        []generic.LeaveRecord
	RateCards    []budget.RateCard
	Projects     []stage.Project
	Stages       []stage.ProjectStage
	Compositions []budget.TeamCompositionItem
}

// Rows counts the rows in the batch, by kind.
func (b Batch) Rows() map[string]int {
	counts := map[string]int{
		"members":      len(b.Members),
		"allocations":  len(b.Allocations),
		"leave":        len(b.Leave),
		"rate_cards":   len(b.RateCards),
		"projects":     len(b.Projects),
		"stages":       len(b.Stages),
		"compositions": len(b.Compositions),
	}
	if b.Company != nil {
		counts["company"] = 1
	}
	return counts
}

// Importer upserts a batch. Members, projects, stages, compositions and leave
// rows are keyed by ID; rate cards by (reference type, reference ID);
// allocations by (resource, project, date).
type Importer interface {
	Import(ctx context.Context, batch Batch) error
}
