package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/generic"
	"github.com/warp/resourcing-engine/leave"
	"golang.org/x/sync/errgroup"
)

// DefaultTTL is how long a fetched bundle is served without refetching.
const DefaultTTL = 5 * time.Minute

// =============================================================================
// KEY
// =============================================================================

// Key identifies one cached bundle.
type Key struct {
	CompanyID generic.CompanyID
	Range     generic.TimeRange
	Start     generic.TimePoint
}

// String is "company/range@start". Every key of a company shares the
// "company/" prefix, which is what Invalidate matches on.
func (k Key) String() string {
	return companyPrefix(k.CompanyID) + string(k.Range) + "@" + k.Start.String()
}

func companyPrefix(id generic.CompanyID) string { return string(id) + "/" }

// =============================================================================
// DASHBOARD CACHE
// =============================================================================

// Dashboard is the read-through bundle cache.
type Dashboard struct {
	source  Source
	entries *TTL[*Bundle]
	ttl     time.Duration
	metrics *Metrics
	logger  logrus.FieldLogger

	seq atomic.Uint64

	mu     sync.Mutex
	recent map[string]Key
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option { return func(d *Dashboard) { d.ttl = ttl } }

// WithClock injects the cache clock.
func WithClock(c Clock) Option { return func(d *Dashboard) { d.entries = NewTTL[*Bundle](c) } }

// WithMetrics records outcomes on m.
func WithMetrics(m *Metrics) Option { return func(d *Dashboard) { d.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(d *Dashboard) { d.logger = l } }

// NewDashboard creates a cache over source.
func NewDashboard(source Source, opts ...Option) *Dashboard {
	d := &Dashboard{
		source:  source,
		entries: NewTTL[*Bundle](nil),
		ttl:     DefaultTTL,
		logger:  logrus.StandardLogger(),
		recent:  make(map[string]Key),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	return d
}

// Today is the cache clock's current date in UTC.
func (d *Dashboard) Today() generic.TimePoint {
	return generic.FromTime(d.entries.Now().UTC())
}

// KeyFor builds the key for a company and range starting at start. A zero
// start means the current week.
func (d *Dashboard) KeyFor(companyID generic.CompanyID, r generic.TimeRange, start generic.TimePoint) Key {
	if start.IsZero() {
		start = d.Today()
	}
	return Key{CompanyID: companyID, Range: r, Start: start.StartOfWeek()}
}

// Load returns the bundle for key, fetching when there is no fresh entry.
func (d *Dashboard) Load(ctx context.Context, key Key) (*Bundle, error) {
	d.remember(key)
	if e, ok := d.entries.Get(key.String()); ok && e.Fresh(d.entries.Now()) {
		d.metrics.Hits.Inc()
		return e.Value, nil
	}
	d.metrics.Misses.Inc()
	return d.refresh(ctx, key)
}

// Refresh refetches key regardless of freshness. The warm-up scheduler uses it.
func (d *Dashboard) Refresh(ctx context.Context, key Key) (*Bundle, error) {
	return d.refresh(ctx, key)
}

func (d *Dashboard) refresh(ctx context.Context, key Key) (*Bundle, error) {
	seq := d.seq.Add(1)
	log := d.logger.WithFields(logrus.Fields{"cache_key": key.String(), "seq": seq})

	bundle, err := d.fetch(ctx, key)
	if err != nil {
		var fe *generic.FetchError
		if errors.As(err, &fe) {
			d.metrics.FetchErrors.WithLabelValues(fe.Source).Inc()
		}
		if e, ok := d.entries.Get(key.String()); ok {
			d.metrics.StaleServed.Inc()
			log.WithError(err).Warn("[Cache] fetch failed, serving stale bundle")
			return e.Value, nil
		}
		log.WithError(err).Error("[Cache] fetch failed, nothing cached")
		return nil, err
	}

	if !d.entries.SetIfNewer(key.String(), bundle, d.ttl, seq) {
		d.metrics.Discarded.Inc()
		log.Debug("[Cache] bundle superseded by a newer fetch or an invalidation, not cached")
		if e, ok := d.entries.Get(key.String()); ok {
			return e.Value, nil
		}
	}
	return bundle, nil
}

// Invalidate drops every cached range of a company.
func (d *Dashboard) Invalidate(companyID generic.CompanyID) int {
	n := d.entries.InvalidateBefore(companyPrefix(companyID), d.seq.Add(1))
	d.logger.WithFields(logrus.Fields{"company_id": companyID, "removed": n}).Info("[Cache] invalidated company")
	return n
}

// InvalidateAll empties the cache.
func (d *Dashboard) InvalidateAll() int {
	n := d.entries.InvalidateBefore("", d.seq.Add(1))
	d.logger.WithField("removed", n).Info("[Cache] invalidated all")
	return n
}

// Recent returns keys loaded since the last call to ForgetRecent, sorted.
func (d *Dashboard) Recent() []Key {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]Key, 0, len(d.recent))
	for _, k := range d.recent {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// ForgetRecent clears the warm-up list.
func (d *Dashboard) ForgetRecent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = make(map[string]Key)
}

func (d *Dashboard) remember(key Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent[key.String()] = key
}

// =============================================================================
// FETCH
// =============================================================================

// LeavePeriod is the date span leave is fetched for: the window itself plus
// everything the insights look at (12 weeks ahead, next calendar month).
func LeavePeriod(window generic.PeriodWindow, today generic.TimePoint) generic.Period {
	start := window.Start
	if ws := today.StartOfWeek(); ws.Before(start) {
		start = ws
	}
	end := window.Last()
	if peak := today.StartOfWeek().AddWeeks(leave.PeakWindowWeeks).AddDays(-1); peak.After(end) {
		end = peak
	}
	thisMonth := generic.StartOfMonth(today.Year(), today.Month())
	if nm := generic.MonthPeriod(thisMonth.AddMonths(1)).End; nm.After(end) {
		end = nm
	}
	if nw := today.AddDays(7).StartOfWeek().AddDays(6); nw.After(end) {
		end = nw
	}
	return generic.Period{Start: start, End: end}
}

func (d *Dashboard) fetch(ctx context.Context, key Key) (*Bundle, error) {
	window := key.Range.Window(key.Start)
	today := d.Today()
	allocPeriod := generic.Period{Start: window.Start, End: window.Last()}
	leavePeriod := LeavePeriod(window, today)

	b := &Bundle{Window: window, AsOf: today}
	leaveByType := make([][]generic.LeaveFact, len(generic.LeaveTypes))

	g, gctx := errgroup.WithContext(ctx)
	wrap := func(source string, err error) error {
		if err == nil {
			return nil
		}
		return &generic.FetchError{CompanyID: key.CompanyID, Source: source, Err: err}
	}

	g.Go(func() (err error) {
		b.Company, err = d.source.Company(gctx, key.CompanyID)
		return wrap("company", err)
	})
	g.Go(func() (err error) {
		b.Members, err = d.source.Members(gctx, key.CompanyID)
		return wrap("members", err)
	})
	g.Go(func() (err error) {
		b.Allocations, err = d.source.Allocations(gctx, key.CompanyID, allocPeriod)
		return wrap("allocations", err)
	})
	for i, lt := range generic.LeaveTypes {
		i, lt := i, lt
		g.Go(func() (err error) {
			leaveByType[i], err = d.source.Leave(gctx, key.CompanyID, lt, leavePeriod)
			return wrap("leave_"+string(lt), err)
		})
	}
	g.Go(func() (err error) {
		b.RateCards, err = d.source.RateCards(gctx, key.CompanyID)
		return wrap("rate_cards", err)
	})
	g.Go(func() (err error) {
		b.Projects, err = d.source.Projects(gctx, key.CompanyID)
		return wrap("projects", err)
	})
	g.Go(func() (err error) {
		b.Stages, err = d.source.Stages(gctx, key.CompanyID)
		return wrap("stages", err)
	})
	g.Go(func() (err error) {
		b.Compositions, err = d.source.Compositions(gctx, key.CompanyID)
		return wrap("compositions", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Leave = make(map[generic.LeaveType][]generic.LeaveFact, len(generic.LeaveTypes))
	for i, lt := range generic.LeaveTypes {
		b.Leave[lt] = leaveByType[i]
	}
	if b.Company.ID == "" {
		return nil, fmt.Errorf("%w: %s", generic.ErrCompanyNotFound, key.CompanyID)
	}
	return b, nil
}
