package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache outcomes. Register it on a prometheus.Registerer; a
// nil registerer leaves the collectors unregistered (tests).
type Metrics struct {
	Hits        prometheus.Counter
	Misses      prometheus.Counter
	StaleServed prometheus.Counter
	FetchErrors *prometheus.CounterVec
	Discarded   prometheus.Counter
}

// NewMetrics builds and registers the dashboard cache collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcing",
			Subsystem: "dashboard_cache",
			Name:      "hits_total",
			Help:      "Dashboard loads served from a fresh cache entry.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcing",
			Subsystem: "dashboard_cache",
			Name:      "misses_total",
			Help:      "Dashboard loads that required a fetch.",
		}),
		StaleServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcing",
			Subsystem: "dashboard_cache",
			Name:      "stale_served_total",
			Help:      "Fetch failures masked by a stale cache entry.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resourcing",
			Subsystem: "dashboard_cache",
			Name:      "fetch_errors_total",
			Help:      "Source fetch failures by source.",
		}, []string{"source"}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "resourcing",
			Subsystem: "dashboard_cache",
			Name:      "discarded_writes_total",
			Help:      "Fetch results dropped because a newer fetch already landed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.StaleServed, m.FetchErrors, m.Discarded)
	}
	return m
}
