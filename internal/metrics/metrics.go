package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by the safety core. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	screeningDuration  *prometheus.HistogramVec
	candidatesTotal    *prometheus.CounterVec
	hotspotsCreated    *prometheus.CounterVec
	dispatchFailures   prometheus.Counter
	matchesTotal       *prometheus.CounterVec
	catalogCacheLookup *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		screeningDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roadsafety",
			Subsystem: "screening",
			Name:      "duration_seconds",
			Help:      "Time spent in a screening run",
			Buckets:   prometheus.DefBuckets,
		}, []string{"location_type"}),
		candidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadsafety",
			Subsystem: "screening",
			Name:      "candidates_total",
			Help:      "Hotspot candidates emitted by screening",
		}, []string{"location_type"}),
		hotspotsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadsafety",
			Subsystem: "hotspots",
			Name:      "created_total",
			Help:      "Hotspots persisted, by location type",
		}, []string{"location_type"}),
		dispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadsafety",
			Subsystem: "events",
			Name:      "dispatch_failures_total",
			Help:      "Domain events that could not be dispatched",
		}),
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadsafety",
			Subsystem: "countermeasures",
			Name:      "matches_total",
			Help:      "Countermeasures returned by matching, by target type",
		}, []string{"target_type"}),
		catalogCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadsafety",
			Subsystem: "countermeasures",
			Name:      "cache_lookups_total",
			Help:      "Countermeasure catalog cache lookups by result",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.screeningDuration,
			m.candidatesTotal,
			m.hotspotsCreated,
			m.dispatchFailures,
			m.matchesTotal,
			m.catalogCacheLookup,
		)
	}
	return m
}

// ObserveScreening records one screening run
func (m *Metrics) ObserveScreening(locationType string, took time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.screeningDuration.WithLabelValues(locationType).Observe(took.Seconds())
	m.candidatesTotal.WithLabelValues(locationType).Add(float64(candidates))
}

func (m *Metrics) HotspotCreated(locationType string) {
	if m == nil {
		return
	}
	m.hotspotsCreated.WithLabelValues(locationType).Inc()
}

func (m *Metrics) DispatchFailed() {
	if m == nil {
		return
	}
	m.dispatchFailures.Inc()
}

func (m *Metrics) Matched(targetType string, n int) {
	if m == nil {
		return
	}
	m.matchesTotal.WithLabelValues(targetType).Add(float64(n))
}

// CacheLookup records a catalog cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.catalogCacheLookup.WithLabelValues(result).Inc()
}
