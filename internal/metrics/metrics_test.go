package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScreening("road_segment", time.Second, 3)
		m.HotspotCreated("intersection")
		m.DispatchFailed()
		m.Matched("intersection", 2)
		m.CacheLookup(true)
	})
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScreening("road_segment", 20*time.Millisecond, 3)
	m.HotspotCreated("intersection")
	m.HotspotCreated("intersection")
	m.DispatchFailed()
	m.Matched("intersection", 4)
	m.CacheLookup(false)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[f.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	expected := map[string]float64{
		"roadsafety_screening_duration_seconds":          1,
		"roadsafety_screening_candidates_total":          3,
		"roadsafety_hotspots_created_total":              2,
		"roadsafety_events_dispatch_failures_total":      1,
		"roadsafety_countermeasures_matches_total":       4,
		"roadsafety_countermeasures_cache_lookups_total": 1,
	}
	assert.Equal(t, expected, values)
}
