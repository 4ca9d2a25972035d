package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roadsafety/backend/internal/domain"
)

func TestSimpleCostModel_Estimate(t *testing.T) {
	tests := []struct {
		given    *domain.Severity
		expected float64
	}{
		{given: nil, expected: 5_000},
		{given: severity(domain.SeverityNone), expected: 5_000},
		{given: severity(domain.SeverityMinor), expected: 15_000},
		{given: severity(domain.SeveritySerious), expected: 25_000},
		{given: severity(domain.SeveritySevere), expected: 45_000},
		{given: severity(domain.SeverityFatal), expected: 105_000},
	}

	m := NewSimpleCostModel()
	for _, test := range tests {
		a := accidentAt("a", domain.RoadSegment(1, 0), 5_000, test.given, day(1))
		assert.Equal(t, test.expected, m.Estimate(a))
	}
}

func TestSimpleCostModel_NeverBelowRawCost(t *testing.T) {
	m := NewSimpleCostModel()
	for _, sev := range []domain.Severity{domain.SeverityNone, domain.SeverityMinor, domain.SeveritySerious, domain.SeveritySevere, domain.SeverityFatal} {
		for _, cost := range []float64{0, 1, 7_500, 1e6} {
			a := accidentAt("a", domain.Intersection(1), cost, severity(sev), day(1))
			assert.GreaterOrEqual(t, m.Estimate(a), cost)
		}
	}

	fatal := accidentAt("f", domain.Intersection(1), 3_000, severity(domain.SeverityFatal), day(1))
	assert.GreaterOrEqual(t, m.Estimate(fatal), 3_000.0+100_000)
}

func TestAdvancedCostModel_Estimate(t *testing.T) {
	roads := StaticRoadClassifier{
		1: domain.RoadMotorway,
		2: domain.RoadLocal,
	}
	m := NewAdvancedCostModel(roads, nil, 1_000)

	tests := []struct {
		name     string
		given    domain.Accident
		expected float64
	}{
		{
			name:     "no severity uses raw cost",
			given:    accidentAt("a", domain.RoadSegment(3, 0), 10_000, nil, day(1)),
			expected: 11_000,
		},
		{
			name:     "serious on motorway",
			given:    accidentAt("b", domain.RoadSegment(1, 0), 10_000, severity(domain.SeveritySerious), day(1)),
			expected: 10_000*1.6*1.3 + 1_000,
		},
		{
			name:     "fatal on local road",
			given:    accidentAt("c", domain.RoadSegment(2, 0), 10_000, severity(domain.SeverityFatal), day(1)),
			expected: 10_000*6.0*0.9 + 1_000,
		},
		{
			name:     "intersection ignores road class",
			given:    accidentAt("d", domain.Intersection(1), 10_000, severity(domain.SeveritySevere), day(1)),
			expected: 10_000*2.8 + 1_000,
		},
	}

	for _, test := range tests {
		assert.InDelta(t, test.expected, m.Estimate(test.given), 1e-6, test.name)
	}
}

func TestAdvancedCostModel_FloorsAtZero(t *testing.T) {
	m := NewAdvancedCostModel(nil, nil, -5_000)
	a := accidentAt("a", domain.RoadSegment(1, 0), 1_000, severity(domain.SeverityMinor), day(1))
	assert.Equal(t, 0.0, m.Estimate(a))
}
