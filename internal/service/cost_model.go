package service

import (
	"math"

	"github.com/roadsafety/backend/internal/domain"
)

// CostModel estimates the monetary cost of an accident
type CostModel interface {
	Estimate(a domain.Accident) float64
}

// severitySurcharge is added on top of the recorded cost by SimpleCostModel
var severitySurcharge = map[domain.Severity]float64{
	domain.SeverityNone:    0,
	domain.SeverityMinor:   10_000,
	domain.SeveritySerious: 20_000,
	domain.SeveritySevere:  40_000,
	domain.SeverityFatal:   100_000,
}

// SimpleCostModel adds a flat severity surcharge to the recorded cost
type SimpleCostModel struct{}

// NewSimpleCostModel creates the default cost model
func NewSimpleCostModel() *SimpleCostModel {
	return &SimpleCostModel{}
}

// Estimate returns cost + surcharge; accidents without a severity get no surcharge
func (m *SimpleCostModel) Estimate(a domain.Accident) float64 {
	if a.Severity == nil {
		return a.Cost
	}
	return a.Cost + severitySurcharge[*a.Severity]
}

// RoadClassifier resolves the classification of a road segment
type RoadClassifier interface {
	Classify(roadSegmentID int64) (domain.RoadClassification, bool)
}

// StaticRoadClassifier is a RoadClassifier backed by a fixed map
type StaticRoadClassifier map[int64]domain.RoadClassification

// Classify implements RoadClassifier
func (c StaticRoadClassifier) Classify(roadSegmentID int64) (domain.RoadClassification, bool) {
	rc, ok := c[roadSegmentID]
	return rc, ok
}

var (
	severityFactor = map[domain.Severity]float64{
		domain.SeverityNone:    1.0,
		domain.SeverityMinor:   1.0,
		domain.SeveritySerious: 1.6,
		domain.SeveritySevere:  2.8,
		domain.SeverityFatal:   6.0,
	}

	// DefaultRoadMultipliers weight costs by road classification
	DefaultRoadMultipliers = map[domain.RoadClassification]float64{
		domain.RoadMotorway:  1.3,
		domain.RoadArterial:  1.15,
		domain.RoadCollector: 1.0,
		domain.RoadLocal:     0.9,
	}
)

// DefaultOverhead is the fixed administrative cost per accident in AdvancedCostModel
const DefaultOverhead = 2_500.0

// AdvancedCostModel scales the recorded cost by severity and road class,
// then adds a fixed overhead
type AdvancedCostModel struct {
	roads       RoadClassifier
	multipliers map[domain.RoadClassification]float64
	overhead    float64
}

// NewAdvancedCostModel creates an advanced cost model. A nil classifier
// treats every road as unclassified (multiplier 1.0).
func NewAdvancedCostModel(roads RoadClassifier, multipliers map[domain.RoadClassification]float64, overhead float64) *AdvancedCostModel {
	if multipliers == nil {
		multipliers = DefaultRoadMultipliers
	}
	return &AdvancedCostModel{
		roads:       roads,
		multipliers: multipliers,
		overhead:    overhead,
	}
}

// Estimate returns max(0, cost*severityFactor*roadMultiplier + overhead)
func (m *AdvancedCostModel) Estimate(a domain.Accident) float64 {
	base := a.Cost
	if a.Severity != nil {
		if f, ok := severityFactor[*a.Severity]; ok {
			base = a.Cost * f
		}
	}

	return math.Max(0, base*m.roadMultiplier(a.Location)+m.overhead)
}

func (m *AdvancedCostModel) roadMultiplier(loc domain.Location) float64 {
	id, ok := loc.Key(domain.LocationRoadSegment)
	if !ok || m.roads == nil {
		return 1.0
	}
	rc, ok := m.roads.Classify(id)
	if !ok {
		return 1.0
	}
	if mult, ok := m.multipliers[rc]; ok {
		return mult
	}
	return 1.0
}
