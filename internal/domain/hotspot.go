package domain

import (
	"fmt"
	"time"
)

// HotspotStatus is the review state of a hotspot
type HotspotStatus string

const (
	HotspotOpen      HotspotStatus = "open"
	HotspotReviewed  HotspotStatus = "reviewed"
	HotspotAddressed HotspotStatus = "addressed"
)

// Valid reports whether s is a known hotspot status
func (s HotspotStatus) Valid() bool {
	switch s {
	case HotspotOpen, HotspotReviewed, HotspotAddressed:
		return true
	default:
		return false
	}
}

// ObservedCrashes counts accidents by type over a hotspot period
type ObservedCrashes struct {
	PropertyDamageOnly int `json:"pdo"`
	Injury             int `json:"injury"`
}

// Total is the sum of all observed crashes
func (o ObservedCrashes) Total() int {
	return o.PropertyDamageOnly + o.Injury
}

// ScreeningParams records how a hotspot was generated. Diagnostic only.
type ScreeningParams struct {
	Method      string    `json:"method,omitempty"`
	Threshold   float64   `json:"threshold,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
}

// Hotspot is a location flagged as higher-risk than expected
type Hotspot struct {
	ID              string           `json:"id"`
	Location        Location         `json:"location"`
	Period          Period           `json:"period"`
	Observed        ObservedCrashes  `json:"observed_crashes"`
	ExpectedCrashes float64          `json:"expected_crashes"`
	RiskScore       float64          `json:"risk_score"`
	Status          HotspotStatus    `json:"status"`
	Screening       *ScreeningParams `json:"screening_params,omitempty"`
}

// Validate checks location, period and counters
func (h Hotspot) Validate() error {
	if err := h.Location.Validate(); err != nil {
		return err
	}
	if err := h.Period.Validate(); err != nil {
		return err
	}
	if h.ExpectedCrashes < 0 {
		return fmt.Errorf("%w: hotspot %s: negative expected crashes %.2f", ErrInvalidHotspot, h.ID, h.ExpectedCrashes)
	}
	if h.Observed.PropertyDamageOnly < 0 || h.Observed.Injury < 0 {
		return fmt.Errorf("%w: hotspot %s: negative observed crashes", ErrInvalidHotspot, h.ID)
	}
	if !h.Status.Valid() {
		return fmt.Errorf("%w: hotspot %s: unknown status %q", ErrInvalidHotspot, h.ID, h.Status)
	}
	return nil
}

// HotspotFilter holds the optional, conjunctive search criteria for hotspots.
// Period matches on interval overlap.
type HotspotFilter struct {
	Period         *Period
	RoadSegmentID  *int64
	IntersectionID *int64
	Status         *HotspotStatus
	MinRisk        *float64
	MaxRisk        *float64
	MinExpected    *float64
	MaxExpected    *float64
}

// Matches applies the filter to a single hotspot
func (f HotspotFilter) Matches(h Hotspot) bool {
	if f.Period != nil && !h.Period.Overlaps(*f.Period) {
		return false
	}
	if f.RoadSegmentID != nil {
		if id, ok := h.Location.Key(LocationRoadSegment); !ok || id != *f.RoadSegmentID {
			return false
		}
	}
	if f.IntersectionID != nil {
		if id, ok := h.Location.Key(LocationIntersection); !ok || id != *f.IntersectionID {
			return false
		}
	}
	if f.Status != nil && h.Status != *f.Status {
		return false
	}
	if f.MinRisk != nil && h.RiskScore < *f.MinRisk {
		return false
	}
	if f.MaxRisk != nil && h.RiskScore > *f.MaxRisk {
		return false
	}
	if f.MinExpected != nil && h.ExpectedCrashes < *f.MinExpected {
		return false
	}
	if f.MaxExpected != nil && h.ExpectedCrashes > *f.MaxExpected {
		return false
	}
	return true
}

// HotspotCreated is dispatched after a hotspot is persisted
type HotspotCreated struct {
	Hotspot    Hotspot   `json:"hotspot"`
	OccurredAt time.Time `json:"occurred_at"`
}
