package domain

import (
	"fmt"
	"time"
)

// Severity classifies the outcome of an accident
type Severity string

const (
	SeverityNone    Severity = "none" // property damage only
	SeverityMinor   Severity = "minor"
	SeveritySerious Severity = "serious"
	SeveritySevere  Severity = "severe"
	SeverityFatal   Severity = "fatal"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityMinor, SeveritySerious, SeveritySevere, SeverityFatal:
		return true
	default:
		return false
	}
}

// Injury reports whether the severity implies at least one injured person
func (s Severity) Injury() bool {
	return s.Valid() && s != SeverityNone
}

// CollisionType is a categorical accident attribute, e.g. "rear_end"
type CollisionType string

type CauseFactor string

type WeatherCondition string

type RoadCondition string

type VisibilityCondition string

// Accident is a recorded crash at a road segment or intersection
type Accident struct {
	ID                  string               `json:"id"`
	OccurredAt          time.Time            `json:"occurred_at"`
	Location            Location             `json:"location"`
	Cost                float64              `json:"cost"`
	Severity            *Severity            `json:"severity,omitempty"`
	CollisionType       *CollisionType       `json:"collision_type,omitempty"`
	CauseFactor         *CauseFactor         `json:"cause_factor,omitempty"`
	WeatherCondition    *WeatherCondition    `json:"weather_condition,omitempty"`
	RoadCondition       *RoadCondition       `json:"road_condition,omitempty"`
	VisibilityCondition *VisibilityCondition `json:"visibility_condition,omitempty"`
	InjuredPersons      int                  `json:"injured_persons"`
}

// IsInjury reports whether the accident counts toward the injury bucket
// rather than property-damage-only
func (a Accident) IsInjury() bool {
	if a.InjuredPersons > 0 {
		return true
	}
	return a.Severity != nil && a.Severity.Injury()
}

// Validate checks the invariants of a persisted accident
func (a Accident) Validate() error {
	if err := a.Location.Validate(); err != nil {
		return err
	}
	if a.Cost < 0 {
		return fmt.Errorf("%w: accident %s: negative cost %.2f", ErrInvalidAccident, a.ID, a.Cost)
	}
	if a.InjuredPersons < 0 {
		return fmt.Errorf("%w: accident %s: negative injured persons %d", ErrInvalidAccident, a.ID, a.InjuredPersons)
	}
	if a.Severity != nil && !a.Severity.Valid() {
		return fmt.Errorf("%w: accident %s: unknown severity %q", ErrInvalidAccident, a.ID, *a.Severity)
	}
	return nil
}

// Period is an inclusive time interval
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate returns ErrInvalidPeriod when the start is after the end
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidPeriod)
	}
	if p.Start.After(p.End) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidPeriod, p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t lies in [Start, End]
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Overlaps reports whether the two inclusive intervals share at least one instant
func (p Period) Overlaps(o Period) bool {
	return !p.Start.After(o.End) && !p.End.Before(o.Start)
}

// Years returns the length of the period in (fractional) years
func (p Period) Years() float64 {
	return p.End.Sub(p.Start).Hours() / (24 * 365.25)
}
