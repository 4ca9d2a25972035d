package domain

import (
	"fmt"
	"slices"
	"strings"
)

// TargetType tells whether a countermeasure applies to road segments or intersections
type TargetType string

const (
	TargetRoadSegment  TargetType = "road_segment"
	TargetIntersection TargetType = "intersection"
)

// Valid reports whether t is a known target type
func (t TargetType) Valid() bool {
	return t == TargetRoadSegment || t == TargetIntersection
}

// TargetFor maps a location kind onto the countermeasure target type
func TargetFor(kind LocationKind) TargetType {
	switch kind {
	case LocationIntersection:
		return TargetIntersection
	default:
		return TargetRoadSegment
	}
}

// CountermeasureStatus is the lifecycle status of a countermeasure
type CountermeasureStatus string

const (
	CountermeasureProposed    CountermeasureStatus = "proposed"
	CountermeasureApproved    CountermeasureStatus = "approved"
	CountermeasureImplemented CountermeasureStatus = "implemented"
	CountermeasureRejected    CountermeasureStatus = "rejected"
)

// DefaultCountermeasureStatuses are the statuses matched when a caller gives none
var DefaultCountermeasureStatuses = []CountermeasureStatus{
	CountermeasureProposed,
	CountermeasureApproved,
	CountermeasureImplemented,
}

// Valid reports whether s is a known countermeasure status
func (s CountermeasureStatus) Valid() bool {
	switch s {
	case CountermeasureProposed, CountermeasureApproved, CountermeasureImplemented, CountermeasureRejected:
		return true
	default:
		return false
	}
}

type RoadClassification string

const (
	RoadMotorway  RoadClassification = "motorway"
	RoadArterial  RoadClassification = "arterial"
	RoadCollector RoadClassification = "collector"
	RoadLocal     RoadClassification = "local"
)

// ApplicabilityRules restrict where a countermeasure can be deployed.
// Intersection countermeasures use IntersectionTypes/ControlTypes, road
// segment countermeasures use RoadClassifications.
type ApplicabilityRules struct {
	IntersectionTypes   []string             `json:"intersection_types,omitempty" yaml:"intersection_types"`
	ControlTypes        []string             `json:"control_types,omitempty" yaml:"control_types"`
	RoadClassifications []RoadClassification `json:"road_classifications,omitempty" yaml:"road_classifications"`
}

// Money is an amount in a currency
type Money struct {
	Amount   float64 `json:"amount" yaml:"amount"`
	Currency string  `json:"currency" yaml:"currency"`
}

// Countermeasure is a mitigation with a crash modification factor (CMF).
// A CMF below 1 reduces predicted crashes by (1 - CMF).
type Countermeasure struct {
	ID                     string               `json:"id" yaml:"id"`
	Name                   string               `json:"name" yaml:"name"`
	TargetType             TargetType           `json:"target_type" yaml:"target_type"`
	Rules                  ApplicabilityRules   `json:"applicability" yaml:"applicability"`
	AffectedCollisionTypes []CollisionType      `json:"affected_collision_types" yaml:"affected_collision_types"`
	AffectedSeverities     []Severity           `json:"affected_severities" yaml:"affected_severities"`
	CMF                    float64              `json:"cmf" yaml:"cmf"`
	Status                 CountermeasureStatus `json:"status" yaml:"status"`
	ImplementationCost     Money                `json:"implementation_cost" yaml:"implementation_cost"`
	ExpectedAnnualSavings  *Money               `json:"expected_annual_savings,omitempty" yaml:"expected_annual_savings"`
	Evidence               *string              `json:"evidence,omitempty" yaml:"evidence"`
}

// Clone returns a copy that shares no slices or pointers with c
func (c Countermeasure) Clone() Countermeasure {
	out := c
	out.Rules = ApplicabilityRules{
		IntersectionTypes:   slices.Clone(c.Rules.IntersectionTypes),
		ControlTypes:        slices.Clone(c.Rules.ControlTypes),
		RoadClassifications: slices.Clone(c.Rules.RoadClassifications),
	}
	out.AffectedCollisionTypes = slices.Clone(c.AffectedCollisionTypes)
	out.AffectedSeverities = slices.Clone(c.AffectedSeverities)
	if c.ExpectedAnnualSavings != nil {
		savings := *c.ExpectedAnnualSavings
		out.ExpectedAnnualSavings = &savings
	}
	if c.Evidence != nil {
		evidence := *c.Evidence
		out.Evidence = &evidence
	}
	return out
}

// Validate checks the target type, the rule shape and the CMF range
func (c Countermeasure) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidCountermeasure, c.ID)
	}
	if !c.TargetType.Valid() {
		return fmt.Errorf("%w: %s has unknown target type %q", ErrInvalidCountermeasure, c.ID, c.TargetType)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %s has unknown status %q", ErrInvalidCountermeasure, c.ID, c.Status)
	}
	if c.CMF <= 0 {
		return fmt.Errorf("%w: %s has non-positive cmf %.3f", ErrInvalidCountermeasure, c.ID, c.CMF)
	}
	switch c.TargetType {
	case TargetIntersection:
		if len(c.Rules.RoadClassifications) > 0 {
			return fmt.Errorf("%w: intersection countermeasure %s carries road classifications", ErrInvalidCountermeasure, c.ID)
		}
	case TargetRoadSegment:
		if len(c.Rules.IntersectionTypes) > 0 || len(c.Rules.ControlTypes) > 0 {
			return fmt.Errorf("%w: road segment countermeasure %s carries intersection rules", ErrInvalidCountermeasure, c.ID)
		}
	}
	if c.ImplementationCost.Amount < 0 {
		return fmt.Errorf("%w: %s has negative implementation cost", ErrInvalidCountermeasure, c.ID)
	}
	return nil
}

// Covers reports whether every requested collision type and severity is in
// the countermeasure's affected sets. Empty requests match unconditionally.
func (c Countermeasure) Covers(collisionTypes []CollisionType, severities []Severity) bool {
	if len(collisionTypes) > 0 {
		own := make(map[CollisionType]struct{}, len(c.AffectedCollisionTypes))
		for _, ct := range c.AffectedCollisionTypes {
			own[ct] = struct{}{}
		}
		for _, ct := range collisionTypes {
			if _, ok := own[ct]; !ok {
				return false
			}
		}
	}
	if len(severities) > 0 {
		own := make(map[Severity]struct{}, len(c.AffectedSeverities))
		for _, s := range c.AffectedSeverities {
			own[s] = struct{}{}
		}
		for _, s := range severities {
			if _, ok := own[s]; !ok {
				return false
			}
		}
	}
	return true
}
