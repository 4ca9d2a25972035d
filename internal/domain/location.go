package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// LocationKind tags which variant of Location is set
type LocationKind string

const (
	LocationRoadSegment  LocationKind = "road_segment"
	LocationIntersection LocationKind = "intersection"
)

// Valid reports whether k names a known location variant
func (k LocationKind) Valid() bool {
	switch k {
	case LocationRoadSegment, LocationIntersection:
		return true
	default:
		return false
	}
}

// ParseLocationKind converts a wire value into a LocationKind
func ParseLocationKind(s string) (LocationKind, error) {
	k := LocationKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown location type %q", ErrInvalidLocation, s)
	}
	return k, nil
}

// Location is either a road segment (with a distance from the segment start)
// or an intersection. Exactly one variant is set through Kind.
type Location struct {
	Kind              LocationKind `json:"type"`
	ID                int64        `json:"id"`
	DistanceFromStart float64      `json:"distance_from_start,omitempty"`
}

// RoadSegment builds a road-segment location
func RoadSegment(id int64, distanceFromStart float64) Location {
	return Location{Kind: LocationRoadSegment, ID: id, DistanceFromStart: distanceFromStart}
}

// Intersection builds an intersection location
func Intersection(id int64) Location {
	return Location{Kind: LocationIntersection, ID: id}
}

// Validate returns ErrInvalidLocation when no variant is set or the id is
// not positive
func (l Location) Validate() error {
	if !l.Kind.Valid() {
		return fmt.Errorf("%w: location has neither road segment nor intersection", ErrInvalidLocation)
	}
	if l.ID <= 0 {
		return fmt.Errorf("%w: %s id must be positive, got %d", ErrInvalidLocation, l.Kind, l.ID)
	}
	if l.Kind == LocationIntersection && l.DistanceFromStart != 0 {
		return fmt.Errorf("%w: intersection location cannot carry a distance", ErrInvalidLocation)
	}
	return nil
}

// Key returns the location id when the location is of the requested kind
func (l Location) Key(kind LocationKind) (int64, bool) {
	if l.Kind != kind {
		return 0, false
	}
	return l.ID, true
}

// Columns splits the location into the nullable road_segment_id / intersection_id pair
func (l Location) Columns() (roadSegmentID, intersectionID *int64) {
	id := l.ID
	switch l.Kind {
	case LocationRoadSegment:
		return &id, nil
	case LocationIntersection:
		return nil, &id
	default:
		return nil, nil
	}
}

// LocationFromColumns is the inverse of Columns
func LocationFromColumns(roadSegmentID, intersectionID *int64, distance *float64) (Location, error) {
	switch {
	case roadSegmentID != nil && intersectionID != nil:
		return Location{}, fmt.Errorf("%w: both road segment %d and intersection %d set", ErrInvalidLocation, *roadSegmentID, *intersectionID)
	case roadSegmentID != nil:
		var d float64
		if distance != nil {
			d = *distance
		}
		return RoadSegment(*roadSegmentID, d), nil
	case intersectionID != nil:
		return Intersection(*intersectionID), nil
	default:
		return Location{}, fmt.Errorf("%w: no location reference", ErrInvalidLocation)
	}
}

// String renders the wire format: road_segment:<id>[@<distance>] or intersection:<id>
func (l Location) String() string {
	switch l.Kind {
	case LocationRoadSegment:
		if l.DistanceFromStart != 0 {
			return fmt.Sprintf("%s:%d@%s", l.Kind, l.ID, strconv.FormatFloat(l.DistanceFromStart, 'f', -1, 64))
		}
		return fmt.Sprintf("%s:%d", l.Kind, l.ID)
	case LocationIntersection:
		return fmt.Sprintf("%s:%d", l.Kind, l.ID)
	default:
		return "unknown"
	}
}

// ParseLocation parses the wire format produced by String
func ParseLocation(s string) (Location, error) {
	kindPart, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Location{}, fmt.Errorf("%w: malformed location %q", ErrInvalidLocation, s)
	}
	kind, err := ParseLocationKind(kindPart)
	if err != nil {
		return Location{}, err
	}

	idPart, distPart, hasDist := strings.Cut(rest, "@")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return Location{}, fmt.Errorf("%w: bad id in %q", ErrInvalidLocation, s)
	}

	if kind == LocationIntersection {
		if hasDist {
			return Location{}, fmt.Errorf("%w: intersection %q cannot carry a distance", ErrInvalidLocation, s)
		}
		return Intersection(id), nil
	}

	var dist float64
	if hasDist {
		dist, err = strconv.ParseFloat(distPart, 64)
		if err != nil || dist < 0 {
			return Location{}, fmt.Errorf("%w: bad distance in %q", ErrInvalidLocation, s)
		}
	}
	return RoadSegment(id, dist), nil
}
