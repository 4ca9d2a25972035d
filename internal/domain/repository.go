package domain

import (
	"context"
)

// AccidentProvider gives read-only access to the full accident collection
type AccidentProvider interface {
	// All returns every persisted accident
	All(ctx context.Context) ([]Accident, error)
}

// HotspotStore defines hotspot persistence.
// This follows the Dependency Inversion Principle - domain defines the interface
type HotspotStore interface {
	All(ctx context.Context) ([]Hotspot, error)

	// FindByID returns ErrNotFound when no hotspot has the id
	FindByID(ctx context.Context, id string) (Hotspot, error)

	// Save returns ErrDuplicateIdentifier when the id, or an open hotspot at
	// the same location, already exists
	Save(ctx context.Context, h Hotspot) error

	Update(ctx context.Context, h Hotspot) error

	// Delete returns ErrNotFound when no hotspot has the id
	Delete(ctx context.Context, id string) error

	// Search applies the filter; ordering is not guaranteed
	Search(ctx context.Context, f HotspotFilter) ([]Hotspot, error)
}

// CountermeasureStore defines countermeasure persistence
type CountermeasureStore interface {
	FindByCriteria(ctx context.Context, target TargetType, statuses []CountermeasureStatus) ([]Countermeasure, error)
	FindByID(ctx context.Context, id string) (Countermeasure, error)
	Save(ctx context.Context, c Countermeasure) error
}

// ProjectStore defines remediation project persistence
type ProjectStore interface {
	FindByID(ctx context.Context, id string) (Project, error)
	Save(ctx context.Context, p Project) error
	Update(ctx context.Context, p Project) error
}

// HealthChecker checks backing store connectivity
type HealthChecker interface {
	Health(ctx context.Context) error
}
