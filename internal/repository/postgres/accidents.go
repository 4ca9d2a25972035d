package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsafety/backend/internal/domain"
)

// AccidentRepository implements domain.AccidentProvider
type AccidentRepository struct {
	pool *pgxpool.Pool
}

// All retrieves every accident. Rows without a usable location are returned
// with an empty Location so screening skips them.
func (r *AccidentRepository) All(ctx context.Context) ([]domain.Accident, error) {
	query := `
		SELECT id, occurred_at, road_segment_id, distance_from_start, intersection_id,
			   cost, severity, collision_type, cause_factor, weather_condition,
			   road_condition, visibility_condition, injured_persons
		FROM accidents
		ORDER BY occurred_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query accidents: %w", err)
	}
	defer rows.Close()

	var results []domain.Accident
	for rows.Next() {
		var (
			a                                            domain.Accident
			roadSegmentID, intersectionID                *int64
			distance                                     *float64
			severity, collision, cause, weather, surface *string
			visibility                                   *string
		)
		err := rows.Scan(
			&a.ID, &a.OccurredAt, &roadSegmentID, &distance, &intersectionID,
			&a.Cost, &severity, &collision, &cause, &weather,
			&surface, &visibility, &a.InjuredPersons,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan accident row: %w", err)
		}

		if loc, err := domain.LocationFromColumns(roadSegmentID, intersectionID, distance); err == nil {
			a.Location = loc
		}
		a.Severity = optional[domain.Severity](severity)
		a.CollisionType = optional[domain.CollisionType](collision)
		a.CauseFactor = optional[domain.CauseFactor](cause)
		a.WeatherCondition = optional[domain.WeatherCondition](weather)
		a.RoadCondition = optional[domain.RoadCondition](surface)
		a.VisibilityCondition = optional[domain.VisibilityCondition](visibility)

		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read accidents: %w", err)
	}

	return results, nil
}

// Save persists an accident
func (r *AccidentRepository) Save(ctx context.Context, a domain.Accident) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	query := `
		INSERT INTO accidents (
			id, occurred_at, road_segment_id, distance_from_start, intersection_id,
			cost, severity, collision_type, cause_factor, weather_condition,
			road_condition, visibility_condition, injured_persons
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	roadSegmentID, intersectionID := a.Location.Columns()
	var distance *float64
	if roadSegmentID != nil {
		distance = &a.Location.DistanceFromStart
	}

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.OccurredAt, roadSegmentID, distance, intersectionID,
		a.Cost, nullable(a.Severity), nullable(a.CollisionType), nullable(a.CauseFactor), nullable(a.WeatherCondition),
		nullable(a.RoadCondition), nullable(a.VisibilityCondition), a.InjuredPersons,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save accident: %w", mapError(err))
	}

	return nil
}
