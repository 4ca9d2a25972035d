package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsafety/backend/internal/domain"
)

// uniqueViolation is the SQLSTATE raised on primary key and unique index conflicts.
// hotspots carries partial unique indexes on road_segment_id / intersection_id
// WHERE status = 'open', so a second open hotspot at a location also lands here.
const uniqueViolation = "23505"

// PostgresRepository groups the pgx-backed stores sharing one pool
type PostgresRepository struct {
	pool *pgxpool.Pool

	Accidents       *AccidentRepository
	Hotspots        *HotspotRepository
	Countermeasures *CountermeasureRepository
	Projects        *ProjectRepository
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool:            pool,
		Accidents:       &AccidentRepository{pool: pool},
		Hotspots:        &HotspotRepository{pool: pool},
		Countermeasures: &CountermeasureRepository{pool: pool},
		Projects:        &ProjectRepository{pool: pool},
	}
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// RoadClassifications loads the classification of every road segment
func (r *PostgresRepository) RoadClassifications(ctx context.Context) (map[int64]domain.RoadClassification, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, classification FROM road_segments WHERE classification IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query road segments: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.RoadClassification)
	for rows.Next() {
		var (
			id int64
			rc string
		)
		if err := rows.Scan(&id, &rc); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan road segment row: %w", err)
		}
		out[id] = domain.RoadClassification(rc)
	}
	return out, rows.Err()
}

// mapError translates driver errors into domain errors
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentifier, pgErr.ConstraintName)
	}
	return err
}

func optional[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}

func nullable[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func fromStrings[T ~string](in []string) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}
