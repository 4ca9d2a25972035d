package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsafety/backend/internal/domain"
)

// HotspotRepository implements domain.HotspotStore
type HotspotRepository struct {
	pool *pgxpool.Pool
}

const hotspotColumns = `
	id, road_segment_id, intersection_id, period_start, period_end,
	observed_pdo, observed_injury, expected_crashes, risk_score, status,
	screening_method, screening_threshold, screening_generated_at
`

func scanHotspot(row pgx.Row) (domain.Hotspot, error) {
	var (
		h                             domain.Hotspot
		roadSegmentID, intersectionID *int64
		status                        string
		method                        *string
		threshold                     *float64
		generatedAt                   *time.Time
	)
	err := row.Scan(
		&h.ID, &roadSegmentID, &intersectionID, &h.Period.Start, &h.Period.End,
		&h.Observed.PropertyDamageOnly, &h.Observed.Injury, &h.ExpectedCrashes, &h.RiskScore, &status,
		&method, &threshold, &generatedAt,
	)
	if err != nil {
		return domain.Hotspot{}, err
	}

	loc, err := domain.LocationFromColumns(roadSegmentID, intersectionID, nil)
	if err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspot %s: %w", h.ID, err)
	}
	h.Location = loc
	h.Status = domain.HotspotStatus(status)

	if method != nil || threshold != nil || generatedAt != nil {
		h.Screening = &domain.ScreeningParams{}
		if method != nil {
			h.Screening.Method = *method
		}
		if threshold != nil {
			h.Screening.Threshold = *threshold
		}
		if generatedAt != nil {
			h.Screening.GeneratedAt = *generatedAt
		}
	}
	return h, nil
}

func screeningColumns(p *domain.ScreeningParams) (method *string, threshold *float64, generatedAt *time.Time) {
	if p == nil {
		return nil, nil, nil
	}
	if p.Method != "" {
		method = &p.Method
	}
	threshold = &p.Threshold
	if !p.GeneratedAt.IsZero() {
		generatedAt = &p.GeneratedAt
	}
	return method, threshold, generatedAt
}

func (r *HotspotRepository) query(ctx context.Context, query string, args ...any) ([]domain.Hotspot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query hotspots: %w", err)
	}
	defer rows.Close()

	var results []domain.Hotspot
	for rows.Next() {
		h, err := scanHotspot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan hotspot row: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read hotspots: %w", err)
	}
	return results, nil
}

// All retrieves every hotspot
func (r *HotspotRepository) All(ctx context.Context) ([]domain.Hotspot, error) {
	return r.query(ctx, `SELECT `+hotspotColumns+` FROM hotspots`)
}

// FindByID retrieves one hotspot
func (r *HotspotRepository) FindByID(ctx context.Context, id string) (domain.Hotspot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+hotspotColumns+` FROM hotspots WHERE id = $1`, id)
	h, err := scanHotspot(row)
	if err != nil {
		return domain.Hotspot{}, fmt.Errorf("postgres: failed to find hotspot %s: %w", id, mapError(err))
	}
	return h, nil
}

// Save inserts a hotspot
func (r *HotspotRepository) Save(ctx context.Context, h domain.Hotspot) error {
	query := `
		INSERT INTO hotspots (` + hotspotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	roadSegmentID, intersectionID := h.Location.Columns()
	method, threshold, generatedAt := screeningColumns(h.Screening)

	_, err := r.pool.Exec(ctx, query,
		h.ID, roadSegmentID, intersectionID, h.Period.Start, h.Period.End,
		h.Observed.PropertyDamageOnly, h.Observed.Injury, h.ExpectedCrashes, h.RiskScore, string(h.Status),
		method, threshold, generatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save hotspot: %w", mapError(err))
	}
	return nil
}

// Update replaces a hotspot row
func (r *HotspotRepository) Update(ctx context.Context, h domain.Hotspot) error {
	query := `
		UPDATE hotspots SET
			road_segment_id = $2, intersection_id = $3, period_start = $4, period_end = $5,
			observed_pdo = $6, observed_injury = $7, expected_crashes = $8, risk_score = $9,
			status = $10, screening_method = $11, screening_threshold = $12, screening_generated_at = $13
		WHERE id = $1
	`

	roadSegmentID, intersectionID := h.Location.Columns()
	method, threshold, generatedAt := screeningColumns(h.Screening)

	tag, err := r.pool.Exec(ctx, query,
		h.ID, roadSegmentID, intersectionID, h.Period.Start, h.Period.End,
		h.Observed.PropertyDamageOnly, h.Observed.Injury, h.ExpectedCrashes, h.RiskScore,
		string(h.Status), method, threshold, generatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update hotspot: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: failed to update hotspot %s: %w", h.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a hotspot row
func (r *HotspotRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hotspots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete hotspot: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: failed to delete hotspot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Search retrieves hotspots matching the filter
func (r *HotspotRepository) Search(ctx context.Context, f domain.HotspotFilter) ([]domain.Hotspot, error) {
	where, args := hotspotWhere(f)
	return r.query(ctx, `SELECT `+hotspotColumns+` FROM hotspots`+where+` ORDER BY risk_score DESC`, args...)
}

// hotspotWhere renders the filter as a WHERE clause with positional args.
// Period matches on overlap: start <= query.end AND end >= query.start.
func hotspotWhere(f domain.HotspotFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Period != nil {
		add("period_start <= $%d", f.Period.End)
		add("period_end >= $%d", f.Period.Start)
	}
	if f.RoadSegmentID != nil {
		add("road_segment_id = $%d", *f.RoadSegmentID)
	}
	if f.IntersectionID != nil {
		add("intersection_id = $%d", *f.IntersectionID)
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.MinRisk != nil {
		add("risk_score >= $%d", *f.MinRisk)
	}
	if f.MaxRisk != nil {
		add("risk_score <= $%d", *f.MaxRisk)
	}
	if f.MinExpected != nil {
		add("expected_crashes >= $%d", *f.MinExpected)
	}
	if f.MaxExpected != nil {
		add("expected_crashes <= $%d", *f.MaxExpected)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
