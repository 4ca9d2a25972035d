package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsafety/backend/internal/domain"
)

// CountermeasureRepository implements domain.CountermeasureStore
type CountermeasureRepository struct {
	pool *pgxpool.Pool
}

const countermeasureColumns = `
	id, name, target_type, intersection_types, control_types, road_classifications,
	affected_collision_types, affected_severities, cmf, status,
	cost_amount, cost_currency, savings_amount, savings_currency, evidence
`

func scanCountermeasure(row pgx.Row) (domain.Countermeasure, error) {
	var (
		c                                 domain.Countermeasure
		target, status                    string
		roadClasses, collisions, severity []string
		savingsAmount                     *float64
		savingsCurrency                   *string
	)
	err := row.Scan(
		&c.ID, &c.Name, &target, &c.Rules.IntersectionTypes, &c.Rules.ControlTypes, &roadClasses,
		&collisions, &severity, &c.CMF, &status,
		&c.ImplementationCost.Amount, &c.ImplementationCost.Currency, &savingsAmount, &savingsCurrency, &c.Evidence,
	)
	if err != nil {
		return domain.Countermeasure{}, err
	}

	c.TargetType = domain.TargetType(target)
	c.Status = domain.CountermeasureStatus(status)
	c.Rules.RoadClassifications = fromStrings[domain.RoadClassification](roadClasses)
	c.AffectedCollisionTypes = fromStrings[domain.CollisionType](collisions)
	c.AffectedSeverities = fromStrings[domain.Severity](severity)
	if savingsAmount != nil {
		c.ExpectedAnnualSavings = &domain.Money{Amount: *savingsAmount}
		if savingsCurrency != nil {
			c.ExpectedAnnualSavings.Currency = *savingsCurrency
		}
	}
	return c, nil
}

// FindByCriteria retrieves countermeasures for a target type in the given
// statuses, most effective (lowest CMF) first
func (r *CountermeasureRepository) FindByCriteria(ctx context.Context, target domain.TargetType, statuses []domain.CountermeasureStatus) ([]domain.Countermeasure, error) {
	query := `
		SELECT ` + countermeasureColumns + `
		FROM countermeasures
		WHERE target_type = $1 AND status = ANY($2)
		ORDER BY cmf ASC
	`

	rows, err := r.pool.Query(ctx, query, string(target), toStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query countermeasures: %w", err)
	}
	defer rows.Close()

	var results []domain.Countermeasure
	for rows.Next() {
		c, err := scanCountermeasure(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan countermeasure row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read countermeasures: %w", err)
	}
	return results, nil
}

// FindByID retrieves one countermeasure
func (r *CountermeasureRepository) FindByID(ctx context.Context, id string) (domain.Countermeasure, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+countermeasureColumns+` FROM countermeasures WHERE id = $1`, id)
	c, err := scanCountermeasure(row)
	if err != nil {
		return domain.Countermeasure{}, fmt.Errorf("postgres: failed to find countermeasure %s: %w", id, mapError(err))
	}
	return c, nil
}

// Save upserts a countermeasure
func (r *CountermeasureRepository) Save(ctx context.Context, c domain.Countermeasure) error {
	query := `
		INSERT INTO countermeasures (` + countermeasureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, target_type = EXCLUDED.target_type,
			intersection_types = EXCLUDED.intersection_types, control_types = EXCLUDED.control_types,
			road_classifications = EXCLUDED.road_classifications,
			affected_collision_types = EXCLUDED.affected_collision_types,
			affected_severities = EXCLUDED.affected_severities, cmf = EXCLUDED.cmf, status = EXCLUDED.status,
			cost_amount = EXCLUDED.cost_amount, cost_currency = EXCLUDED.cost_currency,
			savings_amount = EXCLUDED.savings_amount, savings_currency = EXCLUDED.savings_currency,
			evidence = EXCLUDED.evidence
	`

	var (
		savingsAmount   *float64
		savingsCurrency *string
	)
	if c.ExpectedAnnualSavings != nil {
		savingsAmount = &c.ExpectedAnnualSavings.Amount
		savingsCurrency = &c.ExpectedAnnualSavings.Currency
	}

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, string(c.TargetType), nonNil(c.Rules.IntersectionTypes), nonNil(c.Rules.ControlTypes), toStrings(c.Rules.RoadClassifications),
		toStrings(c.AffectedCollisionTypes), toStrings(c.AffectedSeverities), c.CMF, string(c.Status),
		c.ImplementationCost.Amount, c.ImplementationCost.Currency, savingsAmount, savingsCurrency, c.Evidence,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save countermeasure: %w", mapError(err))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
