package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsafety/backend/internal/domain"
)

// ProjectRepository implements domain.ProjectStore
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// FindByID retrieves one project
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (domain.Project, error) {
	query := `
		SELECT id, hotspot_id, countermeasure_id, period_start, period_end,
			   expected_amount, expected_currency, actual_amount, actual_currency, status
		FROM projects
		WHERE id = $1
	`

	var (
		p              domain.Project
		actualAmount   *float64
		actualCurrency *string
		status         string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.HotspotID, &p.CountermeasureID, &p.Period.Start, &p.Period.End,
		&p.ExpectedCost.Amount, &p.ExpectedCost.Currency, &actualAmount, &actualCurrency, &status,
	)
	if err != nil {
		return domain.Project{}, fmt.Errorf("postgres: failed to find project %s: %w", id, mapError(err))
	}

	p.Status = domain.ProjectStatus(status)
	if actualAmount != nil {
		p.ActualCost = &domain.Money{Amount: *actualAmount}
		if actualCurrency != nil {
			p.ActualCost.Currency = *actualCurrency
		}
	}
	return p, nil
}

// Save inserts a project
func (r *ProjectRepository) Save(ctx context.Context, p domain.Project) error {
	query := `
		INSERT INTO projects (
			id, hotspot_id, countermeasure_id, period_start, period_end,
			expected_amount, expected_currency, actual_amount, actual_currency, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	amount, currency := moneyColumns(p.ActualCost)
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.HotspotID, p.CountermeasureID, p.Period.Start, p.Period.End,
		p.ExpectedCost.Amount, p.ExpectedCost.Currency, amount, currency, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save project: %w", mapError(err))
	}
	return nil
}

// Update writes the status and actual cost of a project
func (r *ProjectRepository) Update(ctx context.Context, p domain.Project) error {
	amount, currency := moneyColumns(p.ActualCost)
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET status = $2, actual_amount = $3, actual_currency = $4 WHERE id = $1`,
		p.ID, string(p.Status), amount, currency,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update project: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: failed to update project %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

func moneyColumns(m *domain.Money) (*float64, *string) {
	if m == nil {
		return nil, nil
	}
	return &m.Amount, &m.Currency
}
