package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsafety/backend/internal/domain"
)

func TestHotspotWhere(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0)
	road := int64(12)
	open := domain.HotspotOpen
	minRisk, maxExpected := 1.5, 4.0

	tests := []struct {
		name      string
		given     domain.HotspotFilter
		expected  string
		expectArg []any
	}{
		{
			name:     "empty filter",
			given:    domain.HotspotFilter{},
			expected: "",
		},
		{
			name:      "period overlap",
			given:     domain.HotspotFilter{Period: &domain.Period{Start: start, End: end}},
			expected:  " WHERE period_start <= $1 AND period_end >= $2",
			expectArg: []any{end, start},
		},
		{
			name:      "conjunction",
			given:     domain.HotspotFilter{RoadSegmentID: &road, Status: &open, MinRisk: &minRisk, MaxExpected: &maxExpected},
			expected:  " WHERE road_segment_id = $1 AND status = $2 AND risk_score >= $3 AND expected_crashes <= $4",
			expectArg: []any{road, "open", minRisk, maxExpected},
		},
	}

	for _, test := range tests {
		where, args := hotspotWhere(test.given)
		assert.Equal(t, test.expected, where, test.name)
		assert.Equal(t, test.expectArg, args, test.name)
	}
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)

	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "hotspots_one_open_per_location"}
	err := mapError(dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	assert.Contains(t, err.Error(), "hotspots_one_open_per_location")

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}

func TestStringConversions(t *testing.T) {
	assert.Nil(t, optional[domain.Severity](nil))
	s := "fatal"
	assert.Equal(t, domain.SeverityFatal, *optional[domain.Severity](&s))
	assert.Nil(t, nullable[domain.Severity](nil))

	classes := []domain.RoadClassification{domain.RoadLocal, domain.RoadMotorway}
	assert.Equal(t, classes, fromStrings[domain.RoadClassification](toStrings(classes)))
	assert.Equal(t, []string{}, nonNil(nil))
}

func TestMockHotspotRepository(t *testing.T) {
	ctx := context.Background()
	period := domain.Period{Start: time.Now().Add(-time.Hour), End: time.Now()}
	h := domain.Hotspot{ID: "h1", Location: domain.Intersection(3), Period: period, Status: domain.HotspotOpen}
	repo := NewMockHotspotRepository(h)

	second := h
	second.ID = "h2"
	assert.ErrorIs(t, repo.Save(ctx, second), domain.ErrDuplicateIdentifier)
	assert.ErrorIs(t, repo.Save(ctx, h), domain.ErrDuplicateIdentifier)

	// a closed hotspot may share the location
	second.Status = domain.HotspotAddressed
	require.NoError(t, repo.Save(ctx, second))

	// same id on the other kind is a different location
	third := h
	third.ID = "h3"
	third.Location = domain.RoadSegment(3, 0)
	require.NoError(t, repo.Save(ctx, third))

	ghost := h
	ghost.ID = "ghost"
	assert.ErrorIs(t, repo.Update(ctx, ghost), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "ghost"), domain.ErrNotFound)

	intersection := int64(3)
	found, err := repo.Search(ctx, domain.HotspotFilter{IntersectionID: &intersection})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestMockAccidentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMockAccidentRepository()
	a := domain.Accident{ID: "a1", Location: domain.RoadSegment(1, 5), Cost: 100, OccurredAt: time.Now()}

	require.NoError(t, repo.Save(ctx, a))
	assert.ErrorIs(t, repo.Save(ctx, a), domain.ErrDuplicateIdentifier)
	assert.ErrorIs(t, repo.Save(ctx, domain.Accident{ID: "a2"}), domain.ErrInvalidLocation)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Accident{a}, all)
}

func TestMockCountermeasureRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMockCountermeasureRepository(
		domain.Countermeasure{ID: "a", TargetType: domain.TargetIntersection, Status: domain.CountermeasureApproved},
		domain.Countermeasure{ID: "b", TargetType: domain.TargetRoadSegment, Status: domain.CountermeasureApproved},
		domain.Countermeasure{ID: "c", TargetType: domain.TargetIntersection, Status: domain.CountermeasureRejected},
	)

	found, err := repo.FindByCriteria(ctx, domain.TargetIntersection, []domain.CountermeasureStatus{domain.CountermeasureApproved})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)

	require.NoError(t, repo.Save(ctx, domain.Countermeasure{ID: "c", TargetType: domain.TargetIntersection, Status: domain.CountermeasureApproved}))
	found, err = repo.FindByCriteria(ctx, domain.TargetIntersection, []domain.CountermeasureStatus{domain.CountermeasureApproved})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = repo.FindByID(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
