package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/repository/postgres"
)

func TestHotspotService_Create(t *testing.T) {
	store := &hotspotStoreSpy{}
	dispatcher := &recordingDispatcher{}
	s := NewHotspotService(store, NewSequenceAllocator("hs"), dispatcher, nil, discardLogger())

	h := openHotspot("", domain.RoadSegment(4, 0), 1.5)
	h.Status = ""
	created, err := s.Create(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, "hs-1", created.ID)
	assert.Equal(t, domain.HotspotOpen, created.Status)
	assert.Equal(t, 1, store.saves)
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, created, dispatcher.events[0].Hotspot)
	assert.False(t, dispatcher.events[0].OccurredAt.IsZero())
}

func TestHotspotService_CreateSurvivesDispatchFailure(t *testing.T) {
	store := &hotspotStoreSpy{}
	dispatcher := &recordingDispatcher{err: errors.New("broker unavailable")}
	s := NewHotspotService(store, nil, dispatcher, nil, discardLogger())

	created, err := s.Create(context.Background(), openHotspot("h1", domain.Intersection(9), 2))
	require.NoError(t, err)
	assert.Equal(t, "h1", created.ID)
	assert.Len(t, store.items, 1)
	assert.Len(t, dispatcher.events, 1)
}

func TestHotspotService_CreateRejects(t *testing.T) {
	tests := []struct {
		name     string
		given    domain.Hotspot
		expected error
	}{
		{
			name:     "no location",
			given:    domain.Hotspot{ID: "h", Period: domain.Period{Start: day(1), End: day(2)}},
			expected: domain.ErrInvalidLocation,
		},
		{
			name:     "inverted period",
			given:    domain.Hotspot{ID: "h", Location: domain.Intersection(1), Period: domain.Period{Start: day(5), End: day(2)}},
			expected: domain.ErrInvalidPeriod,
		},
		{
			name: "negative expected",
			given: domain.Hotspot{
				ID: "h", Location: domain.Intersection(1), Period: domain.Period{Start: day(1), End: day(2)}, ExpectedCrashes: -1,
			},
			expected: domain.ErrInvalidHotspot,
		},
	}

	for _, test := range tests {
		store := &hotspotStoreSpy{}
		dispatcher := &recordingDispatcher{}
		s := NewHotspotService(store, nil, dispatcher, nil, discardLogger())

		_, err := s.Create(context.Background(), test.given)
		assert.ErrorIs(t, err, test.expected, test.name)
		assert.Zero(t, store.saves, test.name)
		assert.Empty(t, dispatcher.events, test.name)
	}
}

func TestHotspotService_CreateDuplicateDoesNotDispatch(t *testing.T) {
	store := postgres.NewMockHotspotRepository(openHotspot("h1", domain.RoadSegment(1, 0), 1))
	dispatcher := &recordingDispatcher{}
	s := NewHotspotService(store, nil, dispatcher, nil, discardLogger())

	_, err := s.Create(context.Background(), openHotspot("h1", domain.RoadSegment(2, 0), 1))
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	assert.Empty(t, dispatcher.events)
}

func TestHotspotService_UpdateMissingWritesNothing(t *testing.T) {
	store := &hotspotStoreSpy{}
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	_, err := s.Update(context.Background(), openHotspot("ghost", domain.Intersection(1), 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, store.updates)
	assert.Zero(t, store.saves)
}

func TestHotspotService_UpdateKeepsStatusAndScreening(t *testing.T) {
	original := openHotspot("h1", domain.Intersection(1), 1)
	original.Status = domain.HotspotReviewed
	original.Screening = &domain.ScreeningParams{Method: ScreeningMethod, Threshold: 10}
	store := &hotspotStoreSpy{items: []domain.Hotspot{original}}
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	changed := openHotspot("h1", domain.Intersection(1), 7.5)
	changed.Status = ""
	updated, err := s.Update(context.Background(), changed)
	require.NoError(t, err)

	assert.Equal(t, 7.5, updated.RiskScore)
	assert.Equal(t, domain.HotspotReviewed, updated.Status)
	assert.Equal(t, original.Screening, updated.Screening)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, updated, store.items[0])
}

func TestHotspotService_Delete(t *testing.T) {
	store := postgres.NewMockHotspotRepository(openHotspot("h1", domain.Intersection(1), 1))
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	require.NoError(t, s.Delete(context.Background(), "h1"))
	assert.ErrorIs(t, s.Delete(context.Background(), "h1"), domain.ErrNotFound)

	_, err := s.FindByID(context.Background(), "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHotspotService_SearchSortsByRisk(t *testing.T) {
	store := &hotspotStoreSpy{items: []domain.Hotspot{
		openHotspot("low", domain.RoadSegment(1, 0), 0.5),
		openHotspot("high", domain.RoadSegment(2, 0), 4),
		openHotspot("mid-a", domain.RoadSegment(3, 0), 2),
		openHotspot("mid-b", domain.RoadSegment(4, 0), 2),
	}}
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	got, err := s.Search(context.Background(), domain.HotspotFilter{})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, h := range got {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, ids)
}

func TestHotspotService_SearchFilters(t *testing.T) {
	late := openHotspot("late", domain.Intersection(2), 3)
	late.Period = domain.Period{Start: day(20), End: day(30)}
	reviewed := openHotspot("reviewed", domain.Intersection(3), 5)
	reviewed.Status = domain.HotspotReviewed
	store := postgres.NewMockHotspotRepository(
		openHotspot("a", domain.RoadSegment(2, 0), 1),
		late,
		reviewed,
	)
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	intersection := int64(2)
	open := domain.HotspotOpen
	minRisk := 2.0
	early := domain.Period{Start: day(1), End: day(10)}

	tests := []struct {
		name     string
		given    domain.HotspotFilter
		expected []string
	}{
		{name: "all", given: domain.HotspotFilter{}, expected: []string{"reviewed", "late", "a"}},
		{name: "intersection id", given: domain.HotspotFilter{IntersectionID: &intersection}, expected: []string{"late"}},
		{name: "status", given: domain.HotspotFilter{Status: &open}, expected: []string{"late", "a"}},
		{name: "min risk", given: domain.HotspotFilter{MinRisk: &minRisk}, expected: []string{"reviewed", "late"}},
		{name: "period overlap", given: domain.HotspotFilter{Period: &early}, expected: []string{"reviewed", "a"}},
		{name: "conjunction", given: domain.HotspotFilter{Status: &open, MinRisk: &minRisk}, expected: []string{"late"}},
	}

	for _, test := range tests {
		got, err := s.Search(context.Background(), test.given)
		require.NoError(t, err, test.name)

		ids := make([]string, 0, len(got))
		for _, h := range got {
			ids = append(ids, h.ID)
		}
		assert.Equal(t, test.expected, ids, test.name)
	}
}

func TestHotspotService_SearchEmpty(t *testing.T) {
	s := NewHotspotService(&hotspotStoreSpy{}, nil, nil, nil, discardLogger())

	got, err := s.Search(context.Background(), domain.HotspotFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHotspotService_SearchRejectsInvertedPeriod(t *testing.T) {
	store := &hotspotStoreSpy{}
	s := NewHotspotService(store, nil, nil, nil, discardLogger())

	inverted := domain.Period{Start: day(10), End: day(1)}
	_, err := s.Search(context.Background(), domain.HotspotFilter{Period: &inverted})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
	assert.Empty(t, store.searched)
}
