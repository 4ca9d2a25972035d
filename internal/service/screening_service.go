package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/metrics"
	"github.com/roadsafety/backend/pkg/utils"
)

// ScreeningMethod is recorded on hotspots promoted from screening candidates
const ScreeningMethod = "cost-threshold"

// Candidate is a location whose aggregate accident cost exceeds the threshold
type Candidate struct {
	LocationID    int64   `json:"location_id"`
	Score         float64 `json:"score"`
	AccidentCount int     `json:"accident_count"`
}

// SafetyPerformance supplies the expected crash baseline for a location
type SafetyPerformance interface {
	ExpectedCrashes(ctx context.Context, loc domain.Location, period domain.Period) (float64, error)
}

// ScreeningService turns the accident history into ranked hotspot candidates
type ScreeningService struct {
	accidents AccidentProvider
	hotspots  HotspotStore
	costs     CostModel
	spf       SafetyPerformance
	lifecycle *HotspotService
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewScreeningService creates a new screening service
func NewScreeningService(
	accidents AccidentProvider,
	hotspots HotspotStore,
	costs CostModel,
	spf SafetyPerformance,
	lifecycle *HotspotService,
	m *metrics.Metrics,
	log *slog.Logger,
) *ScreeningService {
	return &ScreeningService{
		accidents: accidents,
		hotspots:  hotspots,
		costs:     costs,
		spf:       spf,
		lifecycle: lifecycle,
		metrics:   m,
		log:       componentLogger(log, "screening"),
		now:       time.Now,
	}
}

type locationGroup struct {
	id        int64
	accidents []domain.Accident
}

// existingLocations partitions hotspot locations by kind
type existingLocations struct {
	roadSegments  map[int64]struct{}
	intersections map[int64]struct{}
}

func partitionHotspots(hotspots []domain.Hotspot) existingLocations {
	p := existingLocations{
		roadSegments:  make(map[int64]struct{}),
		intersections: make(map[int64]struct{}),
	}
	for _, h := range hotspots {
		switch h.Location.Kind {
		case domain.LocationRoadSegment:
			p.roadSegments[h.Location.ID] = struct{}{}
		case domain.LocationIntersection:
			p.intersections[h.Location.ID] = struct{}{}
		}
	}
	return p
}

func (p existingLocations) has(kind domain.LocationKind, id int64) bool {
	switch kind {
	case domain.LocationRoadSegment:
		_, ok := p.roadSegments[id]
		return ok
	case domain.LocationIntersection:
		_, ok := p.intersections[id]
		return ok
	default:
		return false
	}
}

// groupByLocation keeps accidents of the requested kind inside period and
// groups them by location id in first-seen order
func groupByLocation(accidents []domain.Accident, kind domain.LocationKind, period *domain.Period) []locationGroup {
	index := make(map[int64]int)
	var groups []locationGroup

	for _, a := range accidents {
		id, ok := a.Location.Key(kind)
		if !ok {
			continue
		}
		if period != nil && !period.Contains(a.OccurredAt) {
			continue
		}
		i, seen := index[id]
		if !seen {
			i = len(groups)
			index[id] = i
			groups = append(groups, locationGroup{id: id})
		}
		groups[i].accidents = append(groups[i].accidents, a)
	}
	return groups
}

func (s *ScreeningService) load(ctx context.Context) ([]domain.Accident, []domain.Hotspot, error) {
	var (
		accidents []domain.Accident
		hotspots  []domain.Hotspot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.accidents.All(gctx)
		if err != nil {
			return fmt.Errorf("screening: failed to load accidents: %w", err)
		}
		accidents = a
		return nil
	})
	g.Go(func() error {
		h, err := s.hotspots.All(gctx)
		if err != nil {
			return fmt.Errorf("screening: failed to load hotspots: %w", err)
		}
		hotspots = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return accidents, hotspots, nil
}

// Screen returns locations of the given kind whose summed accident cost is
// strictly above threshold, excluding locations that already have a hotspot,
// ordered by score descending. Equal scores keep first-seen order.
// Nothing is persisted.
func (s *ScreeningService) Screen(ctx context.Context, kind domain.LocationKind, threshold float64, period *domain.Period) ([]Candidate, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("screening: %w: unknown location type %q", domain.ErrInvalidLocation, kind)
	}
	if period != nil {
		if err := period.Validate(); err != nil {
			return nil, fmt.Errorf("screening: %w", err)
		}
	}
	started := time.Now()

	accidents, hotspots, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	existing := partitionHotspots(hotspots)
	candidates := make([]Candidate, 0)
	for _, g := range groupByLocation(accidents, kind, period) {
		if existing.has(kind, g.id) {
			continue
		}

		var score float64
		for _, a := range g.accidents {
			score += s.costs.Estimate(a)
		}
		if score > threshold {
			candidates = append(candidates, Candidate{
				LocationID:    g.id,
				Score:         score,
				AccidentCount: len(g.accidents),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	s.metrics.ObserveScreening(string(kind), time.Since(started), len(candidates))
	s.log.Info("screening finished",
		slog.String("location_type", string(kind)),
		slog.Float64("threshold", threshold),
		slog.Int("accidents", len(accidents)),
		slog.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Promote persists a hotspot for a screening candidate. The candidate is
// re-screened against the stored accidents: the location must have accidents
// in period whose summed cost is strictly above threshold, and no hotspot
// there may exist except an open one, which is returned instead.
// Observed crashes are recounted over period and the risk score is
// observed/expected.
func (s *ScreeningService) Promote(ctx context.Context, kind domain.LocationKind, c Candidate, period domain.Period, threshold float64) (domain.Hotspot, error) {
	if err := period.Validate(); err != nil {
		return domain.Hotspot{}, fmt.Errorf("screening: %w", err)
	}

	var loc domain.Location
	switch kind {
	case domain.LocationRoadSegment:
		loc = domain.RoadSegment(c.LocationID, 0)
	case domain.LocationIntersection:
		loc = domain.Intersection(c.LocationID)
	default:
		return domain.Hotspot{}, fmt.Errorf("screening: %w: unknown location type %q", domain.ErrInvalidLocation, kind)
	}
	if err := loc.Validate(); err != nil {
		return domain.Hotspot{}, fmt.Errorf("screening: %w", err)
	}

	accidents, hotspots, err := s.load(ctx)
	if err != nil {
		return domain.Hotspot{}, err
	}

	if existing, ok := hotspotAt(hotspots, kind, c.LocationID); ok {
		if existing.Status != domain.HotspotOpen {
			return domain.Hotspot{}, fmt.Errorf("screening: %w: %s already has a %s hotspot %s",
				domain.ErrDuplicateIdentifier, loc, existing.Status, existing.ID)
		}
		s.log.Info("hotspot already open, reusing", slog.String("location", loc.String()), slog.String("hotspot_id", existing.ID))
		return existing, nil
	}

	var (
		score    float64
		observed domain.ObservedCrashes
	)
	for _, g := range groupByLocation(accidents, kind, &period) {
		if g.id != c.LocationID {
			continue
		}
		for _, a := range g.accidents {
			score += s.costs.Estimate(a)
			if a.IsInjury() {
				observed.Injury++
			} else {
				observed.PropertyDamageOnly++
			}
		}
	}
	if observed.Total() == 0 {
		return domain.Hotspot{}, fmt.Errorf("screening: %w: no accidents at %s in period", domain.ErrNotCandidate, loc)
	}
	if score <= threshold {
		return domain.Hotspot{}, fmt.Errorf("screening: %w: score %.2f at %s does not exceed threshold %.2f",
			domain.ErrNotCandidate, score, loc, threshold)
	}

	expected, err := s.spf.ExpectedCrashes(ctx, loc, period)
	if err != nil {
		return domain.Hotspot{}, fmt.Errorf("screening: failed to get expected crashes: %w", err)
	}

	h := domain.Hotspot{
		Location:        loc,
		Period:          period,
		Observed:        observed,
		ExpectedCrashes: expected,
		RiskScore:       RiskScore(observed.Total(), expected),
		Status:          domain.HotspotOpen,
		Screening: &domain.ScreeningParams{
			Method:      ScreeningMethod,
			Threshold:   threshold,
			GeneratedAt: s.now().UTC(),
		},
	}

	created, err := s.lifecycle.Create(ctx, h)
	if errors.Is(err, domain.ErrDuplicateIdentifier) {
		return s.existingOpen(ctx, loc, err)
	}
	return created, err
}

// hotspotAt finds a hotspot at the location, preferring an open one
func hotspotAt(hotspots []domain.Hotspot, kind domain.LocationKind, id int64) (domain.Hotspot, bool) {
	var (
		found domain.Hotspot
		ok    bool
	)
	for _, h := range hotspots {
		if hid, match := h.Location.Key(kind); !match || hid != id {
			continue
		}
		if h.Status == domain.HotspotOpen {
			return h, true
		}
		if !ok {
			found, ok = h, true
		}
	}
	return found, ok
}

func (s *ScreeningService) existingOpen(ctx context.Context, loc domain.Location, conflict error) (domain.Hotspot, error) {
	open := domain.HotspotOpen
	f := domain.HotspotFilter{Status: &open}
	roadID, intersectionID := loc.Columns()
	f.RoadSegmentID, f.IntersectionID = roadID, intersectionID

	found, err := s.lifecycle.Search(ctx, f)
	if err != nil {
		return domain.Hotspot{}, err
	}
	if len(found) == 0 {
		return domain.Hotspot{}, conflict
	}
	s.log.Info("hotspot already open, reusing", slog.String("location", loc.String()), slog.String("hotspot_id", found[0].ID))
	return found[0], nil
}

// RiskScore is observed/expected rounded to two decimals. Without an
// expected baseline the observed count is used as is.
func RiskScore(observed int, expected float64) float64 {
	if expected <= 0 {
		return float64(observed)
	}
	return utils.RoundTo(float64(observed)/expected, 2)
}
