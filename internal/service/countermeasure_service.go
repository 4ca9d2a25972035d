package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/metrics"
	"github.com/roadsafety/backend/pkg/utils"
)

// DefaultCatalogTTL is how long store lookups stay cached
const DefaultCatalogTTL = 10 * time.Minute

// Proposal is a countermeasure matched to a hotspot with its expected effect
type Proposal struct {
	Countermeasure         domain.Countermeasure `json:"countermeasure"`
	ExpectedCrashReduction float64               `json:"expected_crash_reduction"`
}

// CountermeasureService matches countermeasures to targets and hotspots.
// Results are ordered by CMF ascending: most effective first.
type CountermeasureService struct {
	store    CountermeasureStore
	hotspots HotspotStore
	ids      IDAllocator
	cache    *cache.Cache
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewCountermeasureService creates a new countermeasure service
func NewCountermeasureService(store CountermeasureStore, hotspots HotspotStore, ids IDAllocator, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) *CountermeasureService {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if ids == nil {
		ids = UUIDAllocator{}
	}
	return &CountermeasureService{
		store:    store,
		hotspots: hotspots,
		ids:      ids,
		cache:    cache.New(ttl, 2*ttl),
		metrics:  m,
		log:      componentLogger(log, "countermeasures"),
	}
}

func catalogCacheKey(target domain.TargetType, statuses []domain.CountermeasureStatus) string {
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = string(st)
	}
	sort.Strings(parts)
	return "countermeasures:" + string(target) + ":" + strings.Join(parts, ",")
}

func (s *CountermeasureService) lookup(ctx context.Context, target domain.TargetType, statuses []domain.CountermeasureStatus) ([]domain.Countermeasure, error) {
	key := catalogCacheKey(target, statuses)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(true)
		return cached.([]domain.Countermeasure), nil
	}
	s.metrics.CacheLookup(false)

	found, err := s.store.FindByCriteria(ctx, target, statuses)
	if err != nil {
		return nil, fmt.Errorf("countermeasures: lookup failed: %w", err)
	}
	s.cache.SetDefault(key, found)
	return found, nil
}

// FindForTarget returns countermeasures for target whose status is in
// statuses (defaults when empty) and whose affected sets cover every
// requested collision type and severity. Empty request sets match all.
// Results are copies and may be modified by the caller.
func (s *CountermeasureService) FindForTarget(
	ctx context.Context,
	target domain.TargetType,
	collisionTypes []domain.CollisionType,
	severities []domain.Severity,
	statuses []domain.CountermeasureStatus,
) ([]domain.Countermeasure, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("countermeasures: %w: unknown target type %q", domain.ErrInvalidLocation, target)
	}
	if len(statuses) == 0 {
		statuses = domain.DefaultCountermeasureStatuses
	}

	candidates, err := s.lookup(ctx, target, statuses)
	if err != nil {
		return nil, err
	}

	allowed := make(map[domain.CountermeasureStatus]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}

	matched := make([]domain.Countermeasure, 0, len(candidates))
	for _, c := range candidates {
		if c.TargetType != target {
			continue
		}
		if _, ok := allowed[c.Status]; !ok {
			continue
		}
		if c.Covers(collisionTypes, severities) {
			matched = append(matched, c.Clone())
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CMF < matched[j].CMF
	})

	s.metrics.Matched(string(target), len(matched))
	return matched, nil
}

// ProposeForHotspot matches countermeasures to a persisted hotspot and
// estimates the crashes each would prevent: observed * (1 - CMF)
func (s *CountermeasureService) ProposeForHotspot(
	ctx context.Context,
	hotspotID string,
	collisionTypes []domain.CollisionType,
	severities []domain.Severity,
) ([]Proposal, error) {
	h, err := s.hotspots.FindByID(ctx, hotspotID)
	if err != nil {
		return nil, fmt.Errorf("countermeasures: failed to load hotspot %s: %w", hotspotID, err)
	}

	matched, err := s.FindForTarget(ctx, domain.TargetFor(h.Location.Kind), collisionTypes, severities, nil)
	if err != nil {
		return nil, err
	}

	observed := float64(h.Observed.Total())
	proposals := make([]Proposal, 0, len(matched))
	for _, c := range matched {
		proposals = append(proposals, Proposal{
			Countermeasure:         c,
			ExpectedCrashReduction: utils.RoundTo(observed*(1-c.CMF), 2),
		})
	}

	s.log.Info("countermeasures proposed", slog.String("hotspot_id", hotspotID), slog.Int("proposals", len(proposals)))
	return proposals, nil
}

// FindByID returns domain.ErrNotFound when the countermeasure does not exist
func (s *CountermeasureService) FindByID(ctx context.Context, id string) (domain.Countermeasure, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Countermeasure{}, fmt.Errorf("countermeasures: failed to find %s: %w", id, err)
	}
	return c, nil
}

// Save validates and persists a countermeasure, then drops cached lookups
func (s *CountermeasureService) Save(ctx context.Context, c domain.Countermeasure) (domain.Countermeasure, error) {
	if c.ID == "" {
		c.ID = s.ids.NextID()
	}
	if err := c.Validate(); err != nil {
		return domain.Countermeasure{}, fmt.Errorf("countermeasures: %w", err)
	}
	if err := s.store.Save(ctx, c); err != nil {
		return domain.Countermeasure{}, fmt.Errorf("countermeasures: failed to save %s: %w", c.ID, err)
	}
	s.cache.Flush()
	return c, nil
}
