package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/metrics"
)

// HotspotService manages the hotspot lifecycle
type HotspotService struct {
	store      HotspotStore
	ids        IDAllocator
	dispatcher EventDispatcher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewHotspotService creates a new hotspot service. A nil dispatcher drops events.
func NewHotspotService(store HotspotStore, ids IDAllocator, dispatcher EventDispatcher, m *metrics.Metrics, log *slog.Logger) *HotspotService {
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	if ids == nil {
		ids = UUIDAllocator{}
	}
	return &HotspotService{
		store:      store,
		ids:        ids,
		dispatcher: dispatcher,
		metrics:    m,
		log:        componentLogger(log, "hotspots"),
	}
}

// Create persists a new hotspot and dispatches a HotspotCreated event.
// An empty id is allocated; an empty status defaults to open.
func (s *HotspotService) Create(ctx context.Context, h domain.Hotspot) (domain.Hotspot, error) {
	if h.ID == "" {
		h.ID = s.ids.NextID()
	}
	if h.Status == "" {
		h.Status = domain.HotspotOpen
	}
	if err := h.Validate(); err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: %w", err)
	}

	if err := s.store.Save(ctx, h); err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: failed to create %s: %w", h.ID, err)
	}
	s.metrics.HotspotCreated(string(h.Location.Kind))
	s.log.Info("hotspot created",
		slog.String("hotspot_id", h.ID),
		slog.String("location", h.Location.String()),
		slog.Float64("risk_score", h.RiskScore),
	)

	event := domain.HotspotCreated{Hotspot: h, OccurredAt: time.Now().UTC()}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.metrics.DispatchFailed()
		s.log.Warn("failed to dispatch hotspot created event", slog.String("hotspot_id", h.ID), slog.Any("error", err))
	}
	return h, nil
}

// FindByID returns domain.ErrNotFound when the hotspot does not exist
func (s *HotspotService) FindByID(ctx context.Context, id string) (domain.Hotspot, error) {
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: failed to find %s: %w", id, err)
	}
	return h, nil
}

// Update replaces an existing hotspot, keeping its status when none is
// given. Missing hotspots fail with domain.ErrNotFound before anything is written.
func (s *HotspotService) Update(ctx context.Context, h domain.Hotspot) (domain.Hotspot, error) {
	existing, err := s.store.FindByID(ctx, h.ID)
	if err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: failed to update %s: %w", h.ID, err)
	}
	if h.Status == "" {
		h.Status = existing.Status
	}
	if h.Screening == nil {
		h.Screening = existing.Screening
	}
	if err := h.Validate(); err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: %w", err)
	}
	if err := s.store.Update(ctx, h); err != nil {
		return domain.Hotspot{}, fmt.Errorf("hotspots: failed to update %s: %w", h.ID, err)
	}
	return h, nil
}

// Delete removes a hotspot; domain.ErrNotFound when absent
func (s *HotspotService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("hotspots: failed to delete %s: %w", id, err)
	}
	s.log.Info("hotspot deleted", slog.String("hotspot_id", id))
	return nil
}

// Search returns hotspots matching every set filter, highest risk first
// regardless of the order the store returns them in
func (s *HotspotService) Search(ctx context.Context, f domain.HotspotFilter) ([]domain.Hotspot, error) {
	if f.Period != nil {
		if err := f.Period.Validate(); err != nil {
			return nil, fmt.Errorf("hotspots: %w", err)
		}
	}
	found, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("hotspots: search failed: %w", err)
	}
	if found == nil {
		found = []domain.Hotspot{}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].RiskScore > found[j].RiskScore
	})
	return found, nil
}
