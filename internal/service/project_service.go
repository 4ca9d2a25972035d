package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roadsafety/backend/internal/domain"
)

// ProjectService links countermeasures to hotspots as remediation projects
type ProjectService struct {
	projects        ProjectStore
	hotspots        HotspotStore
	countermeasures CountermeasureStore
	ids             IDAllocator
	log             *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projects ProjectStore, hotspots HotspotStore, countermeasures CountermeasureStore, ids IDAllocator, log *slog.Logger) *ProjectService {
	if ids == nil {
		ids = UUIDAllocator{}
	}
	return &ProjectService{
		projects:        projects,
		hotspots:        hotspots,
		countermeasures: countermeasures,
		ids:             ids,
		log:             componentLogger(log, "projects"),
	}
}

// Propose creates a project in the proposed state. Both the hotspot and
// the countermeasure must exist.
func (s *ProjectService) Propose(ctx context.Context, hotspotID, countermeasureID string, period domain.Period, expectedCost domain.Money) (domain.Project, error) {
	if err := period.Validate(); err != nil {
		return domain.Project{}, fmt.Errorf("projects: %w", err)
	}
	if _, err := s.hotspots.FindByID(ctx, hotspotID); err != nil {
		return domain.Project{}, fmt.Errorf("projects: hotspot %s: %w", hotspotID, err)
	}
	cm, err := s.countermeasures.FindByID(ctx, countermeasureID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("projects: countermeasure %s: %w", countermeasureID, err)
	}
	if expectedCost.Currency == "" {
		expectedCost.Currency = cm.ImplementationCost.Currency
	}

	p := domain.Project{
		ID:               s.ids.NextID(),
		HotspotID:        hotspotID,
		CountermeasureID: countermeasureID,
		Period:           period,
		ExpectedCost:     expectedCost,
		Status:           domain.ProjectProposed,
	}
	if err := s.projects.Save(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("projects: failed to save %s: %w", p.ID, err)
	}
	s.log.Info("project proposed", slog.String("project_id", p.ID), slog.String("hotspot_id", hotspotID), slog.String("countermeasure_id", countermeasureID))
	return p, nil
}

// Advance moves a project along proposed -> approved -> implemented
func (s *ProjectService) Advance(ctx context.Context, id string, next domain.ProjectStatus, actualCost *domain.Money) (domain.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return domain.Project{}, fmt.Errorf("projects: failed to find %s: %w", id, err)
	}
	if err := p.Advance(next, actualCost); err != nil {
		return domain.Project{}, fmt.Errorf("projects: %w", err)
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("projects: failed to update %s: %w", id, err)
	}
	return p, nil
}
