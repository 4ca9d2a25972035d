package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/roadsafety/backend/internal/domain"
)

// MockRepository groups in-memory stores for testing/demo mode
type MockRepository struct {
	Accidents       *MockAccidentRepository
	Hotspots        *MockHotspotRepository
	Countermeasures *MockCountermeasureRepository
	Projects        *MockProjectRepository
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Accidents:       NewMockAccidentRepository(),
		Hotspots:        NewMockHotspotRepository(),
		Countermeasures: NewMockCountermeasureRepository(),
		Projects:        NewMockProjectRepository(),
	}
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

// MockAccidentRepository implements domain.AccidentProvider in memory
type MockAccidentRepository struct {
	mu        sync.RWMutex
	accidents []domain.Accident
}

// NewMockAccidentRepository creates an accident store holding accidents
func NewMockAccidentRepository(accidents ...domain.Accident) *MockAccidentRepository {
	return &MockAccidentRepository{accidents: append([]domain.Accident(nil), accidents...)}
}

// All returns a copy of every accident in insertion order
func (r *MockAccidentRepository) All(ctx context.Context) ([]domain.Accident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Accident(nil), r.accidents...), nil
}

// Save appends an accident; ids must be unique
func (r *MockAccidentRepository) Save(ctx context.Context, a domain.Accident) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("mock: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accidents {
		if existing.ID == a.ID {
			return fmt.Errorf("mock: accident %s: %w", a.ID, domain.ErrDuplicateIdentifier)
		}
	}
	r.accidents = append(r.accidents, a)
	return nil
}

// MockHotspotRepository implements domain.HotspotStore in memory. Like the
// database, it rejects a second open hotspot at the same location.
type MockHotspotRepository struct {
	mu       sync.RWMutex
	hotspots map[string]domain.Hotspot
}

// NewMockHotspotRepository creates a hotspot store holding hotspots
func NewMockHotspotRepository(hotspots ...domain.Hotspot) *MockHotspotRepository {
	r := &MockHotspotRepository{hotspots: make(map[string]domain.Hotspot, len(hotspots))}
	for _, h := range hotspots {
		r.hotspots[h.ID] = h
	}
	return r
}

// All returns every hotspot in no particular order
func (r *MockHotspotRepository) All(ctx context.Context) ([]domain.Hotspot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Hotspot, 0, len(r.hotspots))
	for _, h := range r.hotspots {
		out = append(out, h)
	}
	return out, nil
}

func (r *MockHotspotRepository) FindByID(ctx context.Context, id string) (domain.Hotspot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hotspots[id]
	if !ok {
		return domain.Hotspot{}, fmt.Errorf("mock: hotspot %s: %w", id, domain.ErrNotFound)
	}
	return h, nil
}

func (r *MockHotspotRepository) Save(ctx context.Context, h domain.Hotspot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hotspots[h.ID]; ok {
		return fmt.Errorf("mock: hotspot %s: %w", h.ID, domain.ErrDuplicateIdentifier)
	}
	if h.Status == domain.HotspotOpen {
		for _, existing := range r.hotspots {
			if existing.Status == domain.HotspotOpen && existing.Location.Kind == h.Location.Kind && existing.Location.ID == h.Location.ID {
				return fmt.Errorf("mock: open hotspot at %s: %w", h.Location, domain.ErrDuplicateIdentifier)
			}
		}
	}
	r.hotspots[h.ID] = h
	return nil
}

func (r *MockHotspotRepository) Update(ctx context.Context, h domain.Hotspot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hotspots[h.ID]; !ok {
		return fmt.Errorf("mock: hotspot %s: %w", h.ID, domain.ErrNotFound)
	}
	r.hotspots[h.ID] = h
	return nil
}

func (r *MockHotspotRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hotspots[id]; !ok {
		return fmt.Errorf("mock: hotspot %s: %w", id, domain.ErrNotFound)
	}
	delete(r.hotspots, id)
	return nil
}

// Search filters in memory; results come back in map order
func (r *MockHotspotRepository) Search(ctx context.Context, f domain.HotspotFilter) ([]domain.Hotspot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Hotspot
	for _, h := range r.hotspots {
		if f.Matches(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

// MockCountermeasureRepository implements domain.CountermeasureStore in memory
type MockCountermeasureRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.Countermeasure
}

// NewMockCountermeasureRepository creates a countermeasure store, e.g. from a YAML catalog
func NewMockCountermeasureRepository(items ...domain.Countermeasure) *MockCountermeasureRepository {
	r := &MockCountermeasureRepository{items: make(map[string]domain.Countermeasure, len(items))}
	for _, c := range items {
		r.put(c)
	}
	return r
}

func (r *MockCountermeasureRepository) put(c domain.Countermeasure) {
	if _, ok := r.items[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.items[c.ID] = c
}

// FindByCriteria returns matches in insertion order
func (r *MockCountermeasureRepository) FindByCriteria(ctx context.Context, target domain.TargetType, statuses []domain.CountermeasureStatus) ([]domain.Countermeasure, error) {
	allowed := make(map[domain.CountermeasureStatus]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Countermeasure
	for _, id := range r.order {
		c := r.items[id]
		if c.TargetType == target && allowed[c.Status] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MockCountermeasureRepository) FindByID(ctx context.Context, id string) (domain.Countermeasure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return domain.Countermeasure{}, fmt.Errorf("mock: countermeasure %s: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// Save upserts a countermeasure
func (r *MockCountermeasureRepository) Save(ctx context.Context, c domain.Countermeasure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(c)
	return nil
}

// MockProjectRepository implements domain.ProjectStore in memory
type MockProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
}

func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{projects: make(map[string]domain.Project)}
}

func (r *MockProjectRepository) FindByID(ctx context.Context, id string) (domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.Project{}, fmt.Errorf("mock: project %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (r *MockProjectRepository) Save(ctx context.Context, p domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; ok {
		return fmt.Errorf("mock: project %s: %w", p.ID, domain.ErrDuplicateIdentifier)
	}
	r.projects[p.ID] = p
	return nil
}

func (r *MockProjectRepository) Update(ctx context.Context, p domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return fmt.Errorf("mock: project %s: %w", p.ID, domain.ErrNotFound)
	}
	r.projects[p.ID] = p
	return nil
}
