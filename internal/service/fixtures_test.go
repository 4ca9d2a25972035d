package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roadsafety/backend/internal/domain"
)

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func severity(s domain.Severity) *domain.Severity { return &s }

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func accidentAt(id string, loc domain.Location, cost float64, sev *domain.Severity, at time.Time) domain.Accident {
	return domain.Accident{ID: id, OccurredAt: at, Location: loc, Cost: cost, Severity: sev}
}

type accidentList []domain.Accident

func (l accidentList) All(context.Context) ([]domain.Accident, error) { return l, nil }

type failingAccidents struct{}

func (failingAccidents) All(context.Context) ([]domain.Accident, error) { return nil, errStoreDown }

// hotspotStoreSpy is a HotspotStore that records writes and returns search
// results in the order it was given
type hotspotStoreSpy struct {
	mu       sync.Mutex
	items    []domain.Hotspot
	saves    int
	updates  int
	deletes  int
	saveErr  error
	allErr   error
	searched []domain.HotspotFilter
}

func (s *hotspotStoreSpy) All(context.Context) ([]domain.Hotspot, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	return append([]domain.Hotspot(nil), s.items...), nil
}

func (s *hotspotStoreSpy) FindByID(_ context.Context, id string) (domain.Hotspot, error) {
	for _, h := range s.items {
		if h.ID == id {
			return h, nil
		}
	}
	return domain.Hotspot{}, domain.ErrNotFound
}

func (s *hotspotStoreSpy) Save(_ context.Context, h domain.Hotspot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items = append(s.items, h)
	return nil
}

func (s *hotspotStoreSpy) Update(_ context.Context, h domain.Hotspot) error {
	s.updates++
	for i := range s.items {
		if s.items[i].ID == h.ID {
			s.items[i] = h
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *hotspotStoreSpy) Delete(_ context.Context, id string) error {
	s.deletes++
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *hotspotStoreSpy) Search(_ context.Context, f domain.HotspotFilter) ([]domain.Hotspot, error) {
	s.searched = append(s.searched, f)
	var out []domain.Hotspot
	for _, h := range s.items {
		if f.Matches(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	events []domain.HotspotCreated
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e domain.HotspotCreated) error {
	d.events = append(d.events, e)
	return d.err
}

type fixedSPF float64

func (f fixedSPF) ExpectedCrashes(context.Context, domain.Location, domain.Period) (float64, error) {
	return float64(f), nil
}

func openHotspot(id string, loc domain.Location, risk float64) domain.Hotspot {
	return domain.Hotspot{
		ID:              id,
		Location:        loc,
		Period:          domain.Period{Start: day(1), End: day(31)},
		ExpectedCrashes: 1,
		RiskScore:       risk,
		Status:          domain.HotspotOpen,
	}
}
