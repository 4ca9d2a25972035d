package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/roadsafety/backend/internal/domain"
)

// Store contracts are re-exported from domain for convenience
type (
	AccidentProvider    = domain.AccidentProvider
	HotspotStore        = domain.HotspotStore
	CountermeasureStore = domain.CountermeasureStore
	ProjectStore        = domain.ProjectStore
)

// EventDispatcher publishes domain events. Dispatch is fire-and-forget:
// callers log failures and carry on.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.HotspotCreated) error
}

// NopDispatcher drops every event
type NopDispatcher struct{}

// Dispatch implements EventDispatcher
func (NopDispatcher) Dispatch(context.Context, domain.HotspotCreated) error { return nil }

func componentLogger(log *slog.Logger, component string) *slog.Logger {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log.With(slog.String("component", component))
}
