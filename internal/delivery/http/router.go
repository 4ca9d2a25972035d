package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, svc Services, gatherer prometheus.Gatherer) {
	handler := NewHandler(svc)

	// Health check
	app.Get("/health", handler.HealthCheck)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Screening
		api.Post("/screening", handler.Screen)
		api.Post("/screening/promote", handler.Promote)

		// Hotspot lifecycle
		api.Get("/hotspots", handler.SearchHotspots)
		api.Post("/hotspots", handler.CreateHotspot)
		api.Get("/hotspots/:id", handler.GetHotspot)
		api.Put("/hotspots/:id", handler.UpdateHotspot)
		api.Delete("/hotspots/:id", handler.DeleteHotspot)
		api.Get("/hotspots/:id/countermeasures", handler.ProposeCountermeasures)

		// Countermeasures
		api.Get("/countermeasures", handler.FindCountermeasures)
		api.Post("/countermeasures", handler.SaveCountermeasure)

		// Projects
		api.Post("/projects", handler.ProposeProject)
		api.Put("/projects/:id/status", handler.AdvanceProject)

		// Ingestion
		api.Post("/accidents", handler.RecordAccident)
	}
}
