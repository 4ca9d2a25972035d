package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/service"
	"github.com/roadsafety/backend/pkg/utils"
)

// AccidentRepository is the accident ingestion surface used by the API
type AccidentRepository interface {
	domain.AccidentProvider
	Save(ctx context.Context, a domain.Accident) error
}

// Services bundles what the handlers depend on
type Services struct {
	Screening       *service.ScreeningService
	Hotspots        *service.HotspotService
	Countermeasures *service.CountermeasureService
	Projects        *service.ProjectService
	Accidents       AccidentRepository
	Health          []domain.HealthChecker
}

// Handler contains all HTTP handlers
type Handler struct {
	svc Services
}

// NewHandler creates a new handler
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// ErrorHandler maps domain errors onto HTTP status codes
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, message = fe.Code, fe.Message
	case errors.Is(err, domain.ErrNotFound):
		code, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		code, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidLocation),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidAccident),
		errors.Is(err, domain.ErrInvalidHotspot),
		errors.Is(err, domain.ErrInvalidCountermeasure),
		errors.Is(err, domain.ErrNotCandidate):
		code, message = fiber.StatusBadRequest, err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	for _, hc := range h.svc.Health {
		if err := hc.Health(c.Context()); err != nil {
			status = "degraded"
			break
		}
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"service": "roadsafety-backend",
		"version": "1.0.0",
	})
}

type screeningRequest struct {
	LocationType string     `json:"location_type"`
	Threshold    float64    `json:"threshold"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
}

func (r screeningRequest) period() (*domain.Period, error) {
	if r.PeriodStart == nil && r.PeriodEnd == nil {
		return nil, nil
	}
	if r.PeriodStart == nil || r.PeriodEnd == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "period_start and period_end must be given together")
	}
	return &domain.Period{Start: *r.PeriodStart, End: *r.PeriodEnd}, nil
}

// Screen runs hotspot screening and returns ranked candidates
func (h *Handler) Screen(c *fiber.Ctx) error {
	var req screeningRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	kind, err := domain.ParseLocationKind(req.LocationType)
	if err != nil {
		return err
	}
	period, err := req.period()
	if err != nil {
		return err
	}

	candidates, err := h.svc.Screening.Screen(c.Context(), kind, req.Threshold, period)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    candidates,
		"count":   len(candidates),
	})
}

type promoteRequest struct {
	LocationType  string    `json:"location_type"`
	LocationID    int64     `json:"location_id"`
	Score         float64   `json:"score"`
	AccidentCount int       `json:"accident_count"`
	Threshold     float64   `json:"threshold"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
}

// Promote persists a hotspot for an accepted screening candidate
func (h *Handler) Promote(c *fiber.Ctx) error {
	var req promoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	kind, err := domain.ParseLocationKind(req.LocationType)
	if err != nil {
		return err
	}

	candidate := service.Candidate{LocationID: req.LocationID, Score: req.Score, AccidentCount: req.AccidentCount}
	period := domain.Period{Start: req.PeriodStart, End: req.PeriodEnd}
	hotspot, err := h.svc.Screening.Promote(c.Context(), kind, candidate, period, req.Threshold)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    hotspot,
	})
}

type hotspotRequest struct {
	ID              string    `json:"id"`
	Location        string    `json:"location"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	ObservedPDO     int       `json:"observed_pdo"`
	ObservedInjury  int       `json:"observed_injury"`
	ExpectedCrashes float64   `json:"expected_crashes"`
	RiskScore       float64   `json:"risk_score"`
	Status          string    `json:"status"`
}

func (r hotspotRequest) hotspot() (domain.Hotspot, error) {
	loc, err := domain.ParseLocation(r.Location)
	if err != nil {
		return domain.Hotspot{}, err
	}
	return domain.Hotspot{
		ID:       r.ID,
		Location: loc,
		Period:   domain.Period{Start: r.PeriodStart, End: r.PeriodEnd},
		Observed: domain.ObservedCrashes{
			PropertyDamageOnly: r.ObservedPDO,
			Injury:             r.ObservedInjury,
		},
		ExpectedCrashes: r.ExpectedCrashes,
		RiskScore:       r.RiskScore,
		Status:          domain.HotspotStatus(r.Status),
	}, nil
}

// CreateHotspot persists a hotspot given in the wire format
func (h *Handler) CreateHotspot(c *fiber.Ctx) error {
	var req hotspotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	hs, err := req.hotspot()
	if err != nil {
		return err
	}

	created, err := h.svc.Hotspots.Create(c.Context(), hs)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    created,
	})
}

// GetHotspot returns one hotspot
func (h *Handler) GetHotspot(c *fiber.Ctx) error {
	hs, err := h.svc.Hotspots.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    hs,
	})
}

// UpdateHotspot replaces an existing hotspot
func (h *Handler) UpdateHotspot(c *fiber.Ctx) error {
	var req hotspotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.ID = c.Params("id")
	hs, err := req.hotspot()
	if err != nil {
		return err
	}

	updated, err := h.svc.Hotspots.Update(c.Context(), hs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    updated,
	})
}

// DeleteHotspot removes a hotspot
func (h *Handler) DeleteHotspot(c *fiber.Ctx) error {
	if err := h.svc.Hotspots.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SearchHotspots filters hotspots by query parameters, highest risk first
func (h *Handler) SearchHotspots(c *fiber.Ctx) error {
	f, err := hotspotFilter(c)
	if err != nil {
		return err
	}

	found, err := h.svc.Hotspots.Search(c.Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    found,
		"count":   len(found),
	})
}

func hotspotFilter(c *fiber.Ctx) (domain.HotspotFilter, error) {
	var f domain.HotspotFilter

	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		from, err1 := time.Parse(time.RFC3339, start)
		to, err2 := time.Parse(time.RFC3339, end)
		if err1 != nil || err2 != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "start and end must both be RFC3339 timestamps")
		}
		period := domain.Period{Start: from, End: to}
		if err := period.Validate(); err != nil {
			return f, err
		}
		f.Period = &period
	}

	var err error
	if f.RoadSegmentID, err = queryInt(c, "road_segment_id"); err != nil {
		return f, err
	}
	if f.IntersectionID, err = queryInt(c, "intersection_id"); err != nil {
		return f, err
	}
	if s := c.Query("status"); s != "" {
		st := domain.HotspotStatus(s)
		if !st.Valid() {
			return f, fiber.NewError(fiber.StatusBadRequest, "unknown status "+s)
		}
		f.Status = &st
	}
	if f.MinRisk, err = queryFloat(c, "min_risk"); err != nil {
		return f, err
	}
	if f.MaxRisk, err = queryFloat(c, "max_risk"); err != nil {
		return f, err
	}
	if f.MinExpected, err = queryFloat(c, "min_expected"); err != nil {
		return f, err
	}
	if f.MaxExpected, err = queryFloat(c, "max_expected"); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &v, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &v, nil
}

func collisionTypes(raw string) []domain.CollisionType {
	var out []domain.CollisionType
	for _, s := range utils.SplitList(raw) {
		out = append(out, domain.CollisionType(s))
	}
	return out
}

func severities(raw string) []domain.Severity {
	var out []domain.Severity
	for _, s := range utils.SplitList(raw) {
		out = append(out, domain.Severity(s))
	}
	return out
}

// FindCountermeasures matches countermeasures to a target type
func (h *Handler) FindCountermeasures(c *fiber.Ctx) error {
	var statuses []domain.CountermeasureStatus
	for _, s := range utils.SplitList(c.Query("statuses")) {
		statuses = append(statuses, domain.CountermeasureStatus(s))
	}

	found, err := h.svc.Countermeasures.FindForTarget(
		c.Context(),
		domain.TargetType(c.Query("target_type")),
		collisionTypes(c.Query("collision_types")),
		severities(c.Query("severities")),
		statuses,
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    found,
		"count":   len(found),
	})
}

// ProposeCountermeasures matches countermeasures to a persisted hotspot
func (h *Handler) ProposeCountermeasures(c *fiber.Ctx) error {
	proposals, err := h.svc.Countermeasures.ProposeForHotspot(
		c.Context(),
		c.Params("id"),
		collisionTypes(c.Query("collision_types")),
		severities(c.Query("severities")),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    proposals,
		"count":   len(proposals),
	})
}

// SaveCountermeasure creates or replaces a countermeasure
func (h *Handler) SaveCountermeasure(c *fiber.Ctx) error {
	var req domain.Countermeasure
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	saved, err := h.svc.Countermeasures.Save(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    saved,
	})
}

type projectRequest struct {
	HotspotID        string       `json:"hotspot_id"`
	CountermeasureID string       `json:"countermeasure_id"`
	PeriodStart      time.Time    `json:"period_start"`
	PeriodEnd        time.Time    `json:"period_end"`
	ExpectedCost     domain.Money `json:"expected_cost"`
}

// ProposeProject links a countermeasure to a hotspot
func (h *Handler) ProposeProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	p, err := h.svc.Projects.Propose(c.Context(), req.HotspotID, req.CountermeasureID,
		domain.Period{Start: req.PeriodStart, End: req.PeriodEnd}, req.ExpectedCost)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

type projectStatusRequest struct {
	Status     string        `json:"status"`
	ActualCost *domain.Money `json:"actual_cost,omitempty"`
}

// AdvanceProject moves a project to the next status
func (h *Handler) AdvanceProject(c *fiber.Ctx) error {
	var req projectStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	p, err := h.svc.Projects.Advance(c.Context(), c.Params("id"), domain.ProjectStatus(req.Status), req.ActualCost)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    p,
	})
}

// RecordAccident ingests one accident
func (h *Handler) RecordAccident(c *fiber.Ctx) error {
	var a domain.Accident
	if err := c.BodyParser(&a); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if a.ID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "id is required")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := h.svc.Accidents.Save(c.Context(), a); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    a,
	})
}
