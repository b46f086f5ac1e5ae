package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// CalendarHandler serves feed sources and the merged event view
type CalendarHandler struct {
	calendarService ports.CalendarService
	logger          *logger.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendarService ports.CalendarService, logger *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
		logger:          logger,
	}
}

// ListSources godoc
// @Summary List calendar feeds
// @Tags calendar
// @Produce json
// @Success 200 {array} entities.CalendarSource
// @Router /calendar/sources [get]
func (h *CalendarHandler) ListSources(c echo.Context) error {
	sources, err := h.calendarService.ListSources(c.Request().Context())
	if err != nil {
		return err
	}
	if sources == nil {
		sources = []*entities.CalendarSource{}
	}

	return c.JSON(http.StatusOK, sources)
}

// CreateSource godoc
// @Summary Add a calendar feed
// @Description Sources of type env mirror configuration and cannot be created here
// @Tags calendar
// @Accept json
// @Produce json
// @Param request body ports.CreateCalendarSourceRequest true "Feed"
// @Success 201 {object} entities.CalendarSource
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Router /calendar/sources [post]
func (h *CalendarHandler) CreateSource(c echo.Context) error {
	var req ports.CreateCalendarSourceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format", err)
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	source, err := h.calendarService.CreateSource(c.Request().Context(), &entities.CalendarSource{
		Name:  req.Name,
		URL:   req.URL,
		Type:  entities.CalendarSourceType(req.Type),
		Color: req.Color,
	})
	if err != nil {
		h.logger.Warnw("Create calendar source failed", "error", err, "url", req.URL)
		return err
	}

	return c.JSON(http.StatusCreated, source)
}

// DeleteSource godoc
// @Summary Remove a calendar feed
// @Tags calendar
// @Param id path string true "Source ID"
// @Success 204
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /calendar/sources/{id} [delete]
func (h *CalendarHandler) DeleteSource(c echo.Context) error {
	if err := h.calendarService.DeleteSource(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Events godoc
// @Summary List local and feed events
// @Tags calendar
// @Produce json
// @Param from query string false "RFC3339 or YYYY-MM-DD"
// @Param to query string false "RFC3339 or YYYY-MM-DD, a bare date includes the whole day"
// @Success 200 {array} entities.CalendarEvent
// @Failure 400 {object} ports.ErrorResponse
// @Router /calendar/events [get]
func (h *CalendarHandler) Events(c echo.Context) error {
	events, err := h.calendarService.Events(c.Request().Context(), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, events)
}
