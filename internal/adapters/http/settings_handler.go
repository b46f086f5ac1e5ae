package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// SettingsHandler reads and updates the settings file
type SettingsHandler struct {
	store  ports.SettingsStore
	logger *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store ports.SettingsStore, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

// Get godoc
// @Summary Read settings
// @Description List-valued keys are returned as arrays
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	values, err := h.store.All()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, values)
}

// Update godoc
// @Summary Merge settings
// @Description Keys present in the body are upserted, a null value removes the key
// @Tags settings
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Settings"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ports.ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) Update(c echo.Context) error {
	updates := map[string]interface{}{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &updates); err != nil {
		return badRequest("Invalid request format", err)
	}

	values, err := h.store.Merge(updates)
	if err != nil {
		h.logger.Warnw("Settings update failed", "error", err)
		return err
	}

	return c.JSON(http.StatusOK, values)
}
