package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// ResourceHandler serves list/create/get/update/delete for one resource type
type ResourceHandler[T any] struct {
	name    string
	service ports.ResourceService[T]
	logger  *logger.Logger
}

// NewResourceHandler creates a handler for the resource mounted under name
func NewResourceHandler[T any](name string, service ports.ResourceService[T], logger *logger.Logger) *ResourceHandler[T] {
	return &ResourceHandler[T]{name: name, service: service, logger: logger}
}

// Register mounts the CRUD routes on g under /<name>
func (h *ResourceHandler[T]) Register(g *echo.Group) {
	r := g.Group("/" + h.name)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:id", h.Get)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List resources
// @Description Works for memos, bookmarks, events, notebooks, identities, credential-groups and toolbox
// @Tags resources
// @Produce json
// @Param resource path string true "Resource name"
// @Param q query string false "Substring filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} object
// @Router /{resource} [get]
func (h *ResourceHandler[T]) List(c echo.Context) error {
	filter, err := listFilter(c)
	if err != nil {
		return err
	}

	items, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*T{}
	}

	return c.JSON(http.StatusOK, items)
}

// Create godoc
// @Summary Create a resource
// @Tags resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Success 201 {object} object
// @Failure 400 {object} ports.ErrorResponse
// @Router /{resource} [post]
func (h *ResourceHandler[T]) Create(c echo.Context) error {
	item := new(T)
	if err := c.Bind(item); err != nil {
		return badRequest("Invalid request format", err)
	}
	if err := c.Validate(item); err != nil {
		return err
	}

	created, err := h.service.Create(c.Request().Context(), item)
	if err != nil {
		h.logger.Warnw("Create failed", "resource", h.name, "error", err)
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Get godoc
// @Summary Get a resource by id
// @Tags resources
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Resource ID"
// @Success 200 {object} object
// @Failure 404 {object} ports.ErrorResponse
// @Router /{resource}/{id} [get]
func (h *ResourceHandler[T]) Get(c echo.Context) error {
	item, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// Update godoc
// @Summary Replace a resource
// @Tags resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Resource ID"
// @Success 200 {object} object
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /{resource}/{id} [put]
func (h *ResourceHandler[T]) Update(c echo.Context) error {
	item := new(T)
	if err := c.Bind(item); err != nil {
		return badRequest("Invalid request format", err)
	}
	if err := c.Validate(item); err != nil {
		return err
	}

	updated, err := h.service.Update(c.Request().Context(), c.Param("id"), item)
	if err != nil {
		h.logger.Warnw("Update failed", "resource", h.name, "error", err)
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete a resource
// @Tags resources
// @Param resource path string true "Resource name"
// @Param id path string true "Resource ID"
// @Success 204
// @Failure 404 {object} ports.ErrorResponse
// @Router /{resource}/{id} [delete]
func (h *ResourceHandler[T]) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
