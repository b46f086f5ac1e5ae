package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/media"
	"github.com/memoria/core/internal/ports"
)

// MediaHandler serves link previews and image uploads
type MediaHandler struct {
	previews ports.PreviewService
	uploads  ports.ImageUploader
	logger   *logger.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(previews ports.PreviewService, uploads ports.ImageUploader, logger *logger.Logger) *MediaHandler {
	return &MediaHandler{
		previews: previews,
		uploads:  uploads,
		logger:   logger,
	}
}

// LinkPreview godoc
// @Summary Preview a link
// @Description Title, description, image and favicon of a web page. Unreachable pages yield a bare preview.
// @Tags media
// @Produce json
// @Param url query string true "Page URL"
// @Success 200 {object} entities.LinkPreview
// @Failure 400 {object} ports.ErrorResponse
// @Router /link-preview [get]
func (h *MediaHandler) LinkPreview(c echo.Context) error {
	target := c.QueryParam("url")
	if target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url parameter is required")
	}

	preview, err := h.previews.Get(c.Request().Context(), target)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preview)
}

// Upload godoc
// @Summary Upload an image
// @Description The image is downscaled, re-encoded as JPEG and served under /images
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 201 {object} ports.UploadResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 413 {object} ports.ErrorResponse
// @Router /upload [post]
func (h *MediaHandler) Upload(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest("file field is required", err)
	}

	file, err := header.Open()
	if err != nil {
		return badRequest("Unreadable upload", err)
	}
	defer file.Close()

	path, err := h.uploads.Save(file)
	if errors.Is(err, media.ErrTooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	}
	if err != nil {
		h.logger.Warnw("Upload rejected", "error", err, "filename", header.Filename, "size", header.Size)
		return err
	}

	h.logger.Infow("Image uploaded", "path", path, "size", header.Size)

	return c.JSON(http.StatusCreated, ports.UploadResponse{URL: path})
}
