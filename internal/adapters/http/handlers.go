package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator installed on echo
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrValidation),
		errors.Is(err, entities.ErrInvalidDate),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrReadOnlySource):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"message", "details"?}
func ErrorHandler(appLogger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code    = statusFor(err)
			payload = ports.ErrorResponse{Message: err.Error()}
		)

		var he *echo.HTTPError
		var validationErrs validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			payload.Message = http.StatusText(code)
			if msg, ok := he.Message.(string); ok {
				payload.Message = msg
			}
			if he.Internal != nil {
				payload.Details = he.Internal.Error()
			}
		case errors.As(err, &validationErrs):
			details := make(map[string]string, len(validationErrs))
			for _, fe := range validationErrs {
				details[fe.Field()] = fe.Tag()
			}
			payload.Message = "validation failed"
			payload.Details = details
		}

		if code >= http.StatusInternalServerError {
			appLogger.Errorw("Request failed", "error", err, "path", c.Request().URL.Path, "status", code)
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, payload)
		}
		if err != nil {
			appLogger.Errorw("Error sending response", "error", err)
		}
	}
}

func badRequest(message string, err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, message).SetInternal(err)
}

// queryInt parses an optional non-negative integer query parameter
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return n, nil
}

func listFilter(c echo.Context) (ports.ListFilter, error) {
	filter := ports.ListFilter{
		Search:    c.QueryParam("q"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		return filter, err
	}

	return filter, nil
}

// TaskHandler serves the day-state task list
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// GetTasks godoc
// @Summary Resolve the task list of a day
// @Description Returns explicit tasks, an explicitly empty day, or tasks inherited from the nearest earlier day
// @Tags tasks
// @Produce json
// @Param date query string false "YYYY-MM-DD or a natural-language date, defaults to today"
// @Success 200 {object} entities.ResolvedDay
// @Failure 400 {object} ports.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(c echo.Context) error {
	date, err := h.taskService.ResolveDate(c.QueryParam("date"))
	if err != nil {
		return err
	}

	day, err := h.taskService.ResolveTasksForDate(c.Request().Context(), date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, day)
}

// SaveTasks godoc
// @Summary Replace the task list of a day
// @Description An empty list marks the day explicitly empty and stops inheritance
// @Tags tasks
// @Accept json
// @Produce json
// @Param date path string true "YYYY-MM-DD"
// @Param request body ports.SaveTasksRequest true "Tasks"
// @Success 200 {object} entities.ResolvedDay
// @Failure 400 {object} ports.ErrorResponse
// @Router /tasks/{date} [put]
func (h *TaskHandler) SaveTasks(c echo.Context) error {
	date, err := h.taskService.ResolveDate(c.Param("date"))
	if err != nil {
		return err
	}

	var req ports.SaveTasksRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request format", err)
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	day, err := h.taskService.SaveTasksForDate(c.Request().Context(), date, req.Tasks)
	if err != nil {
		h.logger.Warnw("Save tasks failed", "error", err, "date", date)
		return err
	}

	return c.JSON(http.StatusOK, day)
}
