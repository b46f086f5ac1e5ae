package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// KnowledgeHandler serves the graph, search and daily counter
type KnowledgeHandler struct {
	graph   ports.GraphService
	search  ports.SearchService
	counter ports.CounterService
	logger  *logger.Logger
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(graph ports.GraphService, search ports.SearchService, counter ports.CounterService, logger *logger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		graph:   graph,
		search:  search,
		counter: counter,
		logger:  logger,
	}
}

// Graph godoc
// @Summary Tag graph
// @Description Tags from memos with co-occurrence edges and links to bookmarks and history
// @Tags knowledge
// @Produce json
// @Success 200 {object} entities.Graph
// @Router /graph [get]
func (h *KnowledgeHandler) Graph(c echo.Context) error {
	graph, err := h.graph.Build(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, graph)
}

// Search godoc
// @Summary Search stored content
// @Tags knowledge
// @Produce json
// @Param q query string true "Query"
// @Param limit query int false "Maximum results"
// @Success 200 {object} ports.SearchResponse
// @Failure 400 {object} ports.ErrorResponse
// @Router /search [get]
func (h *KnowledgeHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	results, err := h.search.Search(c.Request().Context(), query, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ports.SearchResponse{Query: query, Results: results})
}

// GetCounter godoc
// @Summary Daily counter
// @Tags knowledge
// @Produce json
// @Param date path string true "YYYY-MM-DD"
// @Success 200 {object} entities.DailyCounter
// @Failure 400 {object} ports.ErrorResponse
// @Router /counter/{date} [get]
func (h *KnowledgeHandler) GetCounter(c echo.Context) error {
	counter, err := h.counter.Get(c.Request().Context(), c.Param("date"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counter)
}

// IncrementCounter godoc
// @Summary Increment the daily counter
// @Tags knowledge
// @Accept json
// @Produce json
// @Param date path string true "YYYY-MM-DD"
// @Param request body ports.IncrementCounterRequest false "Delta, defaults to 1"
// @Success 200 {object} entities.DailyCounter
// @Failure 400 {object} ports.ErrorResponse
// @Router /counter/{date}/increment [post]
func (h *KnowledgeHandler) IncrementCounter(c echo.Context) error {
	var req ports.IncrementCounterRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest("Invalid request format", err)
		}
	}

	counter, err := h.counter.Increment(c.Request().Context(), c.Param("date"), req.Delta)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counter)
}
