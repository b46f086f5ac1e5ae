package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	httpHandlers "github.com/memoria/core/internal/adapters/http"
	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/application/services"
	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/cache"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/feeds"
	"github.com/memoria/core/internal/infrastructure/inference"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/media"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/infrastructure/preview"
	"github.com/memoria/core/internal/infrastructure/settings"

	_ "github.com/memoria/core/docs"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	db       *database.DB
	metrics  *metrics.Metrics
	calendar *services.CalendarService
}

// handlers groups everything mounted under /api
type handlers struct {
	tasks     *httpHandlers.TaskHandler
	calendar  *httpHandlers.CalendarHandler
	chat      *httpHandlers.ChatHandler
	settings  *httpHandlers.SettingsHandler
	media     *httpHandlers.MediaHandler
	knowledge *httpHandlers.KnowledgeHandler
	resources []interface{ Register(*echo.Group) }
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger, m *metrics.Metrics) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = httpHandlers.NewValidator()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Custom error handler
	e.HTTPErrorHandler = httpHandlers.ErrorHandler(appLogger)

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db)
	memoRepo := repository.NewMemoRepository(db)
	eventRepo := repository.NewEventRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	importedRepo := repository.NewImportedRecordRepository(db, appLogger)

	// Initialize infrastructure clients
	feedClient := feeds.NewClient(cfg.Calendar, appLogger)
	feedCache := cache.New[[]entities.CalendarEvent](cfg.Calendar.CacheTTL, nil)
	imageStore := media.NewStore(cfg.Storage.ImagesDir, cfg.Upload)
	settingsStore := settings.NewStore(cfg.Settings)

	// Initialize services
	taskService := services.NewTaskService(taskRepo, appLogger)
	calendarService := services.NewCalendarService(repository.NewCalendarSourceRepository(db), eventRepo, feedClient, feedCache, appLogger)
	chatService := services.NewChatService(repository.NewChatRepository(db), inference.NewClient(cfg.AI), appLogger)
	previewService := services.NewPreviewService(repository.NewLinkPreviewRepository(db), preview.NewFetcher(cfg.Preview), imageStore, appLogger)
	graphService := services.NewGraphService(memoRepo, searchRepo, importedRepo, appLogger)
	searchService := services.NewSearchService(searchRepo, importedRepo)
	counterService := services.NewCounterService(repository.NewCounterRepository(db))

	// Initialize handlers
	h := handlers{
		tasks:     httpHandlers.NewTaskHandler(taskService, appLogger),
		calendar:  httpHandlers.NewCalendarHandler(calendarService, appLogger),
		chat:      httpHandlers.NewChatHandler(chatService, appLogger),
		settings:  httpHandlers.NewSettingsHandler(settingsStore, appLogger),
		media:     httpHandlers.NewMediaHandler(previewService, imageStore, appLogger),
		knowledge: httpHandlers.NewKnowledgeHandler(graphService, searchService, counterService, appLogger),
		resources: []interface{ Register(*echo.Group) }{
			httpHandlers.NewResourceHandler[entities.Memo]("memos",
				services.NewResourceService[entities.Memo]("memos", memoRepo, appLogger, services.PrepareMemo), appLogger),
			httpHandlers.NewResourceHandler[entities.Bookmark]("bookmarks",
				services.NewResourceService[entities.Bookmark]("bookmarks", repository.NewBookmarkRepository(db), appLogger, services.PrepareBookmark), appLogger),
			httpHandlers.NewResourceHandler[entities.Event]("events",
				services.NewResourceService[entities.Event]("events", eventRepo, appLogger, services.PrepareEvent), appLogger),
			httpHandlers.NewResourceHandler[entities.Notebook]("notebooks",
				services.NewResourceService[entities.Notebook]("notebooks", repository.NewNotebookRepository(db), appLogger, services.PrepareNotebook), appLogger),
			httpHandlers.NewResourceHandler[entities.Identity]("identities",
				services.NewResourceService[entities.Identity]("identities", repository.NewIdentityRepository(db), appLogger, services.PrepareIdentity), appLogger),
			httpHandlers.NewResourceHandler[entities.CredentialGroup]("credential-groups",
				services.NewResourceService[entities.CredentialGroup]("credential-groups", repository.NewCredentialGroupRepository(db), appLogger, services.PrepareCredentialGroup), appLogger),
			httpHandlers.NewResourceHandler[entities.ToolboxItem]("toolbox",
				services.NewResourceService[entities.ToolboxItem]("toolbox", repository.NewToolboxRepository(db), appLogger, nil), appLogger),
		},
	}

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		db:       db,
		metrics:  m,
		calendar: calendarService,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled && m != nil {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(h)

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Stored images
	s.echo.Static(media.URLPrefix, s.config.Storage.ImagesDir)

	api := s.echo.Group("/api")

	api.GET("/tasks", h.tasks.GetTasks)
	api.PUT("/tasks/:date", h.tasks.SaveTasks)

	for _, r := range h.resources {
		r.Register(api)
	}

	calendar := api.Group("/calendar")
	calendar.GET("/sources", h.calendar.ListSources)
	calendar.POST("/sources", h.calendar.CreateSource)
	calendar.DELETE("/sources/:id", h.calendar.DeleteSource)
	calendar.GET("/events", h.calendar.Events)

	api.POST("/chat", h.chat.Send)
	api.GET("/chat/:conversation_id", h.chat.History)

	api.GET("/settings", h.settings.Get)
	api.PUT("/settings", h.settings.Update)

	api.GET("/link-preview", h.media.LinkPreview)
	api.POST("/upload", h.media.Upload)

	api.GET("/graph", h.knowledge.Graph)
	api.GET("/search", h.knowledge.Search)
	api.GET("/counter/:date", h.knowledge.GetCounter)
	api.POST("/counter/:date/increment", h.knowledge.IncrementCounter)
}

// SyncCalendarSources mirrors the configured feed URLs into env-typed sources
func (s *Server) SyncCalendarSources(ctx context.Context) error {
	_, _, err := s.calendar.SyncEnvSources(ctx, s.config.Calendar.FeedList())
	return err
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Check if server is ready to accept requests
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}
