package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/planboard/core/internal/adapters/http"
	"github.com/planboard/core/internal/adapters/repository"
	"github.com/planboard/core/internal/application/services"
	"github.com/planboard/core/internal/domain/entities"
	"github.com/planboard/core/internal/history"
	"github.com/planboard/core/internal/infrastructure/config"
	"github.com/planboard/core/internal/infrastructure/database"
	"github.com/planboard/core/internal/infrastructure/logger"
	"github.com/planboard/core/internal/infrastructure/metrics"
	"github.com/planboard/core/internal/ports"
	"github.com/planboard/core/internal/timeline"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	db     *database.DB
	cancel context.CancelFunc
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		return timeline.ValidDateKey(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register datekey validation: %w", err)
	}
	return v, nil
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger, m *metrics.Metrics) (*Server, error) {
	e := echo.New()

	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	e.Validator = &CustomValidator{validator: v}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	stateStore, err := repository.NewSQLStateStore(db.DB)
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}

	// Initialize services
	hist := history.NewManager(cfg.History.Limit)
	boardService := services.NewBoardService(stateStore, hist, m, appLogger.WithComponent("board"))
	layoutService := services.NewLayoutService(time.Now(), appLogger.WithComponent("layout"))
	fileService := services.NewFileService(stateStore, cfg.AutoSave, m, appLogger.WithComponent("file"))

	ctx, cancel := context.WithCancel(context.Background())

	// Every recorded edit flows into auto-save; every external file
	// change flows back into the board without touching the history.
	boardService.SetOnChange(func(doc entities.ExportData) {
		fileService.AutoSave(ctx, doc)
	})
	fileService.SetOnReload(func(doc entities.ExportData) {
		boardService.Import(ctx, doc)
	})

	openHandle := func(name string) (ports.SourceHandle, error) {
		return repository.OpenFileHandle(name)
	}
	createHandle := func(name string) (ports.SourceHandle, error) {
		return repository.CreateFileHandle(name)
	}

	// Restore state from the previous run: local keys first, then the
	// linked file if one was remembered.
	boardService.LoadLocalState(ctx)
	if doc, ok, err := fileService.RestoreLast(ctx, openHandle); err != nil {
		appLogger.Warnw("Restore of linked file failed", "error", err)
	} else if ok {
		boardService.Import(ctx, doc)
	}

	if cfg.AutoReload.Enabled {
		fileService.StartAutoReload(ctx, cfg.AutoReload.Interval)
	}

	// Initialize handlers
	httpLogger := appLogger.WithComponent("http")
	boardHandler := httpHandlers.NewBoardHandler(boardService, layoutService, fileService, httpLogger)
	layoutHandler := httpHandlers.NewLayoutHandler(boardService, layoutService, httpLogger)
	fileHandler := httpHandlers.NewFileHandler(boardService, fileService, openHandle, createHandle, httpLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		db:     db,
		cancel: cancel,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(boardHandler, layoutHandler, fileHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics(m)
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			latencyMS := float64(values.Latency.Nanoseconds()) / 1000000

			if values.Error != nil {
				s.logger.WithError(values.Error).Errorw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency_ms", latencyMS,
					"remote_ip", values.RemoteIP,
					"user_agent", values.UserAgent,
				)
				return nil
			}

			s.logger.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, latencyMS)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(boardHandler *httpHandlers.BoardHandler, layoutHandler *httpHandlers.LayoutHandler, fileHandler *httpHandlers.FileHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Board routes
	boardGroup := v1.Group("/board")
	boardGroup.GET("", boardHandler.GetBoard)
	boardGroup.POST("/undo", boardHandler.Undo)
	boardGroup.POST("/redo", boardHandler.Redo)
	boardGroup.PUT("/settings", boardHandler.UpdateSettings)
	boardGroup.POST("/reset", boardHandler.Reset)

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.POST("", boardHandler.CreateTask)
	taskGroup.PUT("/:id", boardHandler.UpdateTask)
	taskGroup.DELETE("/:id", boardHandler.DeleteTask)
	taskGroup.POST("/:id/move", boardHandler.MoveTask)
	taskGroup.POST("/:id/duplicate", boardHandler.DuplicateTask)
	taskGroup.POST("/:id/subtasks", boardHandler.AddSubtask)
	taskGroup.POST("/:id/subtasks/reorder", boardHandler.ReorderSubtasks)
	taskGroup.PUT("/:id/subtasks/:subtaskId", boardHandler.UpdateSubtask)
	taskGroup.DELETE("/:id/subtasks/:subtaskId", boardHandler.DeleteSubtask)

	// Category routes
	categoryGroup := v1.Group("/categories")
	categoryGroup.POST("", boardHandler.AddCategory)
	categoryGroup.PUT("/:id", boardHandler.RenameCategory)
	categoryGroup.DELETE("/:id", boardHandler.DeleteCategory)

	// Event routes
	eventGroup := v1.Group("/events")
	eventGroup.POST("", boardHandler.CreateEvent)
	eventGroup.PUT("/:id", boardHandler.UpdateEvent)
	eventGroup.DELETE("/:id", boardHandler.DeleteEvent)
	eventGroup.POST("/:id/duplicate", boardHandler.DuplicateEvent)

	// Layout routes
	layoutGroup := v1.Group("/layout")
	layoutGroup.GET("", layoutHandler.GetLayout)
	layoutGroup.PUT("/view", layoutHandler.SetViewMode)
	layoutGroup.PUT("/compact", layoutHandler.SetCompact)
	layoutGroup.PUT("/group", layoutHandler.SetGroupMode)
	layoutGroup.POST("/navigate", layoutHandler.Navigate)
	layoutGroup.POST("/today", layoutHandler.Today)

	// Drag routes
	dragGroup := v1.Group("/drag")
	dragGroup.POST("/begin", layoutHandler.BeginDrag)
	dragGroup.POST("/cancel", layoutHandler.CancelDrag)
	dragGroup.POST("/drop", layoutHandler.Drop)

	// File routes
	fileGroup := v1.Group("/file")
	fileGroup.GET("/status", fileHandler.GetStatus)
	fileGroup.POST("/link", fileHandler.Link)
	fileGroup.DELETE("/link", fileHandler.Unlink)
	fileGroup.POST("/save", fileHandler.Save)
	fileGroup.POST("/reload", fileHandler.Reload)
	fileGroup.GET("/export", fileHandler.Export)
	fileGroup.POST("/import", fileHandler.Import)
}

// setupMetrics exposes the board collectors
func (s *Server) setupMetrics(m *metrics.Metrics) {
	metricsHandler := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "state_database_not_ready",
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
	s.logger.Info("Shutting down server")
	s.cancel()
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if ve, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": ve.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
