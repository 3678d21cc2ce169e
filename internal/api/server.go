// Package api exposes the backend HTTP surface: user state persistence,
// session bookkeeping, and the chat/extraction proxy. Every response uses
// the {success, data?, error?} envelope.
package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/health"
	"github.com/p-blackswan/architect-studio/internal/metrics"
	"github.com/p-blackswan/architect-studio/internal/requestid"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
}

// Server is the backend Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	checker  *health.Checker
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(
	cfg ServerConfig,
	handlers *Handlers,
	checker *health.Checker,
	metricsCollector *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:      app,
		handlers: handlers,
		checker:  checker,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger, metricsCollector)
	s.setupRoutes(handlers, metricsCollector)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger, metricsCollector *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	// Resolve the effective user for every request
	s.app.Use(NewUserMiddleware(cfg.Auth, logger))

	// Audit middleware (log + record every request, skip noisy probes)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		elapsed := time.Since(start)

		if metricsCollector != nil {
			route := c.Route().Path
			metricsCollector.RecordRequest(route, strconv.Itoa(status))
			metricsCollector.ObserveDuration(route, elapsed.Seconds())
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("ip", c.IP()).
			Msg("api request")
		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, metricsCollector *metrics.Metrics) {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/readyz", func(c *fiber.Ctx) error {
		results := s.checker.RunAll(c.UserContext())
		for _, status := range results {
			if status == health.StatusDown {
				return c.Status(fiber.StatusServiceUnavailable).
					JSON(fiber.Map{"status": "not_ready", "checks": results})
			}
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	})

	if metricsCollector != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(metricsCollector.Handler()))
	}

	if s.config.Auth.Enabled() {
		s.app.Post("/api/auth/demo", h.DemoLogin)
	}

	s.app.Get("/api/user/state", h.GetUserState)
	s.app.Post("/api/user/state", h.SetUserState)

	s.app.Get("/api/sessions", h.ListSessions)
	s.app.Post("/api/sessions", h.CreateSession)
	s.app.Delete("/api/sessions/:sessionId", h.DeleteSession)

	s.app.Post("/api/chat/:sessionId/extract", h.ExtractComponent)
	s.app.Post("/api/chat/:sessionId/chat", h.ChatMessage)
	s.app.Get("/api/chat/:sessionId/messages", h.ChatMessages)
	s.app.Delete("/api/chat/:sessionId/clear", h.ClearChat)

	// Everything else is a structured 404
	s.app.Use(func(c *fiber.Ctx) error {
		return fail(c, fiber.StatusNotFound, "Not found")
	})
}

// customErrorHandler keeps unhandled errors inside the envelope and out
// of the response body — no stack traces leak.
func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		message := "Internal error"
		if code == fiber.StatusNotFound {
			message = "Not found"
		}
		return fail(c, code, message)
	}
}

// App returns the underlying Fiber app (for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the server and blocks until shutdown.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("api server listening")
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
