// Package httpapi exposes the plannerd calendar and suggestion lifecycle
// over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/plannerd/internal/scheduler"
	"github.com/fyrsmithlabs/plannerd/internal/store"
)

// localUser is the identity attached to requests in single-user mode.
const localUser = "local"

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Token is the bearer token required on /api/v1 routes. Empty
	// disables authentication and resolves every request to the local
	// user.
	Token string

	// RateLimit is requests per second per client IP; RateBurst the
	// burst allowance. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server provides the HTTP endpoints for plannerd.
type Server struct {
	echo      *echo.Echo
	svc       scheduler.Service
	tasks     store.TaskStore
	schedules store.ScheduleStore
	logger    *zap.Logger
	config    *Config
	metrics   *Metrics

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewServer creates a new HTTP server.
func NewServer(svc scheduler.Service, tasks store.TaskStore, schedules store.ScheduleStore, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("scheduler service cannot be nil")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if schedules == nil {
		return nil, fmt.Errorf("schedule store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9180}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		svc:         svc,
		tasks:       tasks,
		schedules:   schedules,
		logger:      logger,
		config:      cfg,
		metrics:     NewMetrics(logger),
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(s.requestLogger())
	e.Use(s.metrics.Middleware())
	if cfg.RateLimit > 0 {
		e.Use(s.rateLimiter())
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1", s.authenticate())

	v1.GET("/calendar", s.handleCalendar)
	v1.POST("/calendar/reset", s.handleCalendarReset)
	v1.POST("/calendar/regenerate", s.handleRegenerate)
	v1.POST("/calendar/buffer", s.handleAddBuffer)
	v1.POST("/calendar/shift", s.handleShift)

	v1.POST("/suggestions/apply", s.handleApply)
	v1.POST("/suggestions/apply-all", s.handleApplyAll)
	v1.POST("/suggestions/:id/deny", s.handleDeny)
	v1.POST("/suggestions/pencil", s.handlePencilIn)
	v1.GET("/suggestions/pencil/:id", s.handleIsPenciled)
	v1.DELETE("/suggestions/pencil/:id", s.handleUnpencil)

	v1.POST("/schedule/reset", s.handleScheduleReset)

	v1.GET("/tasks", s.handleListTasks)
	v1.POST("/tasks", s.handleCreateTask)
	v1.GET("/tasks/:id", s.handleGetTask)
	v1.PATCH("/tasks/:id", s.handleUpdateTask)
	v1.POST("/tasks/:id/session", s.handleScheduleSession)
	v1.DELETE("/tasks/:id/session", s.handleClearSession)

	v1.GET("/schedules", s.handleListSchedules)
	v1.POST("/schedules", s.handleCreateSchedule)
}

// requestLogger logs every request with its outcome.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			s.logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

// authenticate validates the bearer token and attaches the resolved user
// to the request context.
func (s *Server) authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.config.Token != "" {
				auth := c.Request().Header.Get(echo.HeaderAuthorization)
				if auth != "Bearer "+s.config.Token {
					s.logger.Warn("rejected request with invalid token",
						zap.String("uri", c.Request().RequestURI))
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing bearer token")
				}
			}

			ctx := scheduler.WithUser(c.Request().Context(), localUser)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// rateLimiter enforces a per-client-IP request rate.
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.limiterFor(c.RealIP()).Allow() {
				s.logger.Warn("rate limit exceeded", zap.String("ip", c.RealIP()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// limiterFor returns the rate limiter for a client IP.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop all limiters hourly to bound memory.
	if time.Since(s.lastCleanup) > time.Hour {
		s.limiters = make(map[string]*rate.Limiter)
		s.lastCleanup = time.Now()
	}

	l, ok := s.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst)
		s.limiters[ip] = l
	}
	return l
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
