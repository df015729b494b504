// Package server exposes the sandbox manager over HTTP and wraps that
// boundary with access control: optional bearer-key authentication and
// per-client rate limiting.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/manager"
)

// SandboxService is the slice of the manager the HTTP layer needs.
// *manager.Manager satisfies it; tests substitute a fake.
type SandboxService interface {
	Create(ctx context.Context, lang string) (manager.Info, error)
	List(ctx context.Context) []manager.Info
	Get(ctx context.Context, id string) (manager.Info, error)
	Execute(ctx context.Context, id, code string) (kernel.Result, error)
	Delete(ctx context.Context, id string) error
}

// Config holds the HTTP-boundary settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// APIKey enables bearer authentication when non-empty. An empty key
	// means authentication is bypassed entirely; enabling it is an
	// explicit deployment opt-in.
	APIKey string

	// RateLimitMax is the request budget per client per window.
	RateLimitMax int

	// RateLimitWindow is the window length.
	RateLimitWindow time.Duration
}

// Validate applies defaults in place.
func (c *Config) Validate() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = DefaultRateLimitMax
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
}

// Server routes requests through the middleware chain to the manager.
type Server struct {
	config  Config
	logger  *zap.Logger
	service SandboxService
	router  *gin.Engine
	httpd   *http.Server
}

// New builds the router with rate limiting always on and authentication
// only when an API key is configured.
func New(cfg Config, service SandboxService, logger *zap.Logger) *Server {
	cfg.Validate()
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:  cfg,
		logger:  logger,
		service: service,
		router:  gin.New(),
	}

	// Authentication runs before rate limiting, so a rejected credential
	// never consumes the client's budget.
	limiter := newRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	s.router.Use(gin.Recovery())
	if cfg.APIKey != "" {
		s.router.Use(authMiddleware(cfg.APIKey))
	}
	s.router.Use(limiter.middleware())

	s.router.GET("/health", s.handleHealth)
	s.router.POST("/sandboxes", s.handleCreate)
	s.router.GET("/sandboxes", s.handleList)
	s.router.GET("/sandboxes/:id", s.handleGet)
	s.router.POST("/sandboxes/:id/execute", s.handleExecute)
	s.router.DELETE("/sandboxes/:id", s.handleDelete)

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpd = &http.Server{Addr: s.config.Addr, Handler: s.router}
	s.logger.Info("sandbox api listening",
		zap.String("addr", s.config.Addr),
		zap.Bool("auth", s.config.APIKey != ""))
	if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpd == nil {
		return nil
	}
	return s.httpd.Shutdown(ctx)
}
