package kernel

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultAddr is where the kernel listens inside the container. The
// manager binds this port to an allocated host port at creation.
const DefaultAddr = ":8000"

// ExecuteRequest is the private wire contract between manager and kernel.
type ExecuteRequest struct {
	Code string `json:"code" binding:"required"`
}

// Server is the in-container HTTP listener.
type Server struct {
	runner Runner
	logger *zap.Logger
	router *gin.Engine
	httpd  *http.Server
}

// NewServer builds the kernel listener around the given runner.
func NewServer(runner Runner, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		runner: runner,
		logger: logger,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.router.POST("/execute", s.handleExecute)
	s.router.GET("/health", s.handleHealth)
	return s
}

func (s *Server) handleExecute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	start := time.Now()
	res := s.runner.Run(c.Request.Context(), req.Code)
	s.logger.Info("executed code",
		zap.Bool("success", res.Success),
		zap.Int("code_bytes", len(req.Code)),
		zap.Duration("duration", time.Since(start)))

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.httpd = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("kernel listening", zap.String("addr", addr))
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
