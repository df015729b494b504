package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prith27/lra/internal/manager"
	"github.com/prith27/lra/internal/validator"
)

// CreateRequest is the body of POST /sandboxes.
type CreateRequest struct {
	Lang string `json:"lang"`
}

// ExecuteRequest is the body of POST /sandboxes/:id/execute.
type ExecuteRequest struct {
	Code string `json:"code" binding:"required"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreate(c *gin.Context) {
	req := CreateRequest{Lang: manager.LanguagePython}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	info, err := s.service.Create(c.Request.Context(), req.Lang)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.List(c.Request.Context()))
}

func (s *Server) handleGet(c *gin.Context) {
	info, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleExecute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := s.service.Execute(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// fail maps the manager's error taxonomy onto HTTP statuses in one place.
func (s *Server) fail(c *gin.Context, err error) {
	var rej *validator.RejectionError
	switch {
	case errors.As(err, &rej):
		respondError(c, http.StatusBadRequest, "VALIDATION_REJECTED", rej.Error())
	case errors.Is(err, manager.ErrUnsupportedLanguage):
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE", err.Error())
	case errors.Is(err, manager.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, manager.ErrRuntimeUnavailable):
		respondError(c, http.StatusServiceUnavailable, "RUNTIME_UNAVAILABLE", err.Error())
	case errors.Is(err, manager.ErrSandboxUnreachable):
		respondError(c, http.StatusServiceUnavailable, "SANDBOX_UNREACHABLE", err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
