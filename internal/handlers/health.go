// Package handlers contains HTTP handler functions for the preview API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, Data, Status)
// - Middleware data (c.Get/c.Set)
//
// We group related handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/dossier-preview/internal/models"
	"github.com/Shimizu-Technology/dossier-preview/internal/session"
)

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Tests build a Handler
// around a session.Manager with a fake opener.
type Handler struct {
	Sessions *session.Manager
	Backend  string
	Version  string
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(sessions *session.Manager, backend, version string) *Handler {
	return &Handler{
		Sessions: sessions,
		Backend:  backend,
		Version:  version,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  h.Version,
		Backend:  h.Backend,
		Sessions: h.Sessions.Len(),
	})
}
