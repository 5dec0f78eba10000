// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/dossier-preview/internal/handlers"
	"github.com/Shimizu-Technology/dossier-preview/internal/middleware"
)

// Options carries the router's cross-cutting settings.
type Options struct {
	JWTSecret      string
	AuthDisabled   bool
	AllowedOrigins []string
	RateLimit      int // requests per hour per caller
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(opts.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(opts.RateLimit)

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	auth := middleware.JWTAuth(opts.JWTSecret)
	if opts.AuthDisabled {
		auth = middleware.NoAuth()
	}

	// --- Protected Routes ---
	protected := r.Group("/api/v1")
	protected.Use(auth)
	protected.Use(rateLimiter.RateLimit())
	{
		protected.POST("/sessions", h.CreateSession)
		protected.GET("/sessions/:id", h.GetSession)
		protected.DELETE("/sessions/:id", h.DeleteSession)

		// Viewer operations
		protected.PUT("/sessions/:id/viewport", h.UpdateViewport)
		protected.POST("/sessions/:id/zoom/:action", h.Zoom)
		protected.POST("/sessions/:id/navigate/:action", h.Navigate)
		protected.PUT("/sessions/:id/page", h.SetPage)
		protected.PUT("/sessions/:id/mode", h.SetMode)
		protected.POST("/sessions/:id/retry", h.Retry)

		// Page surfaces are polled; keep them last so :page never shadows a verb.
		protected.GET("/sessions/:id/pages/:page", h.GetPage)
	}

	return r
}
