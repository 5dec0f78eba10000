// sessions.go exposes the viewer's user operations over HTTP.
//
// POST   /api/v1/sessions                       - open a document
// GET    /api/v1/sessions/:id                   - current state
// DELETE /api/v1/sessions/:id                   - tear the viewer down
// PUT    /api/v1/sessions/:id/viewport          - viewport-change notification
// POST   /api/v1/sessions/:id/zoom/:action      - in | out | reset
// POST   /api/v1/sessions/:id/navigate/:action  - next | previous
// PUT    /api/v1/sessions/:id/page              - jump to a page
// PUT    /api/v1/sessions/:id/mode              - continuous | paged
// POST   /api/v1/sessions/:id/retry             - fallback retry
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/dossier-preview/internal/middleware"
	"github.com/Shimizu-Technology/dossier-preview/internal/models"
	"github.com/Shimizu-Technology/dossier-preview/internal/services/locator"
	"github.com/Shimizu-Technology/dossier-preview/internal/session"
	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// CreateSession opens a viewer on the given document and starts loading it.
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "Provide either 'url' or 'data': "+err.Error())
		return
	}
	if req.URL != "" {
		if err := locator.ValidateURL(req.URL); err != nil {
			abort(c, http.StatusBadRequest, "invalid_url", err.Error())
			return
		}
	}

	// An empty mode keeps the server default.
	var mode viewer.Mode
	if req.Mode != "" {
		m, err := viewer.ParseMode(req.Mode)
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid_mode", err.Error())
			return
		}
		mode = m
	}

	vp := viewer.DefaultViewport
	if req.Width > 0 && req.Height > 0 {
		vp = viewer.NewViewport(req.Width, req.Height)
	}

	s, err := h.Sessions.Create(session.CreateParams{
		Owner:    middleware.GetCaller(c),
		Locator:  viewer.Locator{URL: req.URL, Data: req.Data},
		Mode:     mode,
		Viewport: vp,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, s)
}

// GetSession returns the session's current state.
// GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, s)
}

// DeleteSession closes the viewer.
// DELETE /api/v1/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Param("id"), middleware.GetCaller(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateViewport publishes a viewport-change notification to the viewer.
// PUT /api/v1/sessions/:id/viewport
func (h *Handler) UpdateViewport(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s.Viewport.Publish(viewer.NewViewport(req.Width, req.Height))
	respond(c, http.StatusOK, s)
}

// Zoom adjusts the scale.
// POST /api/v1/sessions/:id/zoom/:action
func (h *Handler) Zoom(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	var op func() error
	switch c.Param("action") {
	case "in":
		op = s.Viewer.ZoomIn
	case "out":
		op = s.Viewer.ZoomOut
	case "reset":
		op = s.Viewer.ResetZoom
	default:
		abort(c, http.StatusBadRequest, "invalid_action", "Zoom action must be 'in', 'out' or 'reset'")
		return
	}
	h.apply(c, s, op)
}

// Navigate moves between pages.
// POST /api/v1/sessions/:id/navigate/:action
func (h *Handler) Navigate(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	var op func() error
	switch c.Param("action") {
	case "next":
		op = s.Viewer.Next
	case "previous":
		op = s.Viewer.Previous
	default:
		abort(c, http.StatusBadRequest, "invalid_action", "Navigate action must be 'next' or 'previous'")
		return
	}
	h.apply(c, s, op)
}

// SetPage jumps to a page. Pages outside 1..page_count are rejected.
// PUT /api/v1/sessions/:id/page
func (h *Handler) SetPage(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := s.Viewer.GoTo(req.Page); err != nil {
		fail(c, err)
		return
	}
	snap, err := s.Viewer.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	if snap.CurrentPage != req.Page {
		abort(c, http.StatusUnprocessableEntity, "page_out_of_range",
			fmt.Sprintf("Page %d is not between 1 and %d", req.Page, snap.PageCount))
		return
	}
	c.JSON(http.StatusOK, buildResponse(s, snap))
}

// SetMode switches between continuous and paged navigation.
// PUT /api/v1/sessions/:id/mode
func (h *Handler) SetMode(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req models.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	mode, err := viewer.ParseMode(req.Mode)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	h.apply(c, s, func() error { return s.Viewer.SetMode(mode) })
}

// Retry is the fallback's retry action.
// POST /api/v1/sessions/:id/retry
func (h *Handler) Retry(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	h.apply(c, s, s.Viewer.Retry)
}

// lookup resolves :id for the calling owner, writing the error response
// itself when the session is unknown.
func (h *Handler) lookup(c *gin.Context) (*session.Session, bool) {
	s, err := h.Sessions.Get(c.Param("id"), middleware.GetCaller(c))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return s, true
}

// apply runs op and responds with the resulting state.
func (h *Handler) apply(c *gin.Context, s *session.Session, op func() error) {
	if err := op(); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, s)
}

func respond(c *gin.Context, code int, s *session.Session) {
	snap, err := s.Viewer.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(code, buildResponse(s, snap))
}

func buildResponse(s *session.Session, snap viewer.Snapshot) models.SessionResponse {
	return models.SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		State:     snap,
		PageLabel: pageLabel(snap),
	}
}

// pageLabel renders the navbar "current / total" text. It is empty until
// the page count is known.
func pageLabel(snap viewer.Snapshot) string {
	if snap.PageCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d / %d", snap.CurrentPage, snap.PageCount)
}
