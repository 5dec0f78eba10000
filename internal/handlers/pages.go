// pages.go serves rendered page surfaces.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// renderStateHeader tells the client how a page request resolved.
const renderStateHeader = "X-Render-State"

// GetPage returns the PNG surface for one page.
// GET /api/v1/sessions/:id/pages/:page
//
// Pending pages answer 404 so clients poll; failed pages answer 422 with
// the fault reason. Either way the rest of the document is unaffected.
func (h *Handler) GetPage(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("page"))
	if err != nil || index < 1 {
		abort(c, http.StatusBadRequest, "invalid_page", "Page must be a positive integer")
		return
	}

	rec, surface, err := s.Viewer.Surface(index)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header(renderStateHeader, string(rec.State))
	switch rec.State {
	case viewer.RenderRendered:
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", surface)
	case viewer.RenderFailed:
		abort(c, http.StatusUnprocessableEntity, "render_failed", rec.Reason)
	default:
		abort(c, http.StatusNotFound, "page_pending", "Page is still rendering")
	}
}
