package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/dossier-preview/internal/models"
	"github.com/Shimizu-Technology/dossier-preview/internal/session"
	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// abort writes an ErrorResponse and stops the chain.
func abort(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    code,
	})
}

// fail maps domain errors onto HTTP responses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		abort(c, http.StatusNotFound, "not_found", "Session not found")
	case errors.Is(err, session.ErrLimit):
		abort(c, http.StatusServiceUnavailable, "session_limit", "Too many open sessions. Close one and try again.")
	case errors.Is(err, viewer.ErrClosed):
		abort(c, http.StatusGone, "session_closed", "Session has been closed")
	case errors.Is(err, viewer.ErrNothingToRetry):
		abort(c, http.StatusConflict, "nothing_to_retry", "The viewer has no fault to recover from")
	case errors.Is(err, viewer.ErrBusy):
		abort(c, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, viewer.ErrNoPage):
		abort(c, http.StatusNotFound, "page_not_materialized", "Page is not part of the current view")
	default:
		log.Printf("❌ Unhandled error: %v", err)
		abort(c, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
