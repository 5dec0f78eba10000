// Package models defines the request and response shapes of the preview API.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `binding` tags are read by Gin (through go-playground/validator) when
// a handler calls ShouldBindJSON.
package models

import (
	"time"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// CreateSessionRequest is the JSON body for POST /api/v1/sessions.
// Either a signed URL or the raw document (base64 in JSON) must be given.
type CreateSessionRequest struct {
	URL    string `json:"url" binding:"required_without=Data,omitempty,url"`
	Data   []byte `json:"data" binding:"required_without=URL"`
	Mode   string `json:"mode" binding:"omitempty,oneof=continuous paged"`
	Width  int    `json:"width" binding:"omitempty,min=1,max=16384"`
	Height int    `json:"height" binding:"omitempty,min=1,max=16384"`
}

// ViewportRequest is a viewport-change notification.
type ViewportRequest struct {
	Width  int `json:"width" binding:"required,min=1,max=16384"`
	Height int `json:"height" binding:"required,min=1,max=16384"`
}

// PageRequest jumps to a page in paged mode.
type PageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// ModeRequest switches navigation mode.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=continuous paged"`
}

// SessionResponse describes a viewer session.
type SessionResponse struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	State     viewer.Snapshot `json:"state"`

	// Navbar-style "current / total" label.
	PageLabel string `json:"page_label"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Backend  string `json:"backend"`
	Sessions int    `json:"sessions"`
}
