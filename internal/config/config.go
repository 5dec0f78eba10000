// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// Values are loaded into a plain struct, then checked once at startup with
// validator struct tags so a bad deployment fails fast instead of at the
// first request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultJWTSecret is the development secret; release mode refuses it.
const DefaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`

	// Auth: bearer tokens are issued by the accounts service; we only verify them.
	JWTSecret    string `validate:"required,min=16"`
	AuthDisabled bool

	// CORS
	AllowedOrigins []string `validate:"min=1,dive,required"`

	// Rate limiting (requests per hour per caller)
	RateLimit int `validate:"min=1"`

	// Rasterization
	RasterBackend     string `validate:"oneof=fitz poppler"`
	PdftoppmPath      string
	RenderConcurrency int    `validate:"min=1,max=16"`
	PagePolicy        string `validate:"oneof=best-effort strict"`
	DefaultMode       string `validate:"oneof=continuous paged"`

	// Document fetching
	FetchTimeout     time.Duration `validate:"required"`
	MaxDocumentBytes int64         `validate:"min=1"`

	// Sessions
	MaxSessions        int           `validate:"min=1"`
	SessionIdleTimeout time.Duration `validate:"required"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		JWTSecret:    getEnv("JWT_SECRET", DefaultJWTSecret),
		AuthDisabled: getEnvBool("AUTH_DISABLED", false),

		// CORS - in production, set this to the frontend URL
		AllowedOrigins: []string{
			getEnv("CORS_ORIGIN", "http://localhost:3000"), // CRA dev server default
		},

		RateLimit: getEnvInt("RATE_LIMIT", 600),

		RasterBackend:     getEnv("RASTER_BACKEND", "fitz"),
		PdftoppmPath:      getEnv("PDFTOPPM_PATH", ""),
		RenderConcurrency: getEnvInt("RENDER_CONCURRENCY", 4),
		PagePolicy:        getEnv("PAGE_POLICY", "best-effort"),
		DefaultMode:       getEnv("DEFAULT_MODE", "continuous"),

		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxDocumentBytes: int64(getEnvInt("MAX_DOCUMENT_BYTES", 50<<20)),

		MaxSessions:        getEnvInt("MAX_SESSIONS", 200),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the release-mode safety rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Security: release mode must not run with the development secret or
	// with authentication switched off.
	if c.GinMode == "release" && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}
	if c.GinMode == "release" && c.AuthDisabled {
		return fmt.Errorf("AUTH_DISABLED is not allowed in release mode")
	}
	return nil
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}

// getEnvBool reads a boolean ("true", "1", ...) with a fallback.
func getEnvBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return val
}

// getEnvDuration reads a Go duration string such as "30s".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}
