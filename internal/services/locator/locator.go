// Package locator resolves a document locator into bytes.
//
// The page-preview request flow hands the viewer either a signed URL or the
// document content itself. In-memory content passes straight through; URLs
// are fetched over HTTP with a size cap.
package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

var (
	// ErrEmptyLocator is returned when neither URL nor data is set.
	ErrEmptyLocator = errors.New("locator has neither URL nor data")
	// ErrTooLarge is returned when the document exceeds the size cap.
	ErrTooLarge = errors.New("document exceeds maximum size")
)

// Resolver fetches locator content.
type Resolver struct {
	client   *http.Client
	maxBytes int64
}

// New creates a resolver with the given fetch timeout and size cap.
func New(timeout time.Duration, maxBytes int64) *Resolver {
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Resolve returns the document bytes for loc.
func (r *Resolver) Resolve(ctx context.Context, loc viewer.Locator) ([]byte, error) {
	if len(loc.Data) > 0 {
		if r.maxBytes > 0 && int64(len(loc.Data)) > r.maxBytes {
			return nil, ErrTooLarge
		}
		return loc.Data, nil
	}
	if loc.URL == "" {
		return nil, ErrEmptyLocator
	}
	if err := ValidateURL(loc.URL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from document host", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if r.maxBytes > 0 {
		// Read one byte past the cap so an oversized body is detectable.
		body = io.LimitReader(resp.Body, r.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ValidateURL accepts only absolute http(s) URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid document URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("document URL has no host")
	}
	return nil
}
