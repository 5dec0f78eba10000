package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// Fitz renders with MuPDF (requires CGo).
type Fitz struct{}

// NewFitz creates the MuPDF backend.
func NewFitz() *Fitz {
	return &Fitz{}
}

// Name implements Backend.
func (f *Fitz) Name() string { return string(KindFitz) }

// Open parses data in memory.
func (f *Fitz) Open(ctx context.Context, data []byte) (viewer.Handle, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("mupdf: %w", err)
	}
	return &fitzHandle{doc: doc, pages: doc.NumPage()}, nil
}

// fitzHandle serializes access to the document; a MuPDF context must not be
// used from two goroutines at once.
type fitzHandle struct {
	mu    sync.Mutex
	doc   *fitz.Document
	pages int
}

func (h *fitzHandle) NumPages() int {
	return h.pages
}

func (h *fitzHandle) RenderPage(ctx context.Context, index int, req viewer.RenderRequest) (image.Image, error) {
	if index < 1 || index > h.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", index, h.pages)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// go-fitz pages are 0-based; Bound is reported at 72 DPI, i.e. in points.
	bound, err := h.doc.Bound(index - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read page bounds: %w", err)
	}
	pw, ph := float64(bound.Dx()), float64(bound.Dy())

	img, err := h.doc.ImageDPI(index-1, targetDPI(pw, ph, req))
	if err != nil {
		return nil, fmt.Errorf("mupdf render failed: %w", err)
	}

	tw, th := targetSize(pw, ph, req)
	return fit(img, tw, th), nil
}

func (h *fitzHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Close()
}
