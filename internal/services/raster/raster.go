// Package raster provides the document-parsing and rasterization capability
// the viewer delegates to.
//
// Two backends are available: "fitz" renders in-process with MuPDF through
// go-fitz, "poppler" counts pages with ledongthuc/pdf and shells out to
// pdftoppm for each page. Both preserve the aspect ratio and honor whichever
// single dimension the layout constrains.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

// Kind names a backend implementation.
type Kind string

const (
	KindFitz    Kind = "fitz"
	KindPoppler Kind = "poppler"
)

// DPI bounds for a single page render.
const (
	pointsPerInch = 72.0
	minDPI        = 18.0
	maxDPI        = 600.0
)

// ErrNotPDF is returned when the resolved bytes are not a PDF.
var ErrNotPDF = errors.New("content does not appear to be a valid PDF")

// Backend opens PDF bytes into a renderable handle.
type Backend interface {
	Name() string
	Open(ctx context.Context, data []byte) (viewer.Handle, error)
}

// Options configure backend construction.
type Options struct {
	PdftoppmPath string
}

// NewBackend creates the backend of the given kind.
func NewBackend(kind Kind, opts Options) (Backend, error) {
	switch kind {
	case KindFitz, "":
		return NewFitz(), nil
	case KindPoppler:
		return NewPoppler(opts.PdftoppmPath), nil
	default:
		return nil, fmt.Errorf("unknown raster backend %q", kind)
	}
}

// Resolver turns a locator into document bytes.
type Resolver interface {
	Resolve(ctx context.Context, loc viewer.Locator) ([]byte, error)
}

// Source adapts a Resolver and a Backend into a viewer.Opener.
type Source struct {
	resolver Resolver
	backend  Backend
}

// NewSource creates an opener.
func NewSource(resolver Resolver, backend Backend) *Source {
	return &Source{resolver: resolver, backend: backend}
}

// Open resolves loc, validates the bytes and opens them with the backend.
func (s *Source) Open(ctx context.Context, loc viewer.Locator) (viewer.Handle, error) {
	data, err := s.resolver.Resolve(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	if !ValidatePDF(data) {
		return nil, ErrNotPDF
	}
	h, err := s.backend.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return h, nil
}

// ValidatePDF checks the magic bytes. PDF files start with "%PDF-".
func ValidatePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// targetDPI picks the resolution at which a page of the given size in points
// comes out at the constrained dimension of req.
func targetDPI(pageWidth, pageHeight float64, req viewer.RenderRequest) float64 {
	dpi := pointsPerInch
	switch {
	case req.Width > 0 && pageWidth > 0:
		dpi = pointsPerInch * req.Width / pageWidth
	case req.Height > 0 && pageHeight > 0:
		dpi = pointsPerInch * req.Height / pageHeight
	}
	return math.Min(math.Max(dpi, minDPI), maxDPI)
}

// targetSize returns the pixel size for a page of the given size with the
// aspect ratio preserved around the constrained dimension.
func targetSize(pageWidth, pageHeight float64, req viewer.RenderRequest) (int, int) {
	if pageWidth <= 0 || pageHeight <= 0 {
		return 0, 0
	}
	switch {
	case req.Width > 0:
		w := math.Round(req.Width)
		return int(w), int(math.Round(w * pageHeight / pageWidth))
	case req.Height > 0:
		h := math.Round(req.Height)
		return int(math.Round(h * pageWidth / pageHeight)), int(h)
	}
	return int(math.Round(pageWidth)), int(math.Round(pageHeight))
}

// fit rescales src to exactly w×h. DPI rounding inside the rasterizer can
// leave the image a pixel or two off.
func fit(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if w <= 0 || h <= 0 || (b.Dx() == w && b.Dy() == h) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
