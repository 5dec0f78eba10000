package viewer

import (
	"context"
	"errors"
	"image"
)

// LoadState is the Document lifecycle.
type LoadState string

const (
	LoadIdle    LoadState = "idle"
	LoadLoading LoadState = "loading"
	LoadReady   LoadState = "ready"
	LoadFailed  LoadState = "failed"
)

// ErrEmptyDocument is returned when the capability reports zero pages.
var ErrEmptyDocument = errors.New("document has no pages")

// Locator is an opaque reference to document content: a URL or an
// in-memory buffer. Exactly one field is expected to be set.
type Locator struct {
	URL  string
	Data []byte
}

// RenderRequest is what the Page Renderer asks the rasterizer for.
// Zero Width or Height means unconstrained.
type RenderRequest struct {
	Width  float64
	Height float64
	Scale  float64
}

// Opener is the external document-parsing capability.
type Opener interface {
	Open(ctx context.Context, loc Locator) (Handle, error)
}

// Handle is an opened document. RenderPage takes a 1-based index and may be
// called concurrently for different pages.
type Handle interface {
	NumPages() int
	RenderPage(ctx context.Context, index int, req RenderRequest) (image.Image, error)
	Close() error
}

// Document is the resource being viewed.
type Document struct {
	Locator   Locator
	PageCount int // 0 while unknown
	State     LoadState
	Reason    string
}

// Loader owns the Document and guards it with a generation counter so at
// most one load is in flight and stale completions are dropped.
type Loader struct {
	doc        Document
	generation uint64
}

// NewLoader creates an idle loader for loc.
func NewLoader(loc Locator) *Loader {
	return &Loader{doc: Document{Locator: loc, State: LoadIdle}}
}

// Document returns a copy of the current document state.
func (l *Loader) Document() Document {
	return l.doc
}

// Generation returns the current generation.
func (l *Loader) Generation() uint64 {
	return l.generation
}

// Begin starts a load. It refuses while a load is in flight or once the
// document has settled; only Reset makes it invocable again.
func (l *Loader) Begin() (uint64, bool) {
	if l.doc.State != LoadIdle {
		return 0, false
	}
	l.doc.State = LoadLoading
	return l.generation, true
}

// Complete applies a load result. It returns false when gen is stale.
func (l *Loader) Complete(gen uint64, pageCount int, err error) bool {
	if gen != l.generation || l.doc.State != LoadLoading {
		return false
	}
	if err == nil && pageCount < 1 {
		err = ErrEmptyDocument
	}
	if err != nil {
		l.doc.State = LoadFailed
		l.doc.Reason = err.Error()
		l.doc.PageCount = 0
		return true
	}
	l.doc.State = LoadReady
	l.doc.Reason = ""
	l.doc.PageCount = pageCount
	return true
}

// Reset discards the document state and invalidates every outstanding
// callback by bumping the generation.
func (l *Loader) Reset() {
	l.generation++
	l.doc = Document{Locator: l.doc.Locator, State: LoadIdle}
}
