package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("viewer is closed")
	// ErrBusy is returned by Load when the document is not idle.
	ErrBusy = errors.New("document load already started; use retry to reload")
	// ErrNothingToRetry is returned by Retry when no fault is showing.
	ErrNothingToRetry = errors.New("no fault to recover from")
	// ErrNoPage is returned for pages that are not materialized.
	ErrNoPage = errors.New("page is not materialized")
)

// DefaultRenderConcurrency bounds rasterizations in flight per viewer.
const DefaultRenderConcurrency = 4

// Options configure a Viewer.
type Options struct {
	Mode              Mode
	PagePolicy        PagePolicy
	RenderConcurrency int
	Source            ViewportSource // nil means a static DefaultViewport
	Logf              func(format string, args ...any)
}

// Snapshot is a consistent copy of every controller's state.
type Snapshot struct {
	Generation  uint64         `json:"generation"`
	LoadState   LoadState      `json:"load_state"`
	Reason      string         `json:"reason,omitempty"`
	PageCount   int            `json:"page_count"`
	Mode        Mode           `json:"mode"`
	CurrentPage int            `json:"current_page"`
	Scale       float64        `json:"scale"`
	ZoomPercent int            `json:"zoom_percent"`
	Viewport    Viewport       `json:"viewport"`
	Layout      Dimensions     `json:"layout"`
	Policy      Policy         `json:"policy"`
	Indicator   IndicatorState `json:"indicator"`
	Shell       ShellState     `json:"shell"`
	Fault       *RenderFault   `json:"fault,omitempty"`
	Pages       []PageRecord   `json:"pages"`
}

// scope is everything tied to one generation: in-flight work is cancelled
// through ctx and the handle is closed once that work has drained.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	handle Handle
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

// release cancels the scope and closes its handle in the background.
func (s *scope) release() {
	s.cancel()
	go func() {
		s.wg.Wait()
		if s.handle != nil {
			s.handle.Close()
		}
	}()
}

// Viewer composes the controllers into the rendering pipeline.
//
// Go Pattern: All controller state is touched only by the run goroutine.
// Public methods post a closure onto the events channel and wait for it;
// async completions post closures too. A completion whose generation no
// longer matches is dropped, which makes teardown and retry safe without
// locks on the controllers.
type Viewer struct {
	opener Opener
	opts   Options
	logf   func(format string, args ...any)
	sem    *semaphore.Weighted

	loader    *Loader
	nav       *Navigator
	zoom      *Zoom
	monitor   *Monitor
	pages     *PageSet
	indicator *Indicator
	shell     *Shell

	layout Dimensions
	scope  *scope

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a viewer for loc and starts its event loop. The viewport is
// sampled immediately; call Load to start resolving the document.
func New(opener Opener, loc Locator, opts Options) *Viewer {
	if opts.RenderConcurrency < 1 {
		opts.RenderConcurrency = DefaultRenderConcurrency
	}
	if opts.PagePolicy == "" {
		opts.PagePolicy = BestEffort
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	v := &Viewer{
		opener:    opener,
		opts:      opts,
		logf:      logf,
		sem:       semaphore.NewWeighted(int64(opts.RenderConcurrency)),
		loader:    NewLoader(loc),
		nav:       NewNavigator(opts.Mode),
		zoom:      NewZoom(),
		pages:     NewPageSet(),
		indicator: NewIndicator(),
		shell:     NewShell(),
		scope:     newScope(),
		events:    make(chan func()),
		done:      make(chan struct{}),
	}
	v.monitor = NewMonitor(opts.Source, func(vp Viewport) {
		v.post(func() { v.onViewport(vp) })
	})

	go v.run()
	v.do(func() {
		v.monitor.Start()
		v.layout = ComputeLayout(v.monitor.Current(), v.zoom.Scale())
	})
	return v
}

func (v *Viewer) run() {
	for {
		select {
		case fn := <-v.events:
			fn()
		case <-v.done:
			return
		}
	}
}

// post queues fn on the event loop. It reports false once the viewer is closed.
func (v *Viewer) post(fn func()) bool {
	select {
	case v.events <- fn:
		return true
	case <-v.done:
		return false
	}
}

// do runs fn on the event loop and waits for it.
func (v *Viewer) do(fn func()) error {
	finished := make(chan struct{})
	if !v.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-v.done:
		// fn may have been the one that closed the viewer.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Load resolves the document. It is single-attempt; after it settles only
// Retry can start another load.
func (v *Viewer) Load() error {
	var err error
	if doErr := v.do(func() { err = v.startLoad() }); doErr != nil {
		return doErr
	}
	return err
}

func (v *Viewer) startLoad() error {
	gen, ok := v.loader.Begin()
	if !ok {
		return ErrBusy
	}
	doc := v.loader.Document()
	sc := v.scope
	v.logf("📄 Loading document (generation %d)", gen)

	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		h, err := v.opener.Open(sc.ctx, doc.Locator)
		delivered := v.post(func() { v.onLoaded(gen, sc, h, err) })
		if !delivered && h != nil {
			h.Close()
		}
	}()
	return nil
}

func (v *Viewer) onLoaded(gen uint64, sc *scope, h Handle, err error) {
	count := 0
	if err == nil && h != nil {
		count = h.NumPages()
	}
	if err == nil && h == nil {
		err = errors.New("opener returned no document")
	}
	if !v.loader.Complete(gen, count, err) {
		if h != nil {
			h.Close()
		}
		return
	}

	doc := v.loader.Document()
	if doc.State == LoadFailed {
		if h != nil {
			h.Close()
		}
		fault := DocumentLoadError(errors.New(doc.Reason))
		v.logf("❌ Document load failed: %s", doc.Reason)
		v.indicator.DocumentFailed()
		v.shell.Capture(fault)
		return
	}

	sc.handle = h
	v.logf("✅ Document ready: %d pages", doc.PageCount)
	v.nav.Bind(doc.PageCount)
	v.syncPages()
}

// syncPages materializes records for the navigation mode and renders new ones.
func (v *Viewer) syncPages() {
	if v.loader.Document().State != LoadReady {
		return
	}
	for _, idx := range v.pages.Materialize(v.nav.Materialized()) {
		v.renderPage(idx)
	}
}

// relayout recomputes dimensions and re-renders every materialized page
// when they changed.
func (v *Viewer) relayout() {
	next := ComputeLayout(v.monitor.Current(), v.zoom.Scale())
	if next == v.layout {
		return
	}
	v.layout = next
	if v.loader.Document().State != LoadReady {
		return
	}
	for _, idx := range v.pages.Indices() {
		v.renderPage(idx)
	}
}

func (v *Viewer) renderPage(index int) {
	if v.shell.Suspended() {
		return
	}
	ticket, ok := v.pages.Begin(index, v.layout)
	if !ok {
		return
	}
	gen := v.loader.Generation()
	sc := v.scope
	h := sc.handle
	req := RenderRequest{Width: v.layout.Width, Height: v.layout.Height, Scale: v.zoom.Scale()}

	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		if err := v.sem.Acquire(sc.ctx, 1); err != nil {
			return
		}
		img, err := h.RenderPage(sc.ctx, index, req)
		v.sem.Release(1)

		var surface []byte
		if err == nil {
			surface, err = encodeSurface(img)
		}
		v.post(func() { v.onRendered(gen, index, ticket, surface, err) })
	}()
}

func (v *Viewer) onRendered(gen uint64, index int, ticket uint64, surface []byte, err error) {
	if gen != v.loader.Generation() {
		return
	}
	if _, ok := v.pages.Complete(index, ticket, surface, err); !ok {
		// Paged navigation may have dropped the record while it rendered;
		// its terminal event still counts toward first paint.
		if _, present := v.pages.Get(index); !present {
			v.indicator.PageSettled(index)
		}
		return
	}
	v.indicator.PageSettled(index)
	if err == nil {
		return
	}

	fault := PageRenderError(index, err)
	if v.opts.PagePolicy == Strict {
		v.logf("❌ Page %d failed, escalating: %v", index, err)
		v.shell.Capture(fault)
		return
	}
	v.logf("⚠️  Page %d failed to render: %v", index, err)
}

func encodeSurface(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("rasterizer returned no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}

func (v *Viewer) onViewport(vp Viewport) {
	v.monitor.Update(vp)
	v.relayout()
}

// Retry performs the fallback's retry action: a full reset of document,
// navigation, page records and indicator, then exactly one new load.
func (v *Viewer) Retry() error {
	var err error
	if doErr := v.do(func() {
		if !v.shell.Retry() {
			err = ErrNothingToRetry
			return
		}
		v.logf("🔄 Retrying document load")
		v.reset()
		err = v.startLoad()
	}); doErr != nil {
		return doErr
	}
	return err
}

func (v *Viewer) reset() {
	v.loader.Reset()
	v.nav.Reset()
	v.pages.Reset()
	v.indicator.Reset()
	v.scope.release()
	v.scope = newScope()
}

// ZoomIn raises the scale by 0.1 up to 2.0.
func (v *Viewer) ZoomIn() error {
	return v.do(func() {
		if v.zoom.ZoomIn() {
			v.relayout()
		}
	})
}

// ZoomOut lowers the scale by 0.1 down to 0.5.
func (v *Viewer) ZoomOut() error {
	return v.do(func() {
		if v.zoom.ZoomOut() {
			v.relayout()
		}
	})
}

// ResetZoom returns the scale to 1.0.
func (v *Viewer) ResetZoom() error {
	return v.do(func() {
		if v.zoom.Reset() {
			v.relayout()
		}
	})
}

// Next moves to the following page.
func (v *Viewer) Next() error {
	return v.navigate(v.nav.Next)
}

// Previous moves to the preceding page.
func (v *Viewer) Previous() error {
	return v.navigate(v.nav.Previous)
}

// GoTo jumps to page; out-of-range pages are ignored.
func (v *Viewer) GoTo(page int) error {
	return v.navigate(func() bool { return v.nav.GoTo(page) })
}

func (v *Viewer) navigate(step func() bool) error {
	return v.do(func() {
		if step() {
			v.syncPages()
		}
	})
}

// SetMode switches between paged and continuous navigation.
func (v *Viewer) SetMode(m Mode) error {
	return v.do(func() {
		if v.nav.SetMode(m) {
			v.syncPages()
		}
	})
}

// Snapshot copies the current state.
func (v *Viewer) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := v.do(func() {
		doc := v.loader.Document()
		s = Snapshot{
			Generation:  v.loader.Generation(),
			LoadState:   doc.State,
			Reason:      doc.Reason,
			PageCount:   doc.PageCount,
			Mode:        v.nav.Mode(),
			CurrentPage: v.nav.Current(),
			Scale:       v.zoom.Scale(),
			ZoomPercent: v.zoom.Percent(),
			Viewport:    v.monitor.Current(),
			Layout:      v.layout,
			Policy:      v.layout.Policy(),
			Indicator:   v.indicator.State(),
			Shell:       v.shell.State(),
			Fault:       v.shell.Fault(),
			Pages:       v.pages.Snapshot(),
		}
	})
	return s, err
}

// Surface returns the record for index along with its encoded image.
func (v *Viewer) Surface(index int) (PageRecord, []byte, error) {
	var (
		rec     PageRecord
		surface []byte
		err     error
	)
	if doErr := v.do(func() {
		r, ok := v.pages.Get(index)
		if !ok {
			err = ErrNoPage
			return
		}
		rec = *r
		surface = r.Surface()
	}); doErr != nil {
		return PageRecord{}, nil, doErr
	}
	return rec, surface, err
}

// Close tears the viewer down: the viewport subscription is released,
// outstanding callbacks become no-ops and the document handle is closed
// once in-flight renders drain.
func (v *Viewer) Close() error {
	err := v.do(func() {
		v.closeOnce.Do(func() {
			v.logf("👋 Viewer closed")
			v.monitor.Stop()
			v.loader.Reset()
			v.scope.release()
			close(v.done)
		})
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Done is closed after Close.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}
