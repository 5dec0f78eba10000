package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes for the rasterization capability ---

type renderCall struct {
	index int
	req   RenderRequest
}

type fakeHandle struct {
	pages int

	mu     sync.Mutex
	fail   map[int]error
	gates  map[int]chan struct{} // RenderPage(index) blocks until closed
	calls  []renderCall
	closed bool
}

func (h *fakeHandle) NumPages() int { return h.pages }

func (h *fakeHandle) RenderPage(ctx context.Context, index int, req RenderRequest) (image.Image, error) {
	h.mu.Lock()
	h.calls = append(h.calls, renderCall{index: index, req: req})
	gate := h.gates[index]
	err := h.fail[index]
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 3)), nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) renderCalls() []renderCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]renderCall(nil), h.calls...)
}

type openResult struct {
	handle *fakeHandle
	err    error
	gate   chan struct{} // when set, Open blocks until it is closed

	// ignoreCancel keeps Open blocked on gate even after the viewer
	// cancels it, simulating a capability that answers late.
	ignoreCancel bool
}

type fakeOpener struct {
	mu      sync.Mutex
	results []openResult
	calls   int
}

func (o *fakeOpener) Open(ctx context.Context, loc Locator) (Handle, error) {
	o.mu.Lock()
	res := o.results[o.calls]
	o.calls++
	o.mu.Unlock()

	if res.gate != nil && res.ignoreCancel {
		<-res.gate
	} else if res.gate != nil {
		select {
		case <-res.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.handle, nil
}

func (o *fakeOpener) openCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func quiet(string, ...any) {}

func newTestViewer(t *testing.T, opener Opener, opts Options) *Viewer {
	t.Helper()
	if opts.Logf == nil {
		opts.Logf = quiet
	}
	v := New(opener, Locator{URL: "https://files.example.com/notes.pdf"}, opts)
	t.Cleanup(func() { v.Close() })
	return v
}

func snapshot(t *testing.T, v *Viewer) Snapshot {
	t.Helper()
	s, err := v.Snapshot()
	require.NoError(t, err)
	return s
}

func waitFor(t *testing.T, v *Viewer, cond func(Snapshot) bool, msg string) Snapshot {
	t.Helper()
	var last Snapshot
	require.Eventually(t, func() bool {
		last = snapshot(t, v)
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond, msg)
	return last
}

func allSettled(s Snapshot) bool {
	if s.LoadState != LoadReady || len(s.Pages) == 0 {
		return false
	}
	for _, p := range s.Pages {
		if p.State == RenderPending {
			return false
		}
	}
	return true
}

// --- tests ---

func TestViewer_ContinuousLoadRendersEveryPage(t *testing.T) {
	h := &fakeHandle{pages: 4}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	src := NewBroadcaster(NewViewport(1200, 800))
	v := newTestViewer(t, opener, Options{Source: src})

	s := snapshot(t, v)
	assert.Equal(t, LoadIdle, s.LoadState)
	assert.Equal(t, IndicatorLoading, s.Indicator)
	assert.Equal(t, 640.0, s.Layout.Height, "viewport is sampled before load")

	require.NoError(t, v.Load())
	s = waitFor(t, v, allSettled, "all pages should render")

	assert.Equal(t, 4, s.PageCount)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, IndicatorReady, s.Indicator)
	require.Len(t, s.Pages, 4)
	for _, p := range s.Pages {
		assert.Equal(t, RenderRendered, p.State)
		assert.Equal(t, Dimensions{Height: 640}, p.Dimensions)
	}

	rec, surface, err := v.Surface(3)
	require.NoError(t, err)
	assert.Equal(t, RenderRendered, rec.State)
	assert.NotEmpty(t, surface)

	_, _, err = v.Surface(9)
	assert.ErrorIs(t, err, ErrNoPage)
}

func TestViewer_LoadTwiceIsRefused(t *testing.T) {
	gate := make(chan struct{})
	opener := &fakeOpener{results: []openResult{{handle: &fakeHandle{pages: 1}, gate: gate}}}
	v := newTestViewer(t, opener, Options{})

	require.NoError(t, v.Load())
	assert.ErrorIs(t, v.Load(), ErrBusy)
	close(gate)
	waitFor(t, v, allSettled, "load should finish")
	assert.ErrorIs(t, v.Load(), ErrBusy)
	assert.Equal(t, 1, opener.openCalls())
}

func TestViewer_PagedNavigation(t *testing.T) {
	h := &fakeHandle{pages: 10}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	v := newTestViewer(t, opener, Options{Mode: Paged})

	require.NoError(t, v.Load())
	s := waitFor(t, v, allSettled, "first page should render")
	require.Len(t, s.Pages, 1)
	assert.Equal(t, 1, s.Pages[0].Index)

	for i := 0; i < 9; i++ {
		require.NoError(t, v.Next())
	}
	s = snapshot(t, v)
	assert.Equal(t, 10, s.CurrentPage)
	require.Len(t, s.Pages, 1)
	assert.Equal(t, 10, s.Pages[0].Index)

	require.NoError(t, v.Next())
	assert.Equal(t, 10, snapshot(t, v).CurrentPage)

	require.NoError(t, v.GoTo(1))
	require.NoError(t, v.Previous())
	assert.Equal(t, 1, snapshot(t, v).CurrentPage)

	require.NoError(t, v.SetMode(Continuous))
	s = waitFor(t, v, allSettled, "switching to continuous renders every page")
	assert.Len(t, s.Pages, 10)
}

func TestViewer_PageFailureIsIsolated(t *testing.T) {
	h := &fakeHandle{pages: 3, fail: map[int]error{2: errors.New("corrupt content stream")}}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	v := newTestViewer(t, opener, Options{})

	require.NoError(t, v.Load())
	s := waitFor(t, v, allSettled, "pages should settle")

	assert.Equal(t, LoadReady, s.LoadState)
	assert.Equal(t, 1, s.CurrentPage)
	assert.Equal(t, ShellHealthy, s.Shell)
	assert.Nil(t, s.Fault)
	assert.Equal(t, RenderRendered, s.Pages[0].State)
	assert.Equal(t, RenderFailed, s.Pages[1].State)
	assert.Equal(t, "corrupt content stream", s.Pages[1].Reason)
	assert.Equal(t, RenderRendered, s.Pages[2].State)
}

func TestViewer_FirstPageFailureClearsIndicator(t *testing.T) {
	h := &fakeHandle{pages: 2, fail: map[int]error{1: errors.New("unsupported font")}}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	v := newTestViewer(t, opener, Options{})

	require.NoError(t, v.Load())
	s := waitFor(t, v, allSettled, "pages should settle")
	assert.Equal(t, RenderFailed, s.Pages[0].State)
	assert.Equal(t, IndicatorReady, s.Indicator)
	assert.Equal(t, LoadReady, s.LoadState)
}

func TestViewer_StrictPolicyEscalatesPageFaults(t *testing.T) {
	h := &fakeHandle{pages: 1, fail: map[int]error{1: errors.New("bad page")}}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	v := newTestViewer(t, opener, Options{PagePolicy: Strict})

	require.NoError(t, v.Load())
	s := waitFor(t, v, func(s Snapshot) bool { return s.Shell == ShellFaulted }, "fault should escalate")
	require.NotNil(t, s.Fault)
	assert.Equal(t, ScopePage, s.Fault.Scope)
	assert.Equal(t, 1, s.Fault.Page)
}

func TestViewer_LoadFailureAndRetry(t *testing.T) {
	gate := make(chan struct{})
	h := &fakeHandle{pages: 5}
	opener := &fakeOpener{results: []openResult{
		{err: errors.New("dial tcp: connection refused")},
		{handle: h, gate: gate},
	}}
	v := newTestViewer(t, opener, Options{})

	require.NoError(t, v.Load())
	s := waitFor(t, v, func(s Snapshot) bool { return s.LoadState == LoadFailed }, "load should fail")
	assert.Equal(t, ShellFaulted, s.Shell)
	require.NotNil(t, s.Fault)
	assert.Equal(t, ScopeDocument, s.Fault.Scope)
	assert.Contains(t, s.Fault.Message, "connection refused")
	assert.Equal(t, IndicatorReady, s.Indicator)
	assert.Zero(t, s.PageCount)

	require.NoError(t, v.Retry())
	s = snapshot(t, v)
	assert.Equal(t, LoadLoading, s.LoadState)
	assert.Equal(t, IndicatorLoading, s.Indicator)
	assert.Equal(t, ShellHealthy, s.Shell)
	assert.Empty(t, s.Pages)
	assert.Zero(t, s.CurrentPage)
	assert.Equal(t, uint64(1), s.Generation)

	assert.ErrorIs(t, v.Retry(), ErrNothingToRetry, "second click must not reload")

	close(gate)
	s = waitFor(t, v, allSettled, "retry should load the document")
	assert.Equal(t, 5, s.PageCount)
	assert.Equal(t, 2, opener.openCalls())
}

func TestViewer_RetryAfterEscalationResetsEverything(t *testing.T) {
	first := &fakeHandle{pages: 3, fail: map[int]error{3: errors.New("bad page")}}
	second := &fakeHandle{pages: 2}
	opener := &fakeOpener{results: []openResult{{handle: first}, {handle: second}}}
	v := newTestViewer(t, opener, Options{PagePolicy: Strict})

	require.NoError(t, v.Load())
	waitFor(t, v, func(s Snapshot) bool { return s.Shell == ShellFaulted }, "fault should escalate")

	require.NoError(t, v.Retry())
	s := waitFor(t, v, allSettled, "reload should render")
	assert.Equal(t, 2, s.PageCount, "no stale page count after retry")
	assert.Len(t, s.Pages, 2)
	assert.Eventually(t, first.isClosed, time.Second, 5*time.Millisecond)
}

func TestViewer_ViewportAndZoomRerender(t *testing.T) {
	h := &fakeHandle{pages: 1}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	src := NewBroadcaster(NewViewport(1200, 800))
	v := newTestViewer(t, opener, Options{Source: src})

	require.NoError(t, v.Load())
	waitFor(t, v, allSettled, "first render")

	src.Publish(NewViewport(500, 900))
	s := waitFor(t, v, func(s Snapshot) bool {
		return allSettled(s) && s.Pages[0].Dimensions.Width > 0
	}, "resize should re-render with the small-screen policy")
	assert.Equal(t, PolicySmallScreen, s.Policy)
	assert.InDelta(t, 400, s.Layout.Width, 1e-9)

	require.NoError(t, v.ZoomIn())
	s = waitFor(t, v, func(s Snapshot) bool {
		return allSettled(s) && s.Pages[0].Dimensions.Width > 400
	}, "zoom should re-render")
	assert.InDelta(t, 440, s.Layout.Width, 1e-9)
	assert.Equal(t, 110, s.ZoomPercent)

	calls := h.renderCalls()
	last := calls[len(calls)-1]
	assert.InDelta(t, 1.1, last.req.Scale, 1e-9)
	assert.Zero(t, last.req.Height)

	require.NoError(t, v.ZoomOut())
	require.NoError(t, v.ResetZoom())
	assert.Equal(t, 1.0, snapshot(t, v).Scale)
}

func TestViewer_CloseDropsLateCallbacks(t *testing.T) {
	gate := make(chan struct{})
	h := &fakeHandle{pages: 2}
	opener := &fakeOpener{results: []openResult{{handle: h, gate: gate, ignoreCancel: true}}}
	src := NewBroadcaster(NewViewport(800, 600))
	v := New(opener, Locator{Data: []byte("%PDF-1.7")}, Options{Source: src, Logf: quiet})
	require.Equal(t, 1, src.Subscribers())

	require.NoError(t, v.Load())
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
	close(gate)

	assert.Zero(t, src.Subscribers())
	assert.ErrorIs(t, v.ZoomIn(), ErrClosed)
	_, err := v.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Eventually(t, h.isClosed, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.renderCalls())
}

func TestViewer_ConcurrentRendersWriteOwnRecords(t *testing.T) {
	const pages = 24
	fail := make(map[int]error)
	for i := 3; i <= pages; i += 4 {
		fail[i] = fmt.Errorf("page %d exploded", i)
	}
	h := &fakeHandle{pages: pages, fail: fail}
	opener := &fakeOpener{results: []openResult{{handle: h}}}
	v := newTestViewer(t, opener, Options{RenderConcurrency: 8})

	require.NoError(t, v.Load())
	s := waitFor(t, v, allSettled, "pages should settle")
	for _, p := range s.Pages {
		if fail[p.Index] != nil {
			assert.Equal(t, RenderFailed, p.State, "page %d", p.Index)
			assert.Equal(t, fail[p.Index].Error(), p.Reason)
		} else {
			assert.Equal(t, RenderRendered, p.State, "page %d", p.Index)
		}
	}
	assert.Equal(t, 1, s.CurrentPage)
}

func TestViewer_PagedFirstPaintSurvivesNavigation(t *testing.T) {
	gate := make(chan struct{})
	h := &fakeHandle{pages: 3, gates: map[int]chan struct{}{1: gate}}
	v := newTestViewer(t, &fakeOpener{results: []openResult{{handle: h}}}, Options{Mode: Paged})
	require.NoError(t, v.Load())

	waitFor(t, v, func(s Snapshot) bool { return s.LoadState == LoadReady }, "document ready")
	require.NoError(t, v.Next())

	s := waitFor(t, v, func(s Snapshot) bool {
		return len(s.Pages) == 1 && s.Pages[0].Index == 2 && s.Pages[0].State == RenderRendered
	}, "page 2 rendered")
	assert.Equal(t, 2, s.CurrentPage)
	assert.Equal(t, IndicatorLoading, s.Indicator, "page 1 has not settled yet")

	close(gate)
	s = waitFor(t, v, func(s Snapshot) bool { return s.Indicator == IndicatorReady }, "indicator cleared")
	require.Len(t, s.Pages, 1)
	assert.Equal(t, 2, s.Pages[0].Index, "the dropped page is not re-materialized")
}
