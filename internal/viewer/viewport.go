// Package viewer is the document-rendering engine behind the preview API.
//
// It resolves a document into a page count, computes per-page target
// dimensions from the viewport and zoom factor, tracks navigation state and
// keeps per-page render failures from taking down the whole document.
// Parsing and rasterization are delegated to an injected Opener.
//
// Go Pattern: Each concern is a small controller type with its own
// operations. The Viewer composes them and serializes every mutation on a
// single event-loop goroutine, so the controllers themselves need no locks.
package viewer

import "sync"

// SmallScreenMaxWidth is the widest viewport still treated as a small screen.
const SmallScreenMaxWidth = 640

// DefaultViewport is used when no notification source is available.
var DefaultViewport = NewViewport(1280, 800)

// Viewport is the on-screen area available to render pages.
type Viewport struct {
	Width       int  `json:"width"`
	Height      int  `json:"height"`
	SmallScreen bool `json:"small_screen"`
}

// NewViewport builds a Viewport and classifies it. Non-positive sizes are
// clamped to 1 so the layout math never sees zero.
func NewViewport(width, height int) Viewport {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return Viewport{
		Width:       width,
		Height:      height,
		SmallScreen: width <= SmallScreenMaxWidth,
	}
}

// ViewportSource is the host environment's viewport-change notification source.
type ViewportSource interface {
	Current() Viewport
	Subscribe(fn func(Viewport)) (unsubscribe func())
}

// Broadcaster is an in-process ViewportSource. The HTTP layer publishes
// resize notifications into it and the Monitor of one Viewer listens.
type Broadcaster struct {
	mu      sync.Mutex
	current Viewport
	nextID  int
	subs    map[int]func(Viewport)
}

// NewBroadcaster creates a source whose first sample is initial.
func NewBroadcaster(initial Viewport) *Broadcaster {
	return &Broadcaster{
		current: initial,
		subs:    make(map[int]func(Viewport)),
	}
}

// Current returns the most recently published viewport.
func (b *Broadcaster) Current() Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers fn for future notifications.
func (b *Broadcaster) Subscribe(fn func(Viewport)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish records v as current and notifies subscribers.
// Subscribers are called outside the lock so they may call Current.
func (b *Broadcaster) Publish(v Viewport) {
	b.mu.Lock()
	b.current = v
	fns := make([]func(Viewport), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribers reports how many listeners are attached.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Monitor observes a ViewportSource on behalf of one Viewer.
type Monitor struct {
	source      ViewportSource
	onChange    func(Viewport)
	current     Viewport
	unsubscribe func()
}

// NewMonitor creates a monitor. A nil source degrades to a single static
// DefaultViewport sample.
func NewMonitor(source ViewportSource, onChange func(Viewport)) *Monitor {
	return &Monitor{source: source, onChange: onChange, current: DefaultViewport}
}

// Start samples the viewport immediately and subscribes to changes.
func (m *Monitor) Start() Viewport {
	if m.source == nil {
		return m.current
	}
	m.current = m.source.Current()
	m.unsubscribe = m.source.Subscribe(func(v Viewport) {
		if m.onChange != nil {
			m.onChange(v)
		}
	})
	return m.current
}

// Update stores a new sample. The Viewer calls this from its event loop
// once a notification has been serialized.
func (m *Monitor) Update(v Viewport) {
	m.current = v
}

// Current returns the last sample.
func (m *Monitor) Current() Viewport {
	return m.current
}

// Stop releases the subscription. Safe to call more than once.
func (m *Monitor) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}
