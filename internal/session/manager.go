// Package session keeps the live viewers for the preview API.
//
// Each session pairs a viewer.Viewer with the viewport Broadcaster that the
// HTTP layer publishes resize notifications into. Sessions are memory only;
// an idle reaper closes the ones nobody has touched for a while.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/dossier-preview/internal/viewer"
)

var (
	// ErrNotFound is returned for unknown or foreign session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrLimit is returned when MaxSessions are already open.
	ErrLimit = errors.New("too many open sessions")
)

// Session is one viewer instance owned by one caller.
type Session struct {
	ID        string
	Owner     string
	Viewer    *viewer.Viewer
	Viewport  *viewer.Broadcaster
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// LastUsed returns when the session was last addressed.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Config controls the manager.
type Config struct {
	Opener      viewer.Opener
	Defaults    viewer.Options
	MaxSessions int
	IdleTimeout time.Duration
}

// CreateParams describe a new session.
type CreateParams struct {
	Owner    string
	Locator  viewer.Locator
	Mode     viewer.Mode
	Viewport viewer.Viewport
}

// Manager maps session IDs to viewers.
type Manager struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates an empty registry.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
}

// Create opens a viewer for p and starts loading the document.
func (m *Manager) Create(p CreateParams) (*Session, error) {
	opts := m.cfg.Defaults
	if p.Mode != "" {
		opts.Mode = p.Mode
	}
	broadcaster := viewer.NewBroadcaster(p.Viewport)
	opts.Source = broadcaster

	now := m.now()
	s := &Session{
		ID:        uuid.New().String(),
		Owner:     p.Owner,
		Viewer:    viewer.New(m.cfg.Opener, p.Locator, opts),
		Viewport:  broadcaster,
		CreatedAt: now,
		lastUsed:  now,
	}

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		s.Viewer.Close()
		return nil, ErrLimit
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if err := s.Viewer.Load(); err != nil {
		m.Delete(s.ID, p.Owner)
		return nil, err
	}
	log.Printf("🆕 Session %s created (mode=%s)", s.ID, opts.Mode)
	return s, nil
}

// Get returns the session if owner may address it.
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Owner != owner {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete tears the session down.
func (m *Manager) Delete(id, owner string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.Owner != owner {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Viewer.Close()
	log.Printf("🗑️  Session %s closed", id)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap closes sessions idle longer than the configured timeout and returns
// how many it closed.
func (m *Manager) Reap() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Viewer.Close()
	}
	if len(stale) > 0 {
		log.Printf("🧹 Reaped %d idle sessions", len(stale))
	}
	return len(stale)
}

// Start runs the reaper until Stop.
func (m *Manager) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Reap()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts the reaper and closes every session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Viewer.Close()
	}
}
