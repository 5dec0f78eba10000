package viewer

import "fmt"

// FaultScope says how much of the viewing session a fault invalidates.
type FaultScope string

const (
	ScopeDocument FaultScope = "document"
	ScopePage     FaultScope = "page"
)

// RenderFault is the error type shared by the loader and the page renderer.
// Go Pattern: A struct that implements error can carry extra fields; callers
// recover it with errors.As.
type RenderFault struct {
	Scope       FaultScope `json:"scope"`
	Page        int        `json:"page,omitempty"`
	Message     string     `json:"message"`
	Recoverable bool       `json:"recoverable"`
}

func (f *RenderFault) Error() string {
	if f.Scope == ScopePage {
		return fmt.Sprintf("page %d: %s", f.Page, f.Message)
	}
	return f.Message
}

// DocumentLoadError reports an unreachable or unparsable document.
// A user-triggered retry is always available for it.
func DocumentLoadError(err error) *RenderFault {
	return &RenderFault{Scope: ScopeDocument, Message: err.Error(), Recoverable: true}
}

// PageRenderError reports a single page that failed to rasterize.
func PageRenderError(page int, err error) *RenderFault {
	return &RenderFault{Scope: ScopePage, Page: page, Message: err.Error()}
}

// PagePolicy decides what happens to page-scope faults.
type PagePolicy string

const (
	// BestEffort records page faults on the page and keeps going.
	BestEffort PagePolicy = "best-effort"
	// Strict escalates page faults to the Shell like a document fault.
	Strict PagePolicy = "strict"
)

// ShellState is the state of the fault recovery shell.
type ShellState string

const (
	ShellHealthy ShellState = "healthy"
	ShellFaulted ShellState = "faulted"
)

// Shell intercepts unhandled faults and offers a reset-and-retry action.
type Shell struct {
	state ShellState
	fault *RenderFault
}

// NewShell returns a healthy shell.
func NewShell() *Shell {
	return &Shell{state: ShellHealthy}
}

// Capture moves the shell to Faulted and suspends rendering. A fault that
// arrives while already faulted is dropped; the first one stays on screen.
func (s *Shell) Capture(f *RenderFault) {
	if s.state == ShellFaulted {
		return
	}
	s.state = ShellFaulted
	s.fault = f
}

// Suspended reports whether rendering must stop.
func (s *Shell) Suspended() bool {
	return s.state == ShellFaulted
}

// Fault returns the captured fault, or nil.
func (s *Shell) Fault() *RenderFault {
	return s.fault
}

// State returns the current shell state.
func (s *Shell) State() ShellState {
	return s.state
}

// Retry consumes the retry action. It returns false when there is nothing
// to retry, so a second click on the same fallback does nothing.
func (s *Shell) Retry() bool {
	if s.state != ShellFaulted {
		return false
	}
	s.state = ShellHealthy
	s.fault = nil
	return true
}
