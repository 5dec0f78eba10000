package viewer

import "fmt"

// Mode selects the navigation model.
type Mode string

const (
	// Continuous materializes every page inside one scrollable region.
	Continuous Mode = "continuous"
	// Paged exposes a single current page.
	Paged Mode = "paged"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Continuous, Paged:
		return Mode(s), nil
	case "":
		return Continuous, nil
	}
	return "", fmt.Errorf("unknown navigation mode %q", s)
}

// Navigator tracks the current page. It starts Unbound; every operation is
// a no-op until Bind supplies the page count.
type Navigator struct {
	mode      Mode
	pageCount int
	current   int
}

// NewNavigator creates an unbound navigator.
func NewNavigator(mode Mode) *Navigator {
	if mode == "" {
		mode = Continuous
	}
	return &Navigator{mode: mode}
}

// Bind moves Unbound → Bound(1).
func (n *Navigator) Bind(pageCount int) {
	if pageCount < 1 {
		return
	}
	n.pageCount = pageCount
	n.current = 1
}

// Bound reports whether the page count is known.
func (n *Navigator) Bound() bool {
	return n.pageCount > 0
}

// Reset returns to Unbound.
func (n *Navigator) Reset() {
	n.pageCount = 0
	n.current = 0
}

// Mode returns the active mode.
func (n *Navigator) Mode() Mode {
	return n.mode
}

// SetMode switches modes. The cursor is kept so switching back to paged
// resumes on the same page.
func (n *Navigator) SetMode(m Mode) bool {
	if m == n.mode {
		return false
	}
	n.mode = m
	return true
}

// Current returns the current page, or 0 while unbound.
func (n *Navigator) Current() int {
	return n.current
}

// PageCount returns the bound page count, or 0.
func (n *Navigator) PageCount() int {
	return n.pageCount
}

// Next advances one page unless already on the last.
func (n *Navigator) Next() bool {
	if !n.Bound() || n.current >= n.pageCount {
		return false
	}
	n.current++
	return true
}

// Previous goes back one page unless already on the first.
func (n *Navigator) Previous() bool {
	if !n.Bound() || n.current <= 1 {
		return false
	}
	n.current--
	return true
}

// GoTo jumps to page. Out-of-range values are ignored.
func (n *Navigator) GoTo(page int) bool {
	if !n.Bound() || page < 1 || page > n.pageCount || page == n.current {
		return false
	}
	n.current = page
	return true
}

// Materialized lists the page indices that must have a record.
func (n *Navigator) Materialized() []int {
	if !n.Bound() {
		return nil
	}
	if n.mode == Paged {
		return []int{n.current}
	}
	pages := make([]int, n.pageCount)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
