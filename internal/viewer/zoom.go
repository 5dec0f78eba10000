package viewer

// Zoom bounds, in tenths.
const (
	minZoomSteps     = 5
	maxZoomSteps     = 20
	defaultZoomSteps = 10
)

// Zoom owns the scale factor. It is kept as integer tenths so repeated
// steps land exactly on 1.1, 1.2, ... instead of accumulating float error.
type Zoom struct {
	steps int
}

// NewZoom returns a controller at scale 1.0.
func NewZoom() *Zoom {
	return &Zoom{steps: defaultZoomSteps}
}

// Scale returns the current factor in [0.5, 2.0].
func (z *Zoom) Scale() float64 {
	return float64(z.steps) / 10
}

// Percent returns the scale as a whole percentage, e.g. 110.
func (z *Zoom) Percent() int {
	return z.steps * 10
}

// ZoomIn adds 0.1, stopping at 2.0. It reports whether the scale changed.
func (z *Zoom) ZoomIn() bool {
	if z.steps >= maxZoomSteps {
		return false
	}
	z.steps++
	return true
}

// ZoomOut subtracts 0.1, stopping at 0.5.
func (z *Zoom) ZoomOut() bool {
	if z.steps <= minZoomSteps {
		return false
	}
	z.steps--
	return true
}

// Reset puts the scale back to 1.0 unconditionally.
func (z *Zoom) Reset() bool {
	changed := z.steps != defaultZoomSteps
	z.steps = defaultZoomSteps
	return changed
}
