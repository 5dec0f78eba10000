package viewer

import "math"

// Layout constants shared by both policies.
const (
	viewportFill = 0.8
	minPageWidth = 390.0
)

// Policy names which dimension the layout constrains.
type Policy string

const (
	PolicySmallScreen Policy = "small_screen" // width constrained
	PolicyLargeScreen Policy = "large_screen" // height constrained
)

// Dimensions are the target page size handed to the rasterizer.
// A zero field is unconstrained; the rasterizer keeps the aspect ratio.
type Dimensions struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Policy reports which layout policy produced d.
func (d Dimensions) Policy() Policy {
	if d.Width > 0 {
		return PolicySmallScreen
	}
	return PolicyLargeScreen
}

// ComputeLayout maps a viewport and scale to target page dimensions.
//
// Narrow screens constrain width and let height flow; wide screens constrain
// height so a page is never taller than the viewport. Exactly one dimension
// is set.
func ComputeLayout(v Viewport, scale float64) Dimensions {
	if v.SmallScreen {
		return Dimensions{Width: math.Max(float64(v.Width)*viewportFill, minPageWidth) * scale}
	}
	return Dimensions{Height: float64(v.Height) * scale * viewportFill}
}
