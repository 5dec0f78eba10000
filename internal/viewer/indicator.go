package viewer

// IndicatorState is the spinner gate shown while nothing is on screen.
type IndicatorState string

const (
	IndicatorLoading IndicatorState = "loading"
	IndicatorReady   IndicatorState = "ready"
)

// Indicator tracks first-meaningful-paint. It goes Loading → Ready once
// and only Reset brings it back.
type Indicator struct {
	state IndicatorState
}

// NewIndicator starts in Loading.
func NewIndicator() *Indicator {
	return &Indicator{state: IndicatorLoading}
}

// State returns the current state.
func (i *Indicator) State() IndicatorState {
	return i.state
}

// PageSettled reports a terminal render event. Only page 1 counts and a
// failure counts the same as a success, so the spinner never hangs on a
// page that will not render.
func (i *Indicator) PageSettled(index int) bool {
	if index != 1 || i.state == IndicatorReady {
		return false
	}
	i.state = IndicatorReady
	return true
}

// DocumentFailed clears the spinner; there is nothing left to wait for.
func (i *Indicator) DocumentFailed() bool {
	if i.state == IndicatorReady {
		return false
	}
	i.state = IndicatorReady
	return true
}

// Reset returns to Loading.
func (i *Indicator) Reset() {
	i.state = IndicatorLoading
}
