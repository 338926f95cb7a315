package status

// Window is a tick-stamped effect interval [Start, End). End == 0 means the
// window was never opened or has been cleared. Magnitude carries the
// effect-specific strength (slow ratio, DOT damage, ...).
type Window struct {
	Start     int64   `json:"start"`
	End       int64   `json:"end"`
	Magnitude float64 `json:"magnitude,omitempty"`
}

// Open returns a window starting at tick that lasts ticks long.
func Open(tick, ticks int64, magnitude float64) Window {
	return Window{Start: tick, End: tick + ticks, Magnitude: magnitude}
}

func (w Window) ActiveAt(tick int64) bool {
	return w.End > 0 && tick >= w.Start && tick < w.End
}

// Expired reports whether the window was open and has run out by tick.
func (w Window) Expired(tick int64) bool {
	return w.End > 0 && tick >= w.End
}

// Remaining is the number of ticks left, never negative.
func (w Window) Remaining(tick int64) int64 {
	if !w.ActiveAt(tick) {
		return 0
	}
	return w.End - tick
}

// Extend pushes End out to at least end, keeping an already open window's
// start, and replaces the magnitude.
func (w *Window) Extend(tick, end int64, magnitude float64) {
	if !w.ActiveAt(tick) {
		w.Start = tick
	}
	if end > w.End {
		w.End = end
	}
	w.Magnitude = magnitude
}

func (w *Window) Clear() { *w = Window{} }
