package domain

// Two-stage exponential smoothing factors. The first stage tracks the raw
// signal, the second eases the value shown to renderers.
const (
	audioSmoothing   = 0.4
	displaySmoothing = 0.15
)

// Smoother applies two-stage exponential smoothing to a dB level so gauges
// move without jitter. It never feeds back into termination decisions.
type Smoother struct {
	smoothed float64
	display  float64
}

// NewSmoother returns a smoother settled at the given initial value,
// typically the session floor.
func NewSmoother(initial float64) Smoother {
	return Smoother{smoothed: initial, display: initial}
}

// Update feeds a new raw value and returns the eased display value.
func (s *Smoother) Update(raw float64) float64 {
	s.smoothed = s.smoothed*(1-audioSmoothing) + raw*audioSmoothing
	s.display = s.display*(1-displaySmoothing) + s.smoothed*displaySmoothing
	return s.display
}

// Display returns the current eased value.
func (s *Smoother) Display() float64 {
	return s.display
}
