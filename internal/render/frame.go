package render

import (
	"errors"

	"brain/internal/visual"
)

var ErrNotStarted = errors.New("renderer not started")

// Frame is everything a renderer needs to draw one image.
type Frame struct {
	State     visual.State
	Palette   visual.Palette
	Intensity float64
	// Elapsed seconds since the renderer started, held constant under
	// reduced motion.
	Elapsed float64
	Reduced bool
}

// NewFrame fills in the palette for s.
func NewFrame(s visual.State, intensity, elapsed float64, reduced bool) Frame {
	return Frame{
		State:     s,
		Palette:   visual.ConfigFor(s).Palette,
		Intensity: clampF(intensity, 0, 1),
		Elapsed:   elapsed,
		Reduced:   reduced,
	}
}

// Renderer is one drawing strategy, chosen once per mount.
type Renderer interface {
	Name() string
	Draw(s *Surface, f Frame) error
	Destroy()
}
