// Package render turns a visual state, an intensity and a clock into pixels.
package render

import (
	"image"
	"math"
	"sync"
)

// Surface is a drawing target sized from its layout size and device pixel
// ratio. The backing image is reallocated only when the effective pixel
// dimensions change.
type Surface struct {
	mu      sync.Mutex
	layoutW int
	layoutH int
	dpr     float64

	img    *image.RGBA
	allocs int
}

func NewSurface(width, height int, dpr float64) *Surface {
	s := &Surface{}
	s.SetLayout(width, height, dpr)
	return s
}

// SetLayout records a new layout size. It takes effect on the next Resize.
func (s *Surface) SetLayout(width, height int, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	s.mu.Lock()
	s.layoutW, s.layoutH, s.dpr = max(width, 0), max(height, 0), dpr
	s.mu.Unlock()
}

func (s *Surface) DPR() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dpr
}

// PixelSize is the backing size the current layout asks for.
func (s *Surface) PixelSize() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(math.Round(float64(s.layoutW) * s.dpr)), int(math.Round(float64(s.layoutH) * s.dpr))
}

// Resize brings the backing image in line with the layout and reports
// whether it had to reallocate.
func (s *Surface) Resize() bool {
	w, h := s.PixelSize()
	if s.img != nil && s.img.Rect.Dx() == w && s.img.Rect.Dy() == h {
		return false
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.allocs++
	return true
}

// Image is the backing store, nil before the first Resize.
func (s *Surface) Image() *image.RGBA { return s.img }

// Size is the backing size in pixels.
func (s *Surface) Size() (w, h int) {
	if s.img == nil {
		return 0, 0
	}
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

// Allocations counts backing-store reallocations.
func (s *Surface) Allocations() int { return s.allocs }
