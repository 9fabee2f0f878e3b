package render

import (
	"image"
	"image/color"
	"math"

	"brain/internal/visual"
)

const (
	noiseSeed   = 0xB7A1_5EED
	sparkSeed   = 0x5A2C_0001
	glitchSeed  = 0x61_7C40
	sparkCount  = 6
	staticTint  = 0.18
	gradientMin = 0.72
)

// Fallback draws the visualization on the CPU in blocks of Cell pixels.
// Its output depends only on the surface size and the frame, so equal
// frames give identical images.
type Fallback struct {
	Cell int
}

var _ Renderer = (*Fallback)(nil)

func NewFallback() *Fallback { return &Fallback{Cell: 2} }

func (r *Fallback) Name() string { return "fallback" }

func (r *Fallback) Destroy() {}

func (r *Fallback) Draw(s *Surface, f Frame) error {
	s.Resize()
	img := s.Image()
	w, h := s.Size()
	if w == 0 || h == 0 {
		return nil
	}
	cell := max(r.Cell, 1)
	t := f.Elapsed
	in := clampF(f.Intensity, 0, 1)

	var jx, jy float64
	if f.State == visual.StateError && !f.Reduced {
		jx, jy = jitter(t, s.DPR())
	}
	pulse := 1.0
	if !f.Reduced {
		pulse = 1 + 0.04*math.Sin(t*1.3)
	}
	tint, alpha := overlay(f, t)

	for y := 0; y < h; y += cell {
		v := (float64(y) + jy) / float64(h)
		shift := 0.0
		if f.State == visual.StateQuantum && !f.Reduced {
			shift = glitch(t, v)
		}
		bright := (1 - (1-gradientMin)*float64(y)/float64(h)) * pulse
		for x := 0; x < w; x += cell {
			u := (float64(x)+jx)/float64(w) + shift
			c := blend(f.Palette, field(f.State, u, v, t, in))
			c = scale(c, bright*(0.85+0.3*in))
			if alpha > 0 {
				c = c.Lerp(tint, alpha)
			}
			fill(img, x, y, cell, c)
		}
	}

	switch f.State {
	case visual.StateNeural:
		drawSparks(img, f, t, cell)
	case visual.StateQuantum:
		if !f.Reduced {
			drawScanline(img, f, t)
		}
	}
	return nil
}

// field is the per-state scalar in [0,1] that picks a palette mix.
func field(s visual.State, u, v, t, in float64) float64 {
	base := fbm(noiseSeed, u*3+t*0.05, v*3-t*0.03, 4)
	switch s {
	case visual.StateOrganic:
		breath := wave(t * 0.8)
		d := math.Hypot(u-0.5, v-0.55)
		ripple := wave(d*18 - t*1.5)
		return clampF(0.55*base+0.3*ripple*(0.35+0.5*breath)*(0.6+0.8*in)+0.15*breath, 0, 1)
	case visual.StateNeural:
		gx := math.Pow(math.Abs(math.Sin(u*math.Pi*14)), 24)
		gy := math.Pow(math.Abs(math.Sin(v*math.Pi*10)), 24)
		grid := math.Max(gx, gy)
		flicker := wave(t*5 + math.Floor(u*14)*1.7 + math.Floor(v*10)*2.3)
		n := fbm(noiseSeed, u*6, v*6+t*0.3, 3)
		return clampF(0.45*n+0.55*grid*(0.4+0.6*flicker)*(0.7+0.5*in), 0, 1)
	case visual.StateQuantum:
		shimmer := valueNoise(noiseSeed^0xABCD, u*28+t*2.1, v*28-t*1.7)
		d1 := math.Hypot(u-0.3, v-0.4)
		d2 := math.Hypot(u-0.7, v-0.6)
		inter := wave(d1*40-t*3) * wave(d2*40+t*2.5)
		return clampF(0.3*base+0.35*shimmer*(0.6+0.6*in)+0.35*inter, 0, 1)
	case visual.StateSuccess:
		return clampF(0.6*base+0.4*wave(v*6-t*2)*(0.6+0.6*in), 0, 1)
	case visual.StateError:
		return clampF(0.5*base+0.5*wave(u*22+t*9)*wave(v*3)*(0.6+0.6*in), 0, 1)
	}
	return base
}

// blend walks secondary → primary → accent as the field rises.
func blend(p visual.Palette, fv float64) visual.RGB {
	if fv < 0.5 {
		return p.Secondary.Lerp(p.Primary, fv*2)
	}
	return p.Primary.Lerp(p.Accent, (fv-0.5)*2)
}

func scale(c visual.RGB, k float64) visual.RGB {
	return visual.RGB{
		R: uint8(clampF(float64(c.R)*k, 0, 255)),
		G: uint8(clampF(float64(c.G)*k, 0, 255)),
		B: uint8(clampF(float64(c.B)*k, 0, 255)),
	}
}

// overlay returns the tint for transient states: pulsing or flashing with
// motion, a fixed low opacity without.
func overlay(f Frame, t float64) (visual.RGB, float64) {
	if !f.State.Transient() {
		return visual.RGB{}, 0
	}
	tint := f.Palette.Primary
	if f.Reduced {
		return tint, staticTint
	}
	if f.State == visual.StateSuccess {
		return tint, 0.12 + 0.22*wave(t*2*math.Pi*1.2)
	}
	if math.Sin(t*2*math.Pi*3) > 0 {
		return tint, 0.4
	}
	return tint, 0.1
}

// jitter is the error shake in pixels, a few device pixels at most.
func jitter(t, dpr float64) (float64, float64) {
	step := int(t * 30)
	a := hash01(glitchSeed, step, 1)*2 - 1
	b := hash01(glitchSeed, step, 2)*2 - 1
	return a * 3 * dpr, b * 2 * dpr
}

// glitch shifts horizontal bands sideways for a few steps at a time.
func glitch(t, v float64) float64 {
	step := int(t * 6)
	band := int(v * 12)
	if hash01(glitchSeed, step, band) < 0.88 {
		return 0
	}
	return (hash01(glitchSeed, band, step)*2 - 1) * 0.08
}

func drawSparks(img *image.RGBA, f Frame, t float64, cell int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	step := int(t * 4)
	size := max(cell*2, 2)
	for i := 0; i < sparkCount; i++ {
		if !f.Reduced && hash01(sparkSeed, step, i+100) < 0.5 {
			continue
		}
		x := int(hash01(sparkSeed, step, i) * float64(w))
		y := int(hash01(sparkSeed, i, step) * float64(h))
		fill(img, x, y, size, f.Palette.Accent)
	}
}

func drawScanline(img *image.RGBA, f Frame, t float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	y := int(math.Mod(t*0.35, 1) * float64(h))
	c := color.RGBA{R: f.Palette.Accent.R, G: f.Palette.Accent.G, B: f.Palette.Accent.B, A: 255}
	for x := 0; x < w; x += 2 {
		img.SetRGBA(x, y, c)
	}
}

func fill(img *image.RGBA, x0, y0, size int, c visual.RGB) {
	b := img.Rect
	x1, y1 := min(x0+size, b.Max.X), min(y0+size, b.Max.Y)
	for y := max(y0, b.Min.Y); y < y1; y++ {
		off := img.PixOffset(max(x0, b.Min.X), y)
		for x := max(x0, b.Min.X); x < x1; x++ {
			img.Pix[off] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
			img.Pix[off+3] = 255
			off += 4
		}
	}
}
