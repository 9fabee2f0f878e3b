package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain/internal/visual"
)

func TestSurfaceReallocatesOnlyOnChange(t *testing.T) {
	s := NewSurface(40, 30, 2)
	assert.Nil(t, s.Image())

	assert.True(t, s.Resize())
	w, h := s.Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 60, h)

	assert.False(t, s.Resize())
	s.SetLayout(40, 30, 2)
	assert.False(t, s.Resize())
	assert.Equal(t, 1, s.Allocations())

	s.SetLayout(20, 30, 4)
	assert.False(t, s.Resize(), "same pixel size under a different layout")

	s.SetLayout(41, 30, 2)
	assert.True(t, s.Resize())
	assert.Equal(t, 2, s.Allocations())
}

func TestSurfaceClampsInput(t *testing.T) {
	s := NewSurface(-5, 10, 0)
	s.Resize()
	w, h := s.Size()
	assert.Equal(t, 0, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, 1.0, s.DPR())
}

func average(img *image.RGBA) (r, g, b float64) {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		r += float64(img.Pix[i])
		g += float64(img.Pix[i+1])
		b += float64(img.Pix[i+2])
		n++
	}
	return r / float64(n), g / float64(n), b / float64(n)
}

func nonEmpty(img *image.RGBA) bool {
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			return true
		}
	}
	return false
}

func TestFallbackDrawsEveryState(t *testing.T) {
	r := NewFallback()
	for _, st := range visual.States() {
		for _, reduced := range []bool{false, true} {
			s := NewSurface(64, 48, 1)
			require.NoError(t, r.Draw(s, NewFrame(st, 0.4, 2.5, reduced)), st.String())
			assert.True(t, nonEmpty(s.Image()), st.String())
			assert.Equal(t, uint8(255), s.Image().Pix[3])
		}
	}
}

func TestFallbackDeterministic(t *testing.T) {
	r := NewFallback()
	for _, st := range visual.States() {
		a := NewSurface(50, 30, 1)
		b := NewSurface(50, 30, 1)
		f := NewFrame(st, 0.3, 7.25, false)
		require.NoError(t, r.Draw(a, f))
		require.NoError(t, r.Draw(b, f))
		assert.Equal(t, a.Image().Pix, b.Image().Pix, st.String())
	}
}

func TestFallbackAnimatesWithTime(t *testing.T) {
	r := NewFallback()
	for _, st := range visual.States() {
		a := NewSurface(50, 30, 1)
		b := NewSurface(50, 30, 1)
		require.NoError(t, r.Draw(a, NewFrame(st, 0, 1, false)))
		require.NoError(t, r.Draw(b, NewFrame(st, 0, 1.7, false)))
		assert.NotEqual(t, a.Image().Pix, b.Image().Pix, st.String())
	}
}

func TestFallbackPaletteDominates(t *testing.T) {
	r := NewFallback()
	draw := func(st visual.State, reduced bool) (float64, float64, float64) {
		s := NewSurface(64, 64, 1)
		require.NoError(t, r.Draw(s, NewFrame(st, 0.5, 3, reduced)))
		return average(s.Image())
	}
	for _, reduced := range []bool{false, true} {
		rr, g, _ := draw(visual.StateSuccess, reduced)
		assert.Greater(t, g, rr, "success should read green")

		rr, g, _ = draw(visual.StateError, reduced)
		assert.Greater(t, rr, g, "error should read red")

		rr, _, b := draw(visual.StateNeural, reduced)
		assert.Greater(t, b, rr, "neural should read blue")
	}
}

func TestReducedMotionTintIsStatic(t *testing.T) {
	for _, st := range []visual.State{visual.StateSuccess, visual.StateError} {
		f := NewFrame(st, 0, 0, true)
		_, a1 := overlay(f, 0.1)
		_, a2 := overlay(f, 0.4)
		assert.Equal(t, staticTint, a1)
		assert.Equal(t, a1, a2)

		f.Reduced = false
		_, m1 := overlay(f, 0.05)
		_, m2 := overlay(f, 0.22)
		assert.NotEqual(t, m1, m2, st.String())
	}
	_, a := overlay(NewFrame(visual.StateOrganic, 0, 0, false), 1)
	assert.Zero(t, a)
}

func TestFieldRange(t *testing.T) {
	for _, st := range visual.States() {
		for i := 0; i < 200; i++ {
			u, v := float64(i%20)/19, float64(i/20)/9
			fv := field(st, u, v, float64(i)*0.37, float64(i%3)/2)
			assert.GreaterOrEqual(t, fv, 0.0)
			assert.LessOrEqual(t, fv, 1.0)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	p := NewPlaceholder()
	assert.Equal(t, PlaceholderText, p.Label())

	s := NewSurface(320, 40, 1)
	require.NoError(t, p.Draw(s, Frame{}))
	img := s.Image()
	bg := img.RGBAAt(0, 0)
	text := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 320; x++ {
			if img.RGBAAt(x, y) != bg {
				text++
			}
		}
	}
	assert.Positive(t, text, "label pixels drawn")

	empty := NewSurface(0, 0, 1)
	assert.NoError(t, p.Draw(empty, Frame{}))
}
