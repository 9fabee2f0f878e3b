package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"brain/internal/visual"
)

// PlaceholderText is shown, and announced, when visuals are disabled.
const PlaceholderText = "Ambient visualization disabled"

// Placeholder is the static stand-in drawn once instead of animating.
type Placeholder struct {
	Text string
}

var _ Renderer = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder { return &Placeholder{Text: PlaceholderText} }

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Destroy() {}

// Label is the accessible text of the placeholder.
func (p *Placeholder) Label() string {
	if p.Text == "" {
		return PlaceholderText
	}
	return p.Text
}

func (p *Placeholder) Draw(s *Surface, _ Frame) error {
	s.Resize()
	img := s.Image()
	w, h := s.Size()
	if w == 0 || h == 0 {
		return nil
	}
	bg := visual.ConfigFor(visual.StateOrganic).Palette.Secondary.Mul(96)
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 220, G: 226, B: 232, A: 255}),
		Face: face,
	}
	label := p.Label()
	tw := d.MeasureString(label).Ceil()
	x := max((w-tw)/2, 0)
	y := (h + face.Ascent - face.Descent) / 2
	d.Dot = fixed.P(x, y)
	d.DrawString(label)
	return nil
}
