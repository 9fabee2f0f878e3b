package visual

// RGB is an 8-bit per channel colour.
type RGB struct {
	R, G, B uint8
}

// Floats returns the colour as normalized components, for shader uniforms.
func (c RGB) Floats() (r, g, b float32) {
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255
}

func (c RGB) Mul(k uint8) RGB {
	return RGB{
		R: uint8((uint16(c.R) * uint16(k)) / 255),
		G: uint8((uint16(c.G) * uint16(k)) / 255),
		B: uint8((uint16(c.B) * uint16(k)) / 255),
	}
}

// Lerp mixes a towards b by t in [0,1].
func (c RGB) Lerp(b RGB, t float64) RGB {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return b
	}
	return RGB{
		R: uint8(float64(c.R) + (float64(b.R)-float64(c.R))*t),
		G: uint8(float64(c.G) + (float64(b.G)-float64(c.G))*t),
		B: uint8(float64(c.B) + (float64(b.B)-float64(c.B))*t),
	}
}

// Palette drives the colour mix of one state.
type Palette struct {
	Primary   RGB
	Secondary RGB
	Accent    RGB
}

// Config is the immutable per-state record.
type Config struct {
	Label       string
	Description string
	Palette     Palette
}

var configs = [StateCount]Config{
	StateOrganic: {
		Label:       "Organic",
		Description: "Idle and breathing",
		Palette: Palette{
			Primary:   RGB{R: 34, G: 197, B: 154},
			Secondary: RGB{R: 16, G: 94, B: 118},
			Accent:    RGB{R: 163, G: 230, B: 120},
		},
	},
	StateNeural: {
		Label:       "Neural",
		Description: "Reasoning",
		Palette: Palette{
			Primary:   RGB{R: 59, G: 130, B: 246},
			Secondary: RGB{R: 30, G: 27, B: 95},
			Accent:    RGB{R: 167, G: 139, B: 250},
		},
	},
	StateQuantum: {
		Label:       "Quantum",
		Description: "Generating",
		Palette: Palette{
			Primary:   RGB{R: 217, G: 70, B: 239},
			Secondary: RGB{R: 14, G: 116, B: 144},
			Accent:    RGB{R: 103, G: 232, B: 249},
		},
	},
	StateSuccess: {
		Label:       "Success",
		Description: "Operation completed",
		Palette: Palette{
			Primary:   RGB{R: 34, G: 197, B: 94},
			Secondary: RGB{R: 20, G: 83, B: 45},
			Accent:    RGB{R: 187, G: 247, B: 208},
		},
	},
	StateError: {
		Label:       "Error",
		Description: "Operation failed",
		Palette: Palette{
			Primary:   RGB{R: 239, G: 68, B: 68},
			Secondary: RGB{R: 127, G: 29, B: 29},
			Accent:    RGB{R: 254, G: 202, B: 202},
		},
	},
}

// ConfigFor returns the static record for s. Invalid states get organic's.
func ConfigFor(s State) Config {
	if !s.Valid() {
		return configs[StateOrganic]
	}
	return configs[s]
}
