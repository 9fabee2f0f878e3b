// Package capability probes the environment once per mount: GPU shading,
// the reduced-motion preference and the visualization feature flag.
package capability

// Capabilities is the result of one detection pass.
type Capabilities struct {
	VisualEnabled bool
	GPU           bool
	GPUErr        error
	ReducedMotion bool
}

// Detector bundles the environment probes. ProbeGPU reports whether a
// shading context could be created; nil means no GPU path exists.
type Detector struct {
	VisualEnabled bool
	Motion        MotionPreference
	ProbeGPU      func() error
}

// Detect runs every probe once. The GPU probe is skipped when the
// visualization is disabled.
func (d Detector) Detect() Capabilities {
	c := Capabilities{VisualEnabled: d.VisualEnabled}
	if d.Motion != nil {
		c.ReducedMotion = d.Motion.Reduced()
	}
	if !d.VisualEnabled {
		return c
	}
	if d.ProbeGPU == nil {
		c.GPUErr = ErrNoGPU
		return c
	}
	if err := d.ProbeGPU(); err != nil {
		c.GPUErr = err
		return c
	}
	c.GPU = true
	return c
}

// MotionOrDefault returns the detector's preference, or a fixed
// full-motion one when none was configured.
func (d Detector) MotionOrDefault() MotionPreference {
	if d.Motion == nil {
		return NewMotionSwitch(false)
	}
	return d.Motion
}
