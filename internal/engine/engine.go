// Package engine mounts a visualization on a surface and runs its frame
// loop: renderer selection, per-frame inputs, reduced-motion settling and
// self-monitoring.
package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"brain/internal/capability"
	"brain/internal/frame"
	"brain/internal/render"
	"brain/internal/store"
	"brain/internal/visual"
)

// IntensitySource is the audio sampler as the engine drives it.
type IntensitySource interface {
	Intensity() float64
	Update(flag, reducedMotion bool)
	Close()
}

type Options struct {
	Detector capability.Detector
	// NewShader builds the GPU strategy. Nil means the fallback is always used.
	NewShader func() (render.Renderer, error)
	// RequireShader leaves the engine unstarted instead of falling back
	// when the GPU strategy is unavailable.
	RequireShader bool
	Frames        frame.Scheduler
	Store         store.Handle
	Audio         IntensitySource
	// NewAudio builds Audio on the host's frame queue when Audio is nil.
	NewAudio func(frame.Scheduler) IntensitySource
	// AudioReactive is the audio feature flag, read once at mount.
	AudioReactive bool
	Logger        *zap.Logger
	Metrics       *Metrics
	SlowFrame     time.Duration
	SampleWindow  int
	// FallbackCell is the CPU renderer's block size in pixels.
	FallbackCell int
	// Present runs after each drawn frame on the frame goroutine.
	Present func(s *render.Surface, r render.Renderer)
	Now     func() time.Time
}

type Engine struct {
	opts Options
	log  *zap.Logger
	mon  *Monitor

	mu       sync.Mutex
	mounted  bool
	started  bool
	static   bool
	surface  *render.Surface
	caps     capability.Capabilities
	renderer render.Renderer
	handle   frame.Handle
	reduced  bool
	unsubs   []func()

	t0       time.Duration
	haveT0   bool
	elapsed  float64
	override float64
	pinned   bool

	draws int
	last  render.Frame
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Frames == nil {
		opts.Frames = frame.NewQueue()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Audio == nil && opts.NewAudio != nil {
		opts.Audio = opts.NewAudio(opts.Frames)
	}
	return &Engine{
		opts: opts,
		log:  opts.Logger,
		mon:  NewMonitor(opts.Logger, opts.SlowFrame, opts.SampleWindow),
	}
}

// Mount detects capabilities once, picks a renderer and starts the loop.
// A shader that fails to build leaves the engine mounted but not started.
func (e *Engine) Mount(s *render.Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mounted {
		return
	}
	e.mounted = true
	e.surface = s
	e.haveT0 = false
	e.elapsed = 0
	e.mon.Reset()

	e.caps = e.opts.Detector.Detect()
	e.reduced = e.caps.ReducedMotion
	e.renderer = e.selectRenderer()
	e.started = e.renderer != nil
	if !e.started {
		return
	}
	_, e.static = e.renderer.(*render.Placeholder)
	e.opts.Metrics.SetRenderer(e.renderer.Name())
	e.log.Info("visualization mounted",
		zap.String("renderer", e.renderer.Name()),
		zap.Bool("reduced_motion", e.reduced),
		zap.Bool("audio_reactive", e.opts.AudioReactive),
	)

	if !e.static {
		e.unsubs = append(e.unsubs,
			e.opts.Store.Subscribe(e.onState),
			e.opts.Detector.MotionOrDefault().Subscribe(e.onMotion),
		)
		if e.opts.Audio != nil {
			e.opts.Audio.Update(e.opts.AudioReactive, e.reduced)
		}
	}
	e.wakeLocked()
}

func (e *Engine) selectRenderer() render.Renderer {
	switch {
	case !e.caps.VisualEnabled:
		return render.NewPlaceholder()
	case e.caps.GPU && e.opts.NewShader != nil:
		r, err := e.opts.NewShader()
		if err != nil {
			e.log.Warn("shader setup failed, visualization not started", zap.Error(err))
			return nil
		}
		return r
	}
	if e.opts.RequireShader {
		e.log.Warn("shader renderer required but gpu shading is unavailable, visualization not started",
			zap.NamedError("gpu", e.caps.GPUErr))
		return nil
	}
	if e.caps.GPUErr != nil {
		e.log.Info("gpu shading unavailable, using fallback renderer", zap.Error(e.caps.GPUErr))
	}
	fb := render.NewFallback()
	if e.opts.FallbackCell > 0 {
		fb.Cell = e.opts.FallbackCell
	}
	return fb
}

// Unmount cancels the loop, releases the audio stream and the renderer's
// resources. Nothing scheduled by the engine runs afterwards.
func (e *Engine) Unmount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	e.mounted = false
	if e.handle != 0 {
		e.opts.Frames.CancelFrame(e.handle)
		e.handle = 0
	}
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
	if e.opts.Audio != nil {
		e.opts.Audio.Close()
	}
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	e.started = false
	e.opts.Metrics.SetRenderer("")
	e.log.Info("visualization unmounted", zap.Int("frames", e.draws))
}

func (e *Engine) onState(s visual.State) {
	e.opts.Metrics.ObserveTransition(s)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakeLocked()
}

func (e *Engine) onMotion(reduced bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted {
		return
	}
	e.reduced = reduced
	if e.opts.Audio != nil {
		e.opts.Audio.Update(e.opts.AudioReactive, reduced)
	}
	e.log.Debug("reduced motion changed", zap.Bool("reduced", reduced))
	e.wakeLocked()
}

// Invalidate asks for a redraw after the surface layout changed. It only
// matters while the loop is settled.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakeLocked()
}

func (e *Engine) wakeLocked() {
	if !e.mounted || !e.started || e.handle != 0 {
		return
	}
	e.handle = e.opts.Frames.RequestFrame(e.tick)
}

// SetIntensity pins the intensity, overriding the audio sampler.
func (e *Engine) SetIntensity(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.override = min(max(v, 0), 1)
	e.pinned = true
	e.wakeLocked()
}

// ClearIntensity hands intensity back to the audio sampler.
func (e *Engine) ClearIntensity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned = false
	e.wakeLocked()
}

func (e *Engine) intensityLocked() float64 {
	if e.pinned {
		return e.override
	}
	if e.opts.Audio == nil {
		return 0
	}
	return e.opts.Audio.Intensity()
}

func (e *Engine) tick(now time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = 0
	if !e.mounted || !e.started {
		return
	}
	if !e.haveT0 {
		e.t0, e.haveT0 = now, true
	}
	if !e.reduced {
		e.elapsed = (now - e.t0).Seconds()
	}

	in := e.intensityLocked()
	f := render.NewFrame(e.opts.Store.Get(), in, e.elapsed, e.reduced)

	start := e.opts.Now()
	if err := e.renderer.Draw(e.surface, f); err != nil {
		e.log.Warn("draw failed", zap.String("renderer", e.renderer.Name()), zap.Error(err))
	}
	cost := e.opts.Now().Sub(start)
	e.mon.Observe(cost)
	e.opts.Metrics.ObserveFrame(cost)
	e.opts.Metrics.SetIntensity(in)
	e.draws++
	e.last = f

	if e.opts.Present != nil {
		e.opts.Present(e.surface, e.renderer)
	}
	if e.static || e.reduced {
		return
	}
	e.handle = e.opts.Frames.RequestFrame(e.tick)
}

// Started reports whether a renderer is running.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Running reports whether a frame is scheduled.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != 0
}

func (e *Engine) RendererName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.renderer == nil {
		return ""
	}
	return e.renderer.Name()
}

func (e *Engine) Capabilities() capability.Capabilities {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps
}

// Draws counts frames drawn since construction.
func (e *Engine) Draws() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draws
}

// LastFrame is the input of the most recent draw.
func (e *Engine) LastFrame() render.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) Monitor() *Monitor { return e.mon }
