package window

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"brain/internal/capability"
	"brain/internal/director"
	"brain/internal/engine"
	"brain/internal/frame"
	"brain/internal/render"
	"brain/internal/render/shader"
	"brain/internal/visual"
)

// ErrUnavailable means no OpenGL window could be shown at all. Callers may
// present elsewhere.
var ErrUnavailable = errors.New("no OpenGL window")

type Options struct {
	Width, Height int
	Title         string
	// ForceFallback skips the GPU probe so the CPU renderer is used.
	ForceFallback bool
	// RequireShader makes Run fail when the field shader cannot run
	// instead of blitting the CPU renderer.
	RequireShader bool
	// Engine is completed by the host with the GL probe, shader factory,
	// frame queue and presenter.
	Engine   engine.Options
	Director *director.Director
	// Motion is toggled by the M key when set.
	Motion *capability.MotionSwitch
	Logger *zap.Logger
}

// Run opens the window and drives the engine until the window closes or
// ctx is cancelled. It must be called from the main goroutine.
func Run(ctx context.Context, opts Options) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Title == "" {
		opts.Title = "brain"
	}

	window, err := initWindow(opts.Width, opts.Height, opts.Title)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer glfw.Terminate()
	defer window.Destroy()

	if err := shader.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.ClearColor(0, 0, 0, 1)

	blit, err := shader.NewBlitter()
	if err != nil {
		return fmt.Errorf("%w: blitter: %v", ErrUnavailable, err)
	}
	defer blit.Destroy()

	winW, winH := window.GetSize()
	surface := render.NewSurface(winW, winH, pixelRatio(window))
	queue := frame.NewQueue()

	eo := opts.Engine
	eo.Frames = queue
	eo.Logger = log
	eo.RequireShader = opts.RequireShader
	eo.Detector.ProbeGPU = func() error {
		if opts.ForceFallback {
			return fmt.Errorf("%w: fallback renderer requested", capability.ErrNoGPU)
		}
		return shader.Probe()
	}
	eo.NewShader = func() (render.Renderer, error) { return shader.New() }
	eo.Present = func(s *render.Surface, r render.Renderer) {
		if _, gpu := r.(*shader.Renderer); !gpu {
			fbW, fbH := window.GetFramebufferSize()
			blit.Blit(s.Image(), fbW, fbH)
		}
		window.SwapBuffers()
	}

	eng := engine.New(eo)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, _, _ int) {
		ww, wh := w.GetSize()
		surface.SetLayout(ww, wh, pixelRatio(w))
		eng.Invalidate()
	})
	window.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if opts.Director == nil {
			return
		}
		if entered {
			opts.Director.Fire(visual.EventHoverPrimary, 0)
		} else {
			opts.Director.Fire(visual.EventIdle, 0)
		}
	})

	eng.Mount(surface)
	defer eng.Unmount()
	if !eng.Started() {
		if opts.RequireShader {
			cause := eng.Capabilities().GPUErr
			if cause == nil {
				cause = capability.ErrNoGPU
			}
			return fmt.Errorf("shader renderer unavailable: %w", cause)
		}
		log.Warn("visualization did not start; window stays blank")
	}

	input := NewInput()
	start := glfw.GetTime()
	for !window.ShouldClose() {
		if ctx.Err() != nil {
			break
		}
		glfw.PollEvents()
		for _, cmd := range input.Poll(window) {
			switch cmd.Action {
			case ActionQuit:
				window.SetShouldClose(true)
			case ActionToggleMotion:
				if opts.Motion != nil {
					opts.Motion.Toggle()
				}
			case ActionFire:
				if opts.Director != nil {
					opts.Director.Fire(cmd.Event, 0)
				}
			}
		}

		now := time.Duration((glfw.GetTime() - start) * float64(time.Second))
		if queue.Pump(now) == 0 {
			// Settled (reduced motion or placeholder): sleep until input.
			glfw.WaitEventsTimeout(1.0 / 60)
		}
	}
	return nil
}
