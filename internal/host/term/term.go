// Package term presents the CPU renderer in a terminal with half-block
// cells, two pixels per cell.
package term

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"brain/internal/capability"
	"brain/internal/director"
	"brain/internal/engine"
	"brain/internal/frame"
	"brain/internal/render"
	"brain/internal/store"
	"brain/internal/visual"
)

const (
	halfBlock   = '▀'
	frameRate   = 30
	statusLines = 1
)

type Options struct {
	Engine   engine.Options
	Director *director.Director
	// Motion is toggled by the m key when set.
	Motion *capability.MotionSwitch
	Logger *zap.Logger
	// Screen overrides the terminal, for tests.
	Screen tcell.Screen
}

// Run draws until q/Esc, ctx cancellation or a screen error.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	screen := opts.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	cols, rows := screen.Size()
	surface := render.NewSurface(cols, pixelRows(rows), 1)
	queue := frame.NewQueue()

	eo := opts.Engine
	eo.Frames = queue
	eo.Logger = log
	eo.NewShader = nil
	eo.Detector.ProbeGPU = nil
	eo.FallbackCell = 1
	eo.Present = func(s *render.Surface, r render.Renderer) {
		if p, ok := r.(*render.Placeholder); ok {
			drawText(screen, p.Label())
		} else {
			drawImage(screen, s.Image())
		}
		drawStatus(screen, eo.Store)
		screen.Show()
	}
	if eo.Store == nil {
		eo.Store = store.New()
	}
	eng := engine.New(eo)
	eng.Mount(surface)
	defer eng.Unmount()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	stopFrames := make(chan struct{})
	framesDone := make(chan struct{})
	go func() {
		defer close(framesDone)
		frame.Driver{Queue: queue, Interval: time.Second / frameRate}.Run(stopFrames)
	}()
	defer func() {
		close(stopFrames)
		<-framesDone
	}()

	keys := &keyState{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				cols, rows := ev.Size()
				surface.SetLayout(cols, pixelRows(rows), 1)
				screen.Sync()
				eng.Invalidate()
			case *tcell.EventKey:
				cmd := keys.command(ev)
				switch cmd.action {
				case actionQuit:
					return nil
				case actionToggleMotion:
					if opts.Motion != nil {
						opts.Motion.Toggle()
					}
				case actionFire:
					if opts.Director != nil {
						opts.Director.Fire(cmd.event, 0)
					}
				}
			case *tcell.EventMouse:
				if keys.clicked(ev) && opts.Director != nil {
					opts.Director.Fire(visual.EventClickPrimary, 0)
				}
			}
		}
	}
}

func pixelRows(rows int) int {
	return max(rows-statusLines, 0) * 2
}

// drawImage maps two image rows onto each cell: upper half as foreground,
// lower half as background.
func drawImage(screen tcell.Screen, img *image.RGBA) {
	if img == nil {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y*2 < h; y++ {
		for x := 0; x < w; x++ {
			top := img.RGBAAt(x, y*2)
			bottom := top
			if y*2+1 < h {
				bottom = img.RGBAAt(x, y*2+1)
			}
			st := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			screen.SetContent(x, y, halfBlock, nil, st)
		}
	}
}

func drawText(screen tcell.Screen, text string) {
	cols, rows := screen.Size()
	screen.Clear()
	y := max(rows-statusLines, 1) / 2
	x := max((cols-len(text))/2, 0)
	st := tcell.StyleDefault.Foreground(tcell.ColorSilver)
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, st)
	}
}

func drawStatus(screen tcell.Screen, h store.Handle) {
	cols, rows := screen.Size()
	if rows < 1 || h == nil {
		return
	}
	s := h.Get()
	cfg := visual.ConfigFor(s)
	c := cfg.Palette.Primary
	label := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).Bold(true)
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	line := []rune(fmt.Sprintf(" %s ", cfg.Label))
	help := []rune(" h hover  space quantum  c click  o start  s ok  e err  k cycle  m motion  q quit")
	y := rows - 1
	for x := 0; x < cols; x++ {
		r, st := ' ', dim
		switch {
		case x < len(line):
			r, st = line[x], label
		case x-len(line) < len(help):
			r = help[x-len(line)]
		}
		screen.SetContent(x, y, r, nil, st)
	}
}
