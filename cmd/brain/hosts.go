package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brain/internal/config"
	"brain/internal/host/term"
	"brain/internal/host/window"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Open the visualization in a desktop window",
	Long: `Opens an OpenGL window. The shader renderer is used when the GPU allows it,
otherwise the CPU renderer is drawn into a texture. Without any OpenGL
window the terminal presenter is used, unless renderer is shader.

Keys: c click, o start, s success, e error, k cycle, i idle,
hold h or space to hover, m toggles reduced motion, q quits.`,
	RunE: runWindow,
}

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Draw the visualization in the terminal",
	Long: `Draws the CPU renderer with half-block cells, two pixels per cell.
Needs a terminal with true colour for the palettes to read correctly.`,
	RunE: runTerm,
}

// Presenters. Replaced in tests, which have no display.
var (
	runWindowHost = window.Run
	runTermHost   = term.Run
)

func runWindow(cmd *cobra.Command, args []string) error {
	return runHost(cmd, presentWindow)
}

// presentWindow opens the window, or the terminal when no OpenGL window can
// be created at all. renderer: shader never falls back.
func presentWindow(ctx context.Context, a *app) error {
	strict := a.cfg.Visual.Renderer == config.RendererShader
	err := runWindowHost(ctx, window.Options{
		Width:         a.cfg.Visual.Width,
		Height:        a.cfg.Visual.Height,
		Title:         "brain",
		ForceFallback: a.cfg.Visual.Renderer == config.RendererFallback,
		RequireShader: strict,
		Engine:        a.engineOptions(),
		Director:      a.director,
		Motion:        a.toggle,
		Logger:        a.log,
	})
	if strict || !errors.Is(err, window.ErrUnavailable) {
		return err
	}
	a.log.Info("no OpenGL window, drawing in the terminal instead", zap.Error(err))
	return presentTerm(ctx, a)
}

func presentTerm(ctx context.Context, a *app) error {
	log := a.log
	if a.cfg.Logging.File == "" {
		// stderr shares the terminal with the screen
		log = zap.NewNop()
	}
	return runTermHost(ctx, term.Options{
		Engine:   a.engineOptions(),
		Director: a.director,
		Motion:   a.toggle,
		Logger:   log,
	})
}

func runTerm(cmd *cobra.Command, args []string) error {
	if cfg.Visual.Renderer == config.RendererShader {
		return errors.New("renderer shader needs the window command; use auto or fallback in the terminal")
	}
	if cfg.Logging.File == "" {
		logger.Info("terminal mode discards logs unless logging.file is set")
		logger = zap.NewNop()
	}
	return runHost(cmd, presentTerm)
}
