package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brain/internal/audio"
	"brain/internal/capability"
	"brain/internal/config"
	"brain/internal/control"
	"brain/internal/director"
	"brain/internal/engine"
	"brain/internal/frame"
	"brain/internal/relay"
	"brain/internal/store"
)

// app holds what the interactive hosts share: the state, its consumers and
// the services running beside the presenter.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	director *director.Director
	metrics  *engine.Metrics
	cues     *audio.Cues

	motion     capability.MotionPreference
	toggle     *capability.MotionSwitch
	fileMotion *capability.FileMotion

	closers []func()
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		store:   store.New(),
		metrics: engine.NewMetrics(),
	}
	a.director = director.New(a.store, director.WithLogger(log))
	a.closers = append(a.closers, a.director.Close)

	if path := cfg.Motion.PreferenceFile; path != "" {
		fm, err := capability.NewFileMotion(path, cfg.Motion.Reduced, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("reduced-motion preference: %w", err)
		}
		a.fileMotion, a.motion = fm, fm
		a.closers = append(a.closers, func() { _ = fm.Close() })
	} else {
		a.toggle = capability.NewMotionSwitch(cfg.Motion.Reduced)
		a.motion = a.toggle
	}

	if cfg.Audio.Cues {
		sp, err := audio.NewSpeaker(log)
		if err != nil {
			log.Warn("audio cues disabled", zap.Error(err))
		} else {
			a.cues = audio.NewCues(sp, cfg.Audio.CueVolume)
			remove := a.director.Listen(a.playCue)
			a.closers = append(a.closers, remove, a.cues.Wait)
		}
	}
	return a, nil
}

func (a *app) playCue(c director.Change) {
	if c.From == c.To {
		return
	}
	a.cues.Play(c.To)
}

// engineOptions fills everything but the host-specific fields.
func (a *app) engineOptions() engine.Options {
	return engine.Options{
		Detector: capability.Detector{
			VisualEnabled: a.cfg.Visual.Enabled,
			Motion:        a.motion,
		},
		Store: a.store,
		NewAudio: func(fs frame.Scheduler) engine.IntensitySource {
			return audio.NewSampler(audio.Mic{}, fs,
				audio.WithGain(a.cfg.Audio.Gain),
				audio.WithSmoothing(a.cfg.Audio.Smoothing),
				audio.WithLogger(a.log),
			)
		},
		AudioReactive: a.cfg.Audio.Reactive,
		Logger:        a.log,
		Metrics:       a.metrics,
		SlowFrame:     a.cfg.GetSlowFrameThreshold(),
		SampleWindow:  a.cfg.Visual.SampleWindow,
	}
}

// serve runs the optional services until ctx ends or one of them fails.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.fileMotion != nil {
		a.fileMotion.Start(ctx)
	}
	if addr := a.cfg.Control.Addr; addr != "" {
		h := control.NewHandler(control.Options{
			Firer:    a.director,
			Store:    a.store,
			Gatherer: a.metrics.Registry,
			Logger:   a.log,
		})
		g.Go(func() error {
			return control.ListenAndServe(ctx, addr, h, a.log)
		})
	}
	if addr := a.cfg.Relay.RedisAddr; addr != "" {
		client := relay.NewClient(addr)
		r := relay.New(client, a.cfg.Relay.Channel, a.director, a.log)
		g.Go(func() error {
			defer client.Close()
			// the relay is optional; losing it leaves this instance standalone
			if err := r.Run(ctx); err != nil {
				a.log.Warn("relay stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// runHost wires the shared components, starts the services and runs the
// presenter until it returns or a signal arrives. A failing service stops
// the presenter too.
func runHost(cmd *cobra.Command, host func(ctx context.Context, a *app) error) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	served := make(chan error, 1)
	go func() {
		err := a.serve(ctx)
		if err != nil {
			logger.Error("background service failed", zap.Error(err))
			cancel()
		}
		served <- err
	}()

	logger.Info("starting",
		zap.String("command", cmd.Name()),
		zap.Stringer("state", a.store.Get()),
		zap.Bool("visual_enabled", cfg.Visual.Enabled),
	)
	hostErr := host(ctx, a)
	cancel()
	if err := <-served; err != nil && !errors.Is(err, context.Canceled) && hostErr == nil {
		return err
	}
	return hostErr
}
