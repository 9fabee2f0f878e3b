package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

const (
	MicSampleRate = 44100
	micChannels   = 1
	micPeriodMs   = 20
)

// Mic opens the default capture device through miniaudio.
type Mic struct {
	SampleRate int
	Window     int
}

var _ Device = Mic{}

func (m Mic) Open(ctx context.Context) (Stream, error) {
	rate := m.SampleRate
	if rate <= 0 {
		rate = MicSampleRate
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}

	an := NewAnalyser(m.Window)
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = micChannels
	cfg.SampleRate = uint32(rate)
	cfg.PeriodSizeInMilliseconds = micPeriodMs

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			an.WritePCM16(in)
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	st := &micStream{ctx: mctx, analyser: an}
	st.track = &micTrack{dev: dev}
	if ctx.Err() != nil {
		release(st)
		return nil, ctx.Err()
	}
	return st, nil
}

type micTrack struct {
	once sync.Once
	dev  *malgo.Device
}

func (t *micTrack) Stop() {
	t.once.Do(func() {
		_ = t.dev.Stop()
		t.dev.Uninit()
	})
}

type micStream struct {
	once     sync.Once
	ctx      *malgo.AllocatedContext
	analyser *Analyser
	track    *micTrack
}

func (s *micStream) Tracks() []Track { return []Track{s.track} }

func (s *micStream) TimeDomain(buf []byte) int { return s.analyser.TimeDomain(buf) }

func (s *micStream) Close() error {
	var err error
	s.once.Do(func() {
		s.track.Stop()
		err = s.ctx.Uninit()
		s.ctx.Free()
	})
	return err
}
