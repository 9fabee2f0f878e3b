// Package audio derives a smoothed loudness scalar from a live microphone
// stream and plays short procedural cues for transient states.
package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"brain/internal/frame"
)

var ErrNoDevice = errors.New("no audio input device")

// Track is one acquired input track.
type Track interface {
	Stop()
}

// Stream is a live input together with its analysis context. Releasing it
// means stopping every track and closing the stream.
type Stream interface {
	Tracks() []Track
	TimeDomain(buf []byte) int
	Close() error
}

// Device grants microphone access. Open may block on a permission prompt.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

const (
	DefaultGain      = 4.0
	DefaultSmoothing = 0.8
)

// Sampler owns the microphone stream while enabled and publishes the
// loudness of every frame as a value in [0,1].
type Sampler struct {
	dev       Device
	frames    frame.Scheduler
	log       *zap.Logger
	gain      float64
	smoothing float64

	mu      sync.Mutex
	enabled bool
	gen     uint64
	cancel  context.CancelFunc
	stream  Stream
	handle  frame.Handle
	buf     []byte
	level   float64
	wg      sync.WaitGroup

	value atomic.Uint64
}

type SamplerOption func(*Sampler)

func WithGain(g float64) SamplerOption { return func(s *Sampler) { s.gain = g } }

// WithSmoothing sets the weight kept from the previous frame, in [0,1).
func WithSmoothing(k float64) SamplerOption {
	return func(s *Sampler) { s.smoothing = clampF(k, 0, 0.99) }
}

func WithLogger(l *zap.Logger) SamplerOption { return func(s *Sampler) { s.log = l } }

func NewSampler(dev Device, frames frame.Scheduler, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		dev:       dev,
		frames:    frames,
		log:       zap.NewNop(),
		gain:      DefaultGain,
		smoothing: DefaultSmoothing,
		buf:       make([]byte, DefaultWindow),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Intensity is the latest smoothed loudness, 0 while disabled.
func (s *Sampler) Intensity() float64 {
	if s == nil {
		return 0
	}
	return math.Float64frombits(s.value.Load())
}

// Update applies the two enablement conditions. The microphone is requested
// only when the feature flag is on and reduced motion is off.
func (s *Sampler) Update(flag, reducedMotion bool) {
	if flag && !reducedMotion {
		s.enable()
		return
	}
	s.disable()
}

// Active reports whether a stream is currently held.
func (s *Sampler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

func (s *Sampler) enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled || s.dev == nil {
		return
	}
	s.enabled = true
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		st, err := s.dev.Open(ctx)
		if err != nil {
			s.log.Debug("microphone unavailable, intensity stays 0", zap.Error(err))
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || !s.enabled {
			release(st)
			return
		}
		s.stream = st
		s.level = 0
		s.handle = s.frames.RequestFrame(s.tick)
	}()
}

func (s *Sampler) disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disableLocked()
}

func (s *Sampler) disableLocked() {
	if !s.enabled {
		return
	}
	s.enabled = false
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.handle != 0 {
		s.frames.CancelFrame(s.handle)
		s.handle = 0
	}
	if s.stream != nil {
		release(s.stream)
		s.stream = nil
	}
	s.level = 0
	s.value.Store(0)
}

func (s *Sampler) tick(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return
	}
	n := s.stream.TimeDomain(s.buf)
	raw := clampF(RMS(s.buf[:n])*s.gain, 0, 1)
	s.level = s.level*s.smoothing + raw*(1-s.smoothing)
	s.value.Store(math.Float64bits(clampF(s.level, 0, 1)))
	s.handle = s.frames.RequestFrame(s.tick)
}

// Close disables the sampler and waits for an in-flight request to settle,
// so no acquired stream survives it.
func (s *Sampler) Close() {
	s.disable()
	s.wg.Wait()
}

func release(st Stream) {
	for _, t := range st.Tracks() {
		t.Stop()
	}
	_ = st.Close()
}
