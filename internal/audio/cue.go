package audio

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"go.uber.org/zap"

	"brain/internal/visual"
)

// Sink plays one float32 stereo PCM buffer.
type Sink interface {
	Play(pcm []byte, volume float64)
}

// Cues plays a short sound when the visual state enters success or error.
// At most one cue plays at a time; overlapping requests are dropped.
type Cues struct {
	sink    Sink
	volume  float64
	playing atomic.Bool
	wg      sync.WaitGroup

	once    sync.Once
	success []byte
	failure []byte
}

func NewCues(sink Sink, volume float64) *Cues {
	return &Cues{sink: sink, volume: clampF(volume, 0, 1)}
}

// Play reports whether a cue was started for s.
func (c *Cues) Play(s visual.State) bool {
	if c == nil || c.sink == nil || !s.Transient() {
		return false
	}
	c.once.Do(func() {
		c.success = SuccessChime()
		c.failure = ErrorTone()
	})
	if !c.playing.CompareAndSwap(false, true) {
		return false
	}
	pcm := c.success
	if s == visual.StateError {
		pcm = c.failure
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.playing.Store(false)
		c.sink.Play(pcm, c.volume)
	}()
	return true
}

// Wait blocks until the current cue has finished.
func (c *Cues) Wait() {
	if c != nil {
		c.wg.Wait()
	}
}

// Speaker is an oto-backed Sink.
type Speaker struct {
	ctx   *oto.Context
	ready chan struct{}
	log   *zap.Logger
}

func NewSpeaker(log *zap.Logger) (*Speaker, error) {
	ctx, ready, err := oto.NewContext(CueSampleRate, CueChannelCount, cueFormat)
	if err != nil {
		return nil, fmt.Errorf("audio output: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Speaker{ctx: ctx, ready: ready, log: log}, nil
}

// Play blocks until the buffer has drained. Nothing plays before the
// output device is ready.
func (sp *Speaker) Play(pcm []byte, volume float64) {
	select {
	case <-sp.ready:
	default:
		sp.log.Debug("audio output not ready, cue dropped")
		return
	}
	player := sp.ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(volume)
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		sp.log.Debug("close cue player", zap.Error(err))
	}
}
