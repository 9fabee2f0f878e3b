package audio

import (
	"math"
	"sync"
)

// Bias is the zero-signal value of an unsigned 8-bit time-domain sample.
const Bias = 128

// DefaultWindow is the number of samples inspected per frame.
const DefaultWindow = 2048

// Analyser keeps the most recent PCM samples of an input stream and serves
// them as an unsigned 8-bit time-domain buffer centred on Bias.
type Analyser struct {
	mu   sync.Mutex
	ring []int16
	pos  int
	full bool
}

func NewAnalyser(window int) *Analyser {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyser{ring: make([]int16, window)}
}

// WritePCM16 appends little-endian signed 16-bit mono samples.
func (a *Analyser) WritePCM16(pcm []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(pcm); i += 2 {
		a.ring[a.pos] = int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		a.pos++
		if a.pos == len(a.ring) {
			a.pos = 0
			a.full = true
		}
	}
}

// TimeDomain fills buf with the latest samples, oldest first, and returns
// how many were written. Slots without data read as Bias.
func (a *Analyser) TimeDomain(buf []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	avail := a.pos
	if a.full {
		avail = len(a.ring)
	}
	n := len(buf)
	if n > len(a.ring) {
		n = len(a.ring)
	}
	for i := range buf {
		buf[i] = Bias
	}
	if avail < n {
		n = avail
	}
	start := a.pos - n
	if start < 0 {
		start += len(a.ring)
	}
	for i := 0; i < n; i++ {
		s := a.ring[(start+i)%len(a.ring)]
		buf[i] = uint8(int(s)>>8 + Bias)
	}
	return n
}

// RMS is the root-mean-square amplitude of an unsigned 8-bit time-domain
// buffer, normalized against Bias into [0,1].
func RMS(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, b := range buf {
		v := (float64(b) - Bias) / Bias
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
