package engine

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSlowFrame    = 50 * time.Millisecond
	DefaultSampleWindow = 60
)

// Monitor keeps a rolling average of frame cost and warns once when a full
// window averages above the threshold. It never changes rendering.
type Monitor struct {
	log       *zap.Logger
	threshold time.Duration
	ring      []time.Duration
	pos       int
	filled    int
	sum       time.Duration
	warned    bool
}

func NewMonitor(log *zap.Logger, threshold time.Duration, window int) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultSlowFrame
	}
	if window <= 0 {
		window = DefaultSampleWindow
	}
	return &Monitor{log: log, threshold: threshold, ring: make([]time.Duration, window)}
}

// Observe records one frame and reports whether this call emitted the warning.
func (m *Monitor) Observe(d time.Duration) bool {
	m.sum += d - m.ring[m.pos]
	m.ring[m.pos] = d
	m.pos = (m.pos + 1) % len(m.ring)
	if m.filled < len(m.ring) {
		m.filled++
	}
	if m.warned || m.filled < len(m.ring) {
		return false
	}
	avg := m.Average()
	if avg <= m.threshold {
		return false
	}
	m.warned = true
	m.log.Warn("visualization frames are slow",
		zap.Duration("average", avg),
		zap.Duration("threshold", m.threshold),
		zap.Int("frames", len(m.ring)),
	)
	return true
}

// Average is the mean over the frames seen so far, up to one window.
func (m *Monitor) Average() time.Duration {
	if m.filled == 0 {
		return 0
	}
	return m.sum / time.Duration(m.filled)
}

func (m *Monitor) Warned() bool { return m.warned }

// Reset forgets every observed frame and re-arms the warning.
func (m *Monitor) Reset() {
	clear(m.ring)
	m.pos, m.filled, m.sum = 0, 0, 0
	m.warned = false
}
