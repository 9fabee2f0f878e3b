// Package frame is the per-frame callback queue the render and audio loops
// reschedule themselves on. The host pumps it once per display refresh.
package frame

import (
	"sync"
	"time"
)

// Callback receives the host's monotonic time at the start of the frame.
type Callback func(now time.Duration)

// Handle identifies a requested frame. Zero is never issued.
type Handle uint64

// Scheduler is the requestAnimationFrame contract.
type Scheduler interface {
	RequestFrame(Callback) Handle
	CancelFrame(Handle)
}

// Queue runs callbacks requested before a Pump on that Pump. Callbacks
// requested while pumping wait for the next one.
type Queue struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]Callback
	order   []Handle
}

var _ Scheduler = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{pending: make(map[Handle]Callback)}
}

func (q *Queue) RequestFrame(cb Callback) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	h := q.next
	q.pending[h] = cb
	q.order = append(q.order, h)
	return h
}

func (q *Queue) CancelFrame(h Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, h)
}

// Pump runs the callbacks due this frame and returns how many ran.
func (q *Queue) Pump(now time.Duration) int {
	q.mu.Lock()
	order := q.order
	q.order = nil
	q.mu.Unlock()

	ran := 0
	for _, h := range order {
		q.mu.Lock()
		cb, ok := q.pending[h]
		delete(q.pending, h)
		q.mu.Unlock()
		if !ok {
			continue
		}
		cb(now)
		ran++
	}
	return ran
}

// Pending reports how many callbacks wait for the next Pump.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Driver pumps a queue from a ticker, for hosts without a vsync callback.
type Driver struct {
	Queue    *Queue
	Interval time.Duration
}

// Run pumps until stop is closed.
func (d Driver) Run(stop <-chan struct{}) {
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	start := time.Now()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			d.Queue.Pump(time.Since(start))
		}
	}
}
