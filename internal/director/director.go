// Package director turns consumer events into store transitions and owns the
// dwell timers that bring transient states back to organic.
package director

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"brain/internal/store"
	"brain/internal/visual"
)

type Origin int

const (
	OriginLocal  Origin = iota // fired by an in-process consumer
	OriginRemote               // mirrored from another instance
	OriginRevert               // dwell timer elapsed
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginRevert:
		return "revert"
	}
	return "unknown"
}

// Change describes one applied event.
type Change struct {
	Event     visual.Event
	Intensity float64
	From      visual.State
	To        visual.State
	Origin    Origin
}

type Listener func(Change)

type Director struct {
	mu        sync.Mutex
	store     store.Handle
	clock     Clock
	log       *zap.Logger
	pending   Timer
	gen       uint64
	closed    bool
	listeners map[int]Listener
	nextID    int

	// Changes are applied to the store outside mu, in order, by whichever
	// caller finds the queue idle. tail is the last queued target.
	queue    []Change
	draining bool
	tail     visual.State
}

type Option func(*Director)

func WithClock(c Clock) Option { return func(d *Director) { d.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(d *Director) { d.log = l } }

func New(h store.Handle, opts ...Option) *Director {
	d := &Director{
		store:     h,
		clock:     RealClock{},
		log:       zap.NewNop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	return d
}

// Fire applies e from a local consumer and returns the resulting state.
func (d *Director) Fire(e visual.Event, intensity float64) visual.State {
	return d.fire(e, intensity, OriginLocal, 0)
}

// FireRemote applies an event mirrored from another instance.
func (d *Director) FireRemote(e visual.Event, intensity float64) visual.State {
	return d.fire(e, intensity, OriginRemote, 0)
}

// fire computes and queues the transition under mu, then applies queued
// changes with mu released so store subscribers and listeners may fire
// again. A nested or concurrent call only queues; the draining caller
// applies it next.
func (d *Director) fire(e visual.Event, intensity float64, origin Origin, gen uint64) visual.State {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return d.store.Get()
	}
	if origin == OriginRevert && gen != d.gen {
		// superseded by a newer event
		d.mu.Unlock()
		return d.store.Get()
	}
	d.cancelLocked()

	from := d.tail
	if !d.draining {
		from = d.store.Get()
	}
	to := visual.Transition(from, e, intensity)
	d.tail = to
	if dwell := to.Dwell(); dwell > 0 {
		g := d.gen
		d.pending = d.clock.AfterFunc(dwell, func() {
			d.fire(visual.EventIdle, 0, OriginRevert, g)
		})
	}
	d.queue = append(d.queue, Change{Event: e, Intensity: intensity, From: from, To: to, Origin: origin})
	if d.draining {
		d.mu.Unlock()
		return to
	}

	d.draining = true
	for len(d.queue) > 0 {
		c := d.queue[0]
		d.queue = d.queue[1:]
		listeners := make([]Listener, 0, len(d.listeners))
		for _, l := range d.listeners {
			listeners = append(listeners, l)
		}
		d.mu.Unlock()
		d.apply(c, listeners)
		d.mu.Lock()
	}
	d.queue = nil
	d.draining = false
	d.mu.Unlock()
	return to
}

func (d *Director) apply(c Change, listeners []Listener) {
	d.store.Set(c.To)
	d.log.Debug("visual transition",
		zap.String("event", string(c.Event)),
		zap.Stringer("from", c.From),
		zap.Stringer("to", c.To),
		zap.Stringer("origin", c.Origin))
	for _, l := range listeners {
		l(c)
	}
}

func (d *Director) cancelLocked() {
	d.gen++
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

// Listen registers l for every applied change.
func (d *Director) Listen(l Listener) (remove func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// RevertPending reports whether a dwell revert is armed.
func (d *Director) RevertPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Track drives the operation lifecycle around fn: operation_start before,
// operation_success or operation_error after. fn's error is returned as is.
func (d *Director) Track(ctx context.Context, fn func(context.Context) error) error {
	d.Fire(visual.EventOperationStart, 0)
	if err := fn(ctx); err != nil {
		d.Fire(visual.EventOperationError, 0)
		return err
	}
	d.Fire(visual.EventOperationSuccess, 0)
	return nil
}

// Close cancels any pending revert. Later events are ignored.
func (d *Director) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}
