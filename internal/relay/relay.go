// Package relay mirrors locally fired events to other brain instances over
// a Redis pub/sub channel and applies theirs here.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brain/internal/director"
	"brain/internal/visual"
)

const outboxSize = 64

// Director is the part of director.Director the relay needs.
type Director interface {
	Listen(director.Listener) (remove func())
	FireRemote(e visual.Event, intensity float64) visual.State
}

// Message is the wire form of one relayed event.
type Message struct {
	Origin    string    `json:"origin"`
	Event     string    `json:"event"`
	Intensity float64   `json:"intensity,omitempty"`
	State     string    `json:"state"`
	At        time.Time `json:"at"`
}

type Relay struct {
	client  *backend.Client
	channel string
	id      string
	dir     Director
	log     *zap.Logger

	outbox chan Message
	ready  chan struct{}
}

// NewClient creates a Redis client for addr.
func NewClient(addr string) *backend.Client {
	return backend.NewClient(&backend.Options{Addr: addr})
}

func New(client *backend.Client, channel string, dir Director, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		client:  client,
		channel: channel,
		id:      uuid.NewString(),
		dir:     dir,
		log:     log.With(zap.String("channel", channel)),
		outbox:  make(chan Message, outboxSize),
		ready:   make(chan struct{}),
	}
}

// ID is this instance's origin id on the channel.
func (r *Relay) ID() string { return r.id }

// Ready is closed once the subscription is confirmed.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

// Run subscribes, publishes local changes and applies remote ones until ctx
// is cancelled. Only changes fired locally leave this instance, so reverts
// and mirrored events never echo.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	remove := r.dir.Listen(r.enqueue)
	defer remove()
	close(r.ready)
	r.log.Info("relay subscribed", zap.String("origin", r.id))

	in := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-r.outbox:
			if err := r.publish(ctx, msg); err != nil {
				r.log.Warn("relay publish failed", zap.Error(err))
			}
		case m, ok := <-in:
			if !ok {
				return nil
			}
			r.apply(m.Payload)
		}
	}
}

func (r *Relay) enqueue(c director.Change) {
	if c.Origin != director.OriginLocal {
		return
	}
	msg := Message{
		Origin:    r.id,
		Event:     string(c.Event),
		Intensity: c.Intensity,
		State:     c.To.String(),
		At:        time.Now().UTC(),
	}
	select {
	case r.outbox <- msg:
	default:
		r.log.Warn("relay outbox full, event dropped", zap.String("event", msg.Event))
	}
}

func (r *Relay) publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *Relay) apply(payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.log.Debug("relay message ignored", zap.Error(err))
		return
	}
	if msg.Origin == r.id {
		return
	}
	e, err := visual.ParseEvent(msg.Event)
	if err != nil {
		r.log.Debug("relay event ignored", zap.String("event", msg.Event), zap.Error(err))
		return
	}
	next := r.dir.FireRemote(e, msg.Intensity)
	r.log.Debug("relay event applied",
		zap.String("from", msg.Origin),
		zap.String("event", msg.Event),
		zap.Stringer("state", next))
}
