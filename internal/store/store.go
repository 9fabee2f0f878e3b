package store

import (
	"sync"

	"brain/internal/visual"
)

// Handler is called with the new state after every change.
type Handler func(visual.State)

// Handle is the narrow view consumers depend on. *Store satisfies it,
// including a nil *Store, which stands in when no visualization is mounted.
type Handle interface {
	Get() visual.State
	Set(visual.State)
	Subscribe(Handler) (unsubscribe func())
}

// Store holds the single active visual state. Writes are last-write-wins.
type Store struct {
	mu       sync.RWMutex
	state    visual.State
	handlers map[int]Handler
	nextID   int
}

var _ Handle = (*Store)(nil)

func New() *Store {
	return NewWith(visual.StateOrganic)
}

// NewWith starts the store at initial instead of organic.
func NewWith(initial visual.State) *Store {
	if !initial.Valid() {
		initial = visual.StateOrganic
	}
	return &Store{
		state:    initial,
		handlers: make(map[int]Handler),
	}
}

// Lookup returns the current state, and false when s is the absent store.
func (s *Store) Lookup() (visual.State, bool) {
	if s == nil {
		return visual.StateOrganic, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, true
}

func (s *Store) Get() visual.State {
	v, _ := s.Lookup()
	return v
}

// Set stores v and notifies subscribers when it differs from the current value.
// Invalid states are ignored.
func (s *Store) Set(v visual.State) {
	if s == nil || !v.Valid() {
		return
	}
	s.mu.Lock()
	if s.state == v {
		s.mu.Unlock()
		return
	}
	s.state = v
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(v)
	}
}

func (s *Store) SetOrganic() { s.Set(visual.StateOrganic) }
func (s *Store) SetNeural()  { s.Set(visual.StateNeural) }
func (s *Store) SetQuantum() { s.Set(visual.StateQuantum) }
func (s *Store) SetSuccess() { s.Set(visual.StateSuccess) }
func (s *Store) SetError()   { s.Set(visual.StateError) }

// Subscribe registers h for change notifications.
func (s *Store) Subscribe(h Handler) func() {
	if s == nil || h == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers reports how many handlers are registered.
func (s *Store) Subscribers() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
