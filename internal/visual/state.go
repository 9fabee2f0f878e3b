package visual

import (
	"errors"
	"fmt"
	"time"
)

type State int

const (
	StateOrganic State = iota // idle / breathing
	StateNeural               // reasoning
	StateQuantum              // generating
	StateSuccess              // transient, positive outcome
	StateError                // transient, negative outcome
)

// StateCount is the size of the closed state set.
const StateCount = 5

// Dwell times before a transient state reverts to organic.
const (
	SuccessDwell = 1500 * time.Millisecond
	ErrorDwell   = 2000 * time.Millisecond
)

var ErrUnknownState = errors.New("unknown visual state")

var stateNames = [StateCount]string{
	StateOrganic: "organic",
	StateNeural:  "neural",
	StateQuantum: "quantum",
	StateSuccess: "success",
	StateError:   "error",
}

// States lists every state in cycle order.
func States() []State {
	return []State{StateOrganic, StateNeural, StateQuantum, StateSuccess, StateError}
}

func (s State) Valid() bool { return s >= 0 && s < StateCount }

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Transient reports whether the state auto-reverts after its dwell time.
func (s State) Transient() bool {
	return s == StateSuccess || s == StateError
}

// Dwell returns how long a transient state is held before reverting.
// Zero for non-transient states.
func (s State) Dwell() time.Duration {
	switch s {
	case StateSuccess:
		return SuccessDwell
	case StateError:
		return ErrorDwell
	}
	return 0
}

// Next returns the successor in the fixed cycle order, wrapping to organic.
func (s State) Next() State {
	if !s.Valid() {
		return StateOrganic
	}
	return (s + 1) % StateCount
}

// ParseState maps a state name back to its value.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateOrganic, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
