package visual

import (
	"errors"
	"fmt"
)

// Event is a semantic trigger fed to the state machine by consumers.
type Event string

const (
	EventIdle             Event = "idle"
	EventHoverPrimary     Event = "hover_primary"
	EventClickPrimary     Event = "click_primary"
	EventHoverSecondary   Event = "hover_secondary"
	EventOperationStart   Event = "operation_start"
	EventOperationSuccess Event = "operation_success"
	EventOperationError   Event = "operation_error"
	EventCycle            Event = "cycle"
)

var ErrUnknownEvent = errors.New("unknown transition event")

// Events lists the closed event set.
func Events() []Event {
	return []Event{
		EventIdle,
		EventHoverPrimary,
		EventClickPrimary,
		EventHoverSecondary,
		EventOperationStart,
		EventOperationSuccess,
		EventOperationError,
		EventCycle,
	}
}

// Known reports whether e belongs to the closed event set.
func (e Event) Known() bool {
	for _, k := range Events() {
		if e == k {
			return true
		}
	}
	return false
}

// ParseEvent validates external input (control API, CLI, relay).
func ParseEvent(name string) (Event, error) {
	e := Event(name)
	if !e.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return e, nil
}

// escalateThreshold is the intensity above which an unmatched event
// escalates a non-transient state to quantum.
const escalateThreshold = 0.7

// Transition returns the state that follows current when e is observed.
// It is total and pure: unknown events either escalate on high intensity
// or leave the state unchanged.
func Transition(current State, e Event, intensity float64) State {
	switch e {
	case EventIdle:
		return StateOrganic
	case EventHoverPrimary:
		return StateNeural
	case EventClickPrimary:
		return StateSuccess
	case EventHoverSecondary:
		return StateQuantum
	case EventOperationStart:
		return StateNeural
	case EventOperationSuccess:
		return StateSuccess
	case EventOperationError:
		return StateError
	case EventCycle:
		return current.Next()
	}
	if intensity > escalateThreshold && !current.Transient() {
		return StateQuantum
	}
	return current
}
