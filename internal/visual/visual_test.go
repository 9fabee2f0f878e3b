package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	want := map[Event]State{
		EventIdle:             StateOrganic,
		EventHoverPrimary:     StateNeural,
		EventClickPrimary:     StateSuccess,
		EventHoverSecondary:   StateQuantum,
		EventOperationStart:   StateNeural,
		EventOperationSuccess: StateSuccess,
		EventOperationError:   StateError,
	}
	for _, from := range States() {
		for ev, to := range want {
			for _, intensity := range []float64{0, 0.5, 0.9} {
				assert.Equal(t, to, Transition(from, ev, intensity), "%s --%s/%v-->", from, ev, intensity)
			}
		}
	}
}

func TestTransitionIsRepeatable(t *testing.T) {
	for _, from := range States() {
		for _, ev := range append(Events(), Event("bogus")) {
			first := Transition(from, ev, 0.8)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, Transition(from, ev, 0.8))
			}
		}
	}
}

func TestCycleWrapsAfterFive(t *testing.T) {
	order := []State{StateOrganic, StateNeural, StateQuantum, StateSuccess, StateError}
	for i, from := range order {
		assert.Equal(t, order[(i+1)%len(order)], Transition(from, EventCycle, 0))

		s := from
		for n := 0; n < StateCount; n++ {
			s = Transition(s, EventCycle, 0)
			if n < StateCount-1 {
				assert.NotEqual(t, from, s)
			}
		}
		assert.Equal(t, from, s)
	}
}

func TestUnknownEventHeuristic(t *testing.T) {
	unknown := Event("scroll")

	assert.Equal(t, StateQuantum, Transition(StateOrganic, unknown, 0.71))
	assert.Equal(t, StateQuantum, Transition(StateNeural, unknown, 1))
	assert.Equal(t, StateOrganic, Transition(StateOrganic, unknown, 0.7))
	assert.Equal(t, StateNeural, Transition(StateNeural, unknown, 0))

	// transient states are never escalated
	assert.Equal(t, StateSuccess, Transition(StateSuccess, unknown, 0.95))
	assert.Equal(t, StateError, Transition(StateError, unknown, 0.95))
}

func TestTransientClassification(t *testing.T) {
	for _, s := range States() {
		switch s {
		case StateSuccess, StateError:
			assert.True(t, s.Transient(), s.String())
			assert.NotZero(t, s.Dwell())
		default:
			assert.False(t, s.Transient(), s.String())
			assert.Zero(t, s.Dwell())
		}
	}
	assert.Equal(t, SuccessDwell, StateSuccess.Dwell())
	assert.Equal(t, ErrorDwell, StateError.Dwell())
}

func TestParse(t *testing.T) {
	for _, s := range States() {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("calm")
	assert.ErrorIs(t, err, ErrUnknownState)

	for _, e := range Events() {
		got, err := ParseEvent(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err = ParseEvent("double_click")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestConfigs(t *testing.T) {
	seen := map[Palette]State{}
	for _, s := range States() {
		cfg := ConfigFor(s)
		assert.NotEmpty(t, cfg.Label)
		assert.NotEmpty(t, cfg.Description)
		if prev, dup := seen[cfg.Palette]; dup {
			t.Errorf("%s shares a palette with %s", s, prev)
		}
		seen[cfg.Palette] = s
	}
	success := ConfigFor(StateSuccess).Palette.Primary
	assert.Greater(t, success.G, success.R)
	failure := ConfigFor(StateError).Palette.Primary
	assert.Greater(t, failure.R, failure.G)
}
