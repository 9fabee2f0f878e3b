package director

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"brain/internal/store"
	"brain/internal/visual"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDirector() (*Director, *store.Store, *ManualClock) {
	s := store.New()
	clk := NewManualClock()
	return New(s, WithClock(clk)), s, clk
}

func TestOperationLifecycleRevertsAfterDwell(t *testing.T) {
	d, s, clk := newTestDirector()

	d.Fire(visual.EventOperationStart, 0)
	assert.Equal(t, visual.StateNeural, s.Get())
	assert.False(t, d.RevertPending())

	d.Fire(visual.EventOperationSuccess, 0)
	assert.Equal(t, visual.StateSuccess, s.Get())
	assert.True(t, d.RevertPending())

	clk.Advance(visual.SuccessDwell - time.Millisecond)
	assert.Equal(t, visual.StateSuccess, s.Get())

	clk.Advance(time.Millisecond)
	assert.Equal(t, visual.StateOrganic, s.Get())
	assert.False(t, d.RevertPending())
}

func TestNewEventOverridesPendingRevert(t *testing.T) {
	d, s, clk := newTestDirector()

	d.Fire(visual.EventOperationError, 0)
	assert.Equal(t, visual.StateError, s.Get())

	clk.Advance(visual.ErrorDwell / 2)
	d.Fire(visual.EventHoverPrimary, 0)
	assert.Equal(t, visual.StateNeural, s.Get())

	clk.Advance(visual.ErrorDwell)
	assert.Equal(t, visual.StateNeural, s.Get(), "cancelled revert must not fire")
	assert.Zero(t, clk.Pending())
}

func TestErrorDwellIsLongerThanSuccess(t *testing.T) {
	d, s, clk := newTestDirector()

	d.Fire(visual.EventOperationError, 0)
	clk.Advance(visual.SuccessDwell)
	assert.Equal(t, visual.StateError, s.Get())
	clk.Advance(visual.ErrorDwell - visual.SuccessDwell)
	assert.Equal(t, visual.StateOrganic, s.Get())
}

func TestRepeatedTransientRestartsDwell(t *testing.T) {
	d, s, clk := newTestDirector()

	d.Fire(visual.EventClickPrimary, 0)
	clk.Advance(time.Second)
	d.Fire(visual.EventClickPrimary, 0)
	clk.Advance(time.Second)
	assert.Equal(t, visual.StateSuccess, s.Get())
	clk.Advance(visual.SuccessDwell)
	assert.Equal(t, visual.StateOrganic, s.Get())
}

func TestListenersSeeOrigins(t *testing.T) {
	d, _, clk := newTestDirector()
	var changes []Change
	remove := d.Listen(func(c Change) { changes = append(changes, c) })

	d.Fire(visual.EventOperationSuccess, 0.3)
	d.FireRemote(visual.EventHoverSecondary, 0)
	d.Fire(visual.EventOperationError, 0)
	clk.Advance(visual.ErrorDwell)

	require.Len(t, changes, 4)
	assert.Equal(t, Change{Event: visual.EventOperationSuccess, Intensity: 0.3, From: visual.StateOrganic, To: visual.StateSuccess, Origin: OriginLocal}, changes[0])
	assert.Equal(t, OriginRemote, changes[1].Origin)
	assert.Equal(t, visual.StateQuantum, changes[1].To)
	assert.Equal(t, OriginRevert, changes[3].Origin)
	assert.Equal(t, visual.EventIdle, changes[3].Event)

	remove()
	d.Fire(visual.EventIdle, 0)
	assert.Len(t, changes, 4)
}

func TestTrack(t *testing.T) {
	d, s, clk := newTestDirector()
	ctx := context.Background()

	var during visual.State
	err := d.Track(ctx, func(context.Context) error {
		during = s.Get()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, visual.StateNeural, during)
	assert.Equal(t, visual.StateSuccess, s.Get())

	boom := errors.New("boom")
	err = d.Track(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, visual.StateError, s.Get())

	clk.Advance(visual.ErrorDwell)
	assert.Equal(t, visual.StateOrganic, s.Get())
}

func TestCloseCancelsRevert(t *testing.T) {
	d, s, clk := newTestDirector()
	d.Fire(visual.EventOperationSuccess, 0)
	d.Close()
	clk.Advance(visual.SuccessDwell)
	assert.Equal(t, visual.StateSuccess, s.Get())

	d.Fire(visual.EventIdle, 0)
	assert.Equal(t, visual.StateSuccess, s.Get(), "closed director ignores events")
}

func TestNilStoreHandle(t *testing.T) {
	var s *store.Store
	d := New(s, WithClock(NewManualClock()))
	assert.NotPanics(t, func() {
		assert.Equal(t, visual.StateNeural, d.Fire(visual.EventHoverPrimary, 0))
	})
}

func TestRealClockRevert(t *testing.T) {
	s := store.New()
	d := New(s)
	defer d.Close()

	d.Fire(visual.EventOperationSuccess, 0)
	assert.Eventually(t, func() bool {
		return s.Get() == visual.StateOrganic
	}, visual.SuccessDwell+time.Second, 20*time.Millisecond)
}

func TestSubscriberMayFireAgain(t *testing.T) {
	d, s, _ := newTestDirector()
	var seen []visual.State
	unsub := s.Subscribe(func(st visual.State) {
		seen = append(seen, st)
		if st == visual.StateSuccess {
			d.Fire(visual.EventHoverPrimary, 0)
		}
	})
	defer unsub()

	done := make(chan visual.State, 1)
	go func() { done <- d.Fire(visual.EventClickPrimary, 0) }()
	select {
	case got := <-done:
		assert.Equal(t, visual.StateSuccess, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Fire blocked on a re-entrant subscriber")
	}

	assert.Equal(t, visual.StateNeural, s.Get())
	assert.Equal(t, []visual.State{visual.StateSuccess, visual.StateNeural}, seen)
	assert.False(t, d.RevertPending(), "neural has no dwell")
}

func TestListenerFireIsAppliedInOrder(t *testing.T) {
	d, s, clk := newTestDirector()
	var changes []Change
	d.Listen(func(c Change) {
		changes = append(changes, c)
		if c.To == visual.StateNeural && c.Origin == OriginLocal {
			d.Fire(visual.EventOperationError, 0)
		}
	})

	assert.Equal(t, visual.StateNeural, d.Fire(visual.EventOperationStart, 0))
	require.Len(t, changes, 2)
	assert.Equal(t, visual.StateNeural, changes[1].From)
	assert.Equal(t, visual.StateError, changes[1].To)
	assert.Equal(t, visual.StateError, s.Get())
	assert.True(t, d.RevertPending())

	clk.Advance(visual.ErrorDwell)
	assert.Equal(t, visual.StateOrganic, s.Get())
}
