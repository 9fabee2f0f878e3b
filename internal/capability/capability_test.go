package capability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDetect(t *testing.T) {
	probes := 0
	d := Detector{
		VisualEnabled: true,
		Motion:        NewMotionSwitch(true),
		ProbeGPU:      func() error { probes++; return nil },
	}
	c := d.Detect()
	assert.True(t, c.GPU)
	assert.True(t, c.ReducedMotion)
	assert.Equal(t, 1, probes)

	failing := errors.New("no context")
	d.ProbeGPU = func() error { return failing }
	c = d.Detect()
	assert.False(t, c.GPU)
	assert.ErrorIs(t, c.GPUErr, failing)

	d.ProbeGPU = nil
	assert.ErrorIs(t, d.Detect().GPUErr, ErrNoGPU)
}

func TestDetectSkipsGPUWhenDisabled(t *testing.T) {
	called := false
	c := Detector{ProbeGPU: func() error { called = true; return nil }}.Detect()
	assert.False(t, called)
	assert.False(t, c.VisualEnabled)
	assert.False(t, c.GPU)
}

func TestMotionSwitch(t *testing.T) {
	s := NewMotionSwitch(false)
	var seen []bool
	unsubscribe := s.Subscribe(func(v bool) { seen = append(seen, v) })

	s.Set(false)
	s.Toggle()
	s.Set(true)
	s.Toggle()
	assert.Equal(t, []bool{true, false}, seen)

	unsubscribe()
	s.Toggle()
	assert.Len(t, seen, 2)
	assert.True(t, s.Reduced())

	assert.False(t, Detector{}.MotionOrDefault().Reduced())
}

func TestFileMotionFollowsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motion")
	require.NoError(t, os.WriteFile(path, []byte("no-preference\n"), 0o644))

	fm, err := NewFileMotion(path, false, nil)
	require.NoError(t, err)
	assert.False(t, fm.Reduced())

	flips := make(chan bool, 8)
	fm.Subscribe(func(v bool) { flips <- v })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fm.Start(ctx)
	defer func() {
		require.NoError(t, fm.Close())
		fm.Wait()
	}()

	require.NoError(t, os.WriteFile(path, []byte("reduce"), 0o644))
	select {
	case v := <-flips:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("preference change not observed")
	}
	assert.True(t, fm.Reduced())

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool { return !fm.Reduced() }, 2*time.Second, 10*time.Millisecond)
}

func TestFileMotionMissingFileUsesFallback(t *testing.T) {
	fm, err := NewFileMotion(filepath.Join(t.TempDir(), "absent"), true, nil)
	require.NoError(t, err)
	defer fm.Close()
	assert.True(t, fm.Reduced())
}
