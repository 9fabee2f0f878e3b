package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brain/internal/config"
	"brain/internal/control"
	"brain/internal/director"
	"brain/internal/host/term"
	"brain/internal/host/window"
	"brain/internal/store"
	"brain/internal/visual"
)

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("320x180")
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	w, h, err = parseSize("64X32")
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	for _, bad := range []string{"", "320", "x180", "320x", "0x10", "-4x4", "axb"} {
		_, _, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteSnapshots(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()

	paths, err := writeSnapshots(dir, 48, 27, 1.5, 0.3, false)
	require.NoError(t, err)
	require.Len(t, paths, visual.StateCount)

	first := make(map[string][]byte)
	for _, s := range visual.States() {
		p := filepath.Join(dir, s.String()+".png")
		assert.Contains(t, paths, p)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 48, img.Bounds().Dx())
		assert.Equal(t, 27, img.Bounds().Dy())
		first[p] = data
	}

	_, err = writeSnapshots(dir, 48, 27, 1.5, 0.3, false)
	require.NoError(t, err)
	for p, want := range first {
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, "snapshots are deterministic: %s", p)
	}
}

type controlFixture struct {
	store *store.Store
	dir   *director.Director
	srv   *httptest.Server
}

func newControlFixture(t *testing.T) *controlFixture {
	t.Helper()
	f := &controlFixture{store: store.New()}
	f.dir = director.New(f.store, director.WithClock(director.NewManualClock()))
	f.srv = httptest.NewServer(control.NewHandler(control.Options{Firer: f.dir, Store: f.store}))
	t.Cleanup(func() {
		f.srv.Close()
		f.dir.Close()
	})
	return f
}

func TestSendEvent(t *testing.T) {
	f := newControlFixture(t)
	ctx := context.Background()

	msg, err := sendEvent(ctx, f.srv.URL, "operation_start", 0)
	require.NoError(t, err)
	assert.Equal(t, "neural", msg.State)
	assert.Equal(t, visual.StateNeural, f.store.Get())

	addr := f.srv.Listener.Addr().String()
	msg, err = sendEvent(ctx, addr, "operation_success", 0)
	require.NoError(t, err)
	assert.Equal(t, "success", msg.State)
	assert.True(t, msg.Transient)

	_, err = sendEvent(ctx, addr, "explode", 0)
	assert.ErrorIs(t, err, visual.ErrUnknownEvent)

	_, err = sendEvent(ctx, addr, "idle", 2)
	assert.Error(t, err)
}

func TestSendEventReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(control.NewHandler(control.Options{Store: store.New()}))
	defer srv.Close()

	_, err := sendEvent(context.Background(), srv.URL, "idle", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "no event sink")
}

func TestRunSendPrintsState(t *testing.T) {
	f := newControlFixture(t)
	sendAddr = f.srv.URL
	defer func() { sendAddr = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, runSend(cmd, []string{"hover_primary"}))
	assert.Contains(t, out.String(), "neural")
}

func TestRunExecMirrorsExitStatus(t *testing.T) {
	logger = zap.NewNop()
	f := newControlFixture(t)
	sendAddr = f.srv.URL
	defer func() { sendAddr = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runExec(cmd, []string{"sh", "-c", "exit 0"}))
	assert.Equal(t, visual.StateSuccess, f.store.Get())

	assert.Error(t, runExec(cmd, []string{"sh", "-c", "exit 3"}))
	assert.Equal(t, visual.StateError, f.store.Get())
}

func TestRunExecWithoutInstance(t *testing.T) {
	logger = zap.NewNop()
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()
	sendAddr = addr
	defer func() { sendAddr = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	assert.NoError(t, runExec(cmd, []string{"sh", "-c", "true"}))
}

func TestControlAddrPrecedence(t *testing.T) {
	defer func() { sendAddr, cfg = "", nil }()

	cfg = nil
	assert.Equal(t, defaultControlAddr, controlAddr())

	cfg = config.DefaultConfig()
	cfg.Control.Addr = "10.0.0.2:9000"
	assert.Equal(t, "10.0.0.2:9000", controlAddr())

	sendAddr = "localhost:1"
	assert.Equal(t, "localhost:1", controlAddr())
}

func TestNewAppDefaults(t *testing.T) {
	c := config.DefaultConfig()
	a, err := newApp(c, zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.cues)
	assert.Nil(t, a.fileMotion)
	require.NotNil(t, a.toggle)
	assert.False(t, a.motion.Reduced())

	opts := a.engineOptions()
	assert.True(t, opts.Detector.VisualEnabled)
	assert.Same(t, a.store, opts.Store)
	assert.Equal(t, 50*time.Millisecond, opts.SlowFrame)
	assert.NotNil(t, opts.NewAudio)
	assert.False(t, opts.AudioReactive)
}

func TestNewAppFollowsPreferenceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motion")
	require.NoError(t, os.WriteFile(path, []byte("reduce\n"), 0644))

	c := config.DefaultConfig()
	c.Motion.PreferenceFile = path
	a, err := newApp(c, zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.fileMotion)
	assert.Nil(t, a.toggle)
	assert.True(t, a.motion.Reduced())
}

func TestServeStopsWithContext(t *testing.T) {
	c := config.DefaultConfig()
	c.Control.Addr = "127.0.0.1:0"
	a, err := newApp(c, zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func stubPresenters(t *testing.T, windowErr error) (windowOpts *window.Options, termCalls *int) {
	t.Helper()
	prevWin, prevTerm := runWindowHost, runTermHost
	t.Cleanup(func() { runWindowHost, runTermHost = prevWin, prevTerm })

	windowOpts, termCalls = &window.Options{}, new(int)
	runWindowHost = func(_ context.Context, o window.Options) error {
		*windowOpts = o
		return windowErr
	}
	runTermHost = func(_ context.Context, o term.Options) error {
		*termCalls++
		assert.NotNil(t, o.Director)
		assert.NotNil(t, o.Logger)
		return nil
	}
	return windowOpts, termCalls
}

func newTestApp(t *testing.T, renderer string) *app {
	t.Helper()
	c := config.DefaultConfig()
	c.Visual.Renderer = renderer
	a, err := newApp(c, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestWindowFallsBackToTerminal(t *testing.T) {
	noGL := fmt.Errorf("%w: glfw init: no display", window.ErrUnavailable)
	opts, termCalls := stubPresenters(t, noGL)

	require.NoError(t, presentWindow(context.Background(), newTestApp(t, config.RendererAuto)))
	assert.Equal(t, 1, *termCalls)
	assert.False(t, opts.RequireShader)
	assert.False(t, opts.ForceFallback)
}

func TestWindowShaderRendererNeverFallsBack(t *testing.T) {
	noGL := fmt.Errorf("%w: glfw init: no display", window.ErrUnavailable)
	opts, termCalls := stubPresenters(t, noGL)

	err := presentWindow(context.Background(), newTestApp(t, config.RendererShader))
	assert.ErrorIs(t, err, window.ErrUnavailable)
	assert.Zero(t, *termCalls)
	assert.True(t, opts.RequireShader)
}

func TestWindowOtherErrorsAreReturned(t *testing.T) {
	boom := errors.New("swap failed")
	opts, termCalls := stubPresenters(t, boom)

	err := presentWindow(context.Background(), newTestApp(t, config.RendererFallback))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, *termCalls)
	assert.True(t, opts.ForceFallback)
}

func TestWindowSuccessSkipsTerminal(t *testing.T) {
	_, termCalls := stubPresenters(t, nil)
	require.NoError(t, presentWindow(context.Background(), newTestApp(t, config.RendererAuto)))
	assert.Zero(t, *termCalls)
}

func TestTermRejectsShaderRenderer(t *testing.T) {
	prevCfg, prevLog := cfg, logger
	t.Cleanup(func() { cfg, logger = prevCfg, prevLog })
	_, termCalls := stubPresenters(t, nil)

	cfg = config.DefaultConfig()
	cfg.Visual.Renderer = config.RendererShader
	logger = zap.NewNop()

	err := runTerm(termCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer shader")
	assert.Zero(t, *termCalls)
}
