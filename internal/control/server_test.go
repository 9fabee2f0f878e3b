package control

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain/internal/director"
	"brain/internal/store"
	"brain/internal/visual"
)

type fixture struct {
	store *store.Store
	dir   *director.Director
	clock *director.ManualClock
	h     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	clock := director.NewManualClock()
	dir := director.New(st, director.WithClock(clock))
	t.Cleanup(dir.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "brain_test_total", Help: "test"}))
	return &fixture{
		store: st,
		dir:   dir,
		clock: clock,
		h:     NewHandler(Options{Firer: dir, Store: st, Gatherer: reg}),
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) StateMessage {
	t.Helper()
	var msg StateMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	return msg
}

func TestGetState(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StateMessage{State: "organic", Label: "Organic"}, decodeState(t, rr))

	f.store.SetError()
	msg := decodeState(t, f.do(http.MethodGet, "/state", ""))
	assert.Equal(t, "error", msg.State)
	assert.True(t, msg.Transient)
}

func TestPostEvents(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/events", `{"event":"operation_start"}`)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "neural", decodeState(t, rr).State)
	assert.Equal(t, visual.StateNeural, f.store.Get())

	rr = f.do(http.MethodPost, "/events", `{"event":"operation_success"}`)
	assert.Equal(t, "success", decodeState(t, rr).State)

	f.clock.Advance(visual.SuccessDwell)
	assert.Equal(t, visual.StateOrganic, f.store.Get())
}

func TestPostEventsRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]string{
		"unknown event":  `{"event":"dance"}`,
		"malformed":      `{"event":`,
		"unknown field":  `{"event":"idle","colour":"red"}`,
		"intensity high": `{"event":"idle","intensity":1.5}`,
	} {
		rr := f.do(http.MethodPost, "/events", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
	assert.Equal(t, visual.StateOrganic, f.store.Get())

	rr := f.do(http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPostEventsWithoutFirer(t *testing.T) {
	h := NewHandler(Options{Store: store.New()})
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"event":"idle"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "brain_test_total")
}

func TestStateFeed(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	read := func() StateMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg StateMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, "state", first.Type)
	assert.Equal(t, "organic", first.State)

	post, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(`{"event":"hover_secondary"}`))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, post.Body)
	post.Body.Close()
	assert.Equal(t, http.StatusAccepted, post.StatusCode)

	assert.Equal(t, "quantum", read().State)

	f.dir.Fire(visual.EventOperationError, 0)
	msg := read()
	assert.Equal(t, "error", msg.State)
	assert.True(t, msg.Transient)
}
