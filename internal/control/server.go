// Package control is the HTTP surface for driving and observing the
// visual state from other processes.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brain/internal/store"
	"brain/internal/visual"
)

const (
	writeWait    = 5 * time.Second
	maxEventBody = 4 << 10
)

// Firer applies an event. director.Director satisfies it.
type Firer interface {
	Fire(e visual.Event, intensity float64) visual.State
}

type Options struct {
	Firer    Firer
	Store    store.Handle
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server implements the control endpoints.
type Server struct {
	firer    Firer
	store    store.Handle
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	Event     string  `json:"event"`
	Intensity float64 `json:"intensity,omitempty"`
}

// StateMessage describes one visual state, for GET /state and the feed.
type StateMessage struct {
	Type      string `json:"type,omitempty"`
	State     string `json:"state"`
	Label     string `json:"label"`
	Transient bool   `json:"transient"`
}

func newStateMessage(s visual.State) StateMessage {
	return StateMessage{
		State:     s.String(),
		Label:     visual.ConfigFor(s).Label,
		Transient: s.Transient(),
	}
}

// NewHandler creates the HTTP handler for the control surface.
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		// the absent store: reads organic, ignores writes
		opts.Store = (*store.Store)(nil)
	}
	s := &Server{
		firer: opts.Firer,
		store: opts.Store,
		log:   opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.health)
	r.Get("/state", s.state)
	r.Post("/events", s.events)
	r.Get("/ws", s.stream)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateMessage(s.store.Get()))
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if s.firer == nil {
		writeError(w, http.StatusServiceUnavailable, "no event sink")
		return
	}
	var req EventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := visual.ParseEvent(req.Event)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Intensity < 0 || req.Intensity > 1 {
		writeError(w, http.StatusBadRequest, "intensity must be within [0,1]")
		return
	}
	next := s.firer.Fire(e, req.Intensity)
	s.log.Debug("event applied", zap.String("event", string(e)), zap.Stringer("state", next))
	writeJSON(w, http.StatusAccepted, newStateMessage(next))
}

// stream sends the current state on connect and every change after it.
// Only the latest pending state is kept for a slow reader.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan visual.State, 1)
	unsub := s.store.Subscribe(func(st visual.State) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsub()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(st visual.State) error {
		msg := newStateMessage(st)
		msg.Type = "state"
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}
	if err := send(s.store.Get()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case st := <-updates:
			if err := send(st); err != nil {
				s.log.Debug("state feed closed", zap.Error(err))
				return
			}
		}
	}
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("control surface listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
