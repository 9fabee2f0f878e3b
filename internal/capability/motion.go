package capability

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// MotionPreference is the live reduced-motion signal. Subscribers are called
// with the new value whenever it flips.
type MotionPreference interface {
	Reduced() bool
	Subscribe(func(reduced bool)) (unsubscribe func())
}

// motionHub stores the value and fans out flips.
type motionHub struct {
	mu       sync.Mutex
	reduced  bool
	handlers map[int]func(bool)
	nextID   int
}

func (h *motionHub) Reduced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reduced
}

func (h *motionHub) Subscribe(fn func(bool)) func() {
	h.mu.Lock()
	if h.handlers == nil {
		h.handlers = make(map[int]func(bool))
	}
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}
}

func (h *motionHub) set(v bool) {
	h.mu.Lock()
	if h.reduced == v {
		h.mu.Unlock()
		return
	}
	h.reduced = v
	fns := make([]func(bool), 0, len(h.handlers))
	for _, fn := range h.handlers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// MotionSwitch is a preference flipped in process (config value, key toggle).
type MotionSwitch struct {
	motionHub
}

func NewMotionSwitch(reduced bool) *MotionSwitch {
	s := &MotionSwitch{}
	s.reduced = reduced
	return s
}

func (s *MotionSwitch) Set(reduced bool) { s.set(reduced) }

func (s *MotionSwitch) Toggle() { s.set(!s.Reduced()) }

// FileMotion follows a preference file, the desktop analogue of the
// prefers-reduced-motion media query. The file holds "reduce" or
// "no-preference"; a missing file means the fallback value.
type FileMotion struct {
	motionHub
	path     string
	fallback bool
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewFileMotion(path string, fallback bool, log *zap.Logger) (*FileMotion, error) {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("motion watcher: %w", err)
	}
	// Watch the directory: editors replace files rather than writing in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	fm := &FileMotion{
		path:     filepath.Clean(path),
		fallback: fallback,
		log:      log,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	fm.reduced = fm.read()
	return fm, nil
}

// Start runs the watch loop until ctx is done or Close is called.
func (fm *FileMotion) Start(ctx context.Context) {
	go fm.run(ctx)
}

func (fm *FileMotion) run(ctx context.Context) {
	defer close(fm.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-fm.stopCh:
			return
		case ev, ok := <-fm.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fm.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			v := fm.read()
			fm.log.Debug("motion preference changed", zap.Bool("reduced", v))
			fm.set(v)
		case err, ok := <-fm.watcher.Errors:
			if !ok {
				return
			}
			fm.log.Warn("motion watcher error", zap.Error(err))
		}
	}
}

func (fm *FileMotion) read() bool {
	b, err := os.ReadFile(fm.path)
	if err != nil {
		return fm.fallback
	}
	switch string(bytes.ToLower(bytes.TrimSpace(b))) {
	case "reduce", "reduced", "true", "1":
		return true
	case "no-preference", "false", "0":
		return false
	}
	return fm.fallback
}

// Close stops the watch loop and waits for it when it was started.
func (fm *FileMotion) Close() error {
	var err error
	fm.stopOnce.Do(func() {
		close(fm.stopCh)
		err = fm.watcher.Close()
	})
	return err
}

// Wait blocks until a started watch loop has exited.
func (fm *FileMotion) Wait() {
	<-fm.doneCh
}
