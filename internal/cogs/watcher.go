package cogs

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the delay before acting on cog file changes; editors
// often write a file in several steps.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads cogs in a Registry when their source files change.
type Watcher struct {
	registry *Registry
	ws       *Workspace
	fsw      *fsnotify.Watcher
	debounce time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// debounce state
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]bool
}

// NewWatcher creates a cogs directory watcher.
func NewWatcher(ws *Workspace, registry *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		registry: registry,
		ws:       ws,
		fsw:      fsw,
		debounce: watchDebounce,
		pending:  make(map[string]bool),
	}, nil
}

// Start begins watching the cogs directory.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.ws.Ensure(); err != nil {
		return err
	}
	if err := w.fsw.Add(w.ws.Dir()); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)

	slog.Info("cogs watcher started", "dir", w.ws.Dir())
	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("cogs watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, Ext) {
		return
	}
	name := strings.TrimSuffix(base, Ext)
	if ValidateName(name) != nil {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}
	w.schedule(name)
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	names := make([]string, 0, len(w.pending))
	for name := range w.pending {
		names = append(names, name)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, name := range names {
		w.apply(name)
	}
}

// apply brings the registry in line with the file on disk: load new cogs,
// reload changed ones, unload deleted ones. Errors are already logged by
// the registry.
func (w *Watcher) apply(name string) {
	exists := w.ws.Exists(name)
	loaded := w.registry.IsLoaded(name)

	switch {
	case exists && loaded:
		w.registry.Reload(name)
	case exists:
		w.registry.Load(name)
	case loaded:
		w.registry.Unload(name)
	}
}
