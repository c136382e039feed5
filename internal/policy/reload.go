package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Reloadable is anything that can re-read its configuration.
type Reloadable interface {
	Reload() error
}

// Reloader watches config files and calls Reload after writes settle.
type Reloader struct {
	watcher  *fsnotify.Watcher
	target   Reloadable
	logger   *zap.Logger
	files    map[string]bool
	debounce time.Duration

	mu       sync.Mutex
	onReload func(error)
}

// NewReloader watches the directories holding paths, so editors that
// replace the file on save are still seen. Empty or missing paths are skipped.
func NewReloader(target Reloadable, logger *zap.Logger, paths ...string) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		dirs[dir] = true
	}

	return &Reloader{
		watcher:  watcher,
		target:   target,
		logger:   logger,
		files:    files,
		debounce: DefaultDebounce,
	}, nil
}

// Watching reports whether any file is being watched.
func (r *Reloader) Watching() bool {
	return len(r.files) > 0
}

// SetDebounce overrides the quiet period. Call before Run.
func (r *Reloader) SetDebounce(d time.Duration) {
	r.debounce = d
}

// OnReload registers a callback invoked after every reload attempt.
func (r *Reloader) OnReload(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = fn
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !r.files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(r.debounce, r.reload)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) reload() {
	err := r.target.Reload()
	if err != nil {
		r.logger.Error("hot-reload failed, keeping previous config", zap.Error(err))
	} else {
		r.logger.Info("hot-reload: config reloaded")
	}
	r.mu.Lock()
	fn := r.onReload
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
