// Package watcher provides hot-reload of an index's config.yaml, so
// operational tunables like full_scan_threshold can change without a
// process restart. It never touches the inverted index itself.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ologbonowiwi/sparsedex/internal/config"
)

// defaultDebounce coalesces the burst of fsnotify events a single
// editor save often produces (write-then-rename, or multiple WRITEs).
const defaultDebounce = 200 * time.Millisecond

// ConfigWatcher watches one index directory's config.yaml and invokes
// onChange with the newly parsed config whenever it changes on disk.
type ConfigWatcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	onChange func(config.Config)
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped chan struct{}
}

// New starts watching indexDir's config.yaml. onChange is invoked from
// an internal goroutine after each debounced write; a parse failure is
// logged and otherwise ignored, leaving the previously loaded config
// in effect.
func New(indexDir string, onChange func(config.Config), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(indexDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &ConfigWatcher{
		fsw:      fsw,
		dir:      indexDir,
		onChange: onChange,
		logger:   logger,
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *ConfigWatcher) run() {
	configPath := config.Path(w.dir)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", slog.Any("error", err))
		case <-w.stopped:
			return
		}
	}
}

func (w *ConfigWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(defaultDebounce, w.reload)
}

func (w *ConfigWatcher) reload() {
	cfg, existed, err := config.Load(w.dir)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", slog.Any("error", err))
		return
	}
	if !existed {
		return
	}
	w.onChange(cfg)
}

// Close stops the watcher.
func (w *ConfigWatcher) Close() error {
	close(w.stopped)
	return w.fsw.Close()
}
