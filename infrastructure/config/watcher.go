package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 250 * time.Millisecond

// Watcher reloads the configuration when its files change and hands the new
// value to the registered callbacks. An invalid file is logged and the
// previous configuration stays in effect.
type Watcher struct {
	loader  *Loader
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewWatcher starts watching the directory holding the loader's file.
// Watching the directory rather than the file survives editors that replace
// the file on save.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(loader.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		loader:  loader,
		logger:  logger,
		watcher: fsw,
		current: initial,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()

	logger.Info("Configuration hot reloading enabled", zap.String("dir", dir))
	return w, nil
}

// OnChange registers a callback run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.done
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == filepath.Clean(w.loader.Path()) {
		return true
	}
	return name == filepath.Clean(w.loader.OverlayPath(w.Current().Environment))
}

// Reload loads the configuration again and notifies the callbacks.
func (w *Watcher) Reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Ignoring invalid configuration", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	w.logger.Info("Configuration reloaded",
		zap.Strings("sources", cfg.LoadedFrom),
		zap.Int("callbacks", len(callbacks)),
	)
}
