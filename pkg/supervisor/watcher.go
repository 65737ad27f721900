package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce applies when Directory.Watch is given no interval.
const defaultDebounce = 100 * time.Millisecond

var errWatcherRunning = errors.New("watcher already running")

// fileWatcher calls onChange once a single file has stopped changing for the
// debounce interval. It watches the parent directory so that editors and
// config management tools replacing the file by rename are noticed.
type fileWatcher struct {
	path     string
	notify   *fsnotify.Watcher
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}
}

func newFileWatcher(path string, interval time.Duration, logger *slog.Logger, onChange func()) (*fileWatcher, error) {
	if interval <= 0 {
		interval = defaultDebounce
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &fileWatcher{
		path:     filepath.Clean(path),
		notify:   notify,
		debounce: newDebouncer(interval, onChange),
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// run blocks until ctx is cancelled or close is called.
func (w *fileWatcher) run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.done)
	defer w.release()

	if err := w.notify.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching directory file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil

		case ev, ok := <-w.notify.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			if filepath.Clean(ev.Name) != w.path || ev.Has(fsnotify.Chmod) {
				continue
			}
			w.logger.Debug("directory file changed", "op", ev.Op.String())
			w.debounce.kick()

		case err, ok := <-w.notify.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			w.logger.Error("directory watch error", "error", err)
		}
	}
}

// close stops run and waits for it to return. It may be called more than
// once, and whether or not run was ever started.
func (w *fileWatcher) close() {
	w.stopped.Do(func() { close(w.stop) })

	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		<-w.done
		return
	}
	w.release()
}

func (w *fileWatcher) release() {
	w.debounce.cancel()
	_ = w.notify.Close()
}

// debouncer runs fn once no kick has arrived for interval.
type debouncer struct {
	interval time.Duration
	fn       func()

	mu       sync.Mutex
	timer    *time.Timer
	canceled bool
}

func newDebouncer(interval time.Duration, fn func()) *debouncer {
	return &debouncer{interval: interval, fn: fn}
}

func (d *debouncer) kick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.canceled {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
		return
	}
	d.timer.Reset(d.interval)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	canceled := d.canceled
	d.mu.Unlock()

	if !canceled {
		d.fn()
	}
}

// cancel drops any pending run. Later kicks are ignored.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.canceled = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
