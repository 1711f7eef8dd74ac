// Package configwatch reloads the chronote configuration file when it changes.
package configwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/chronote/pkg/config"
)

// DefaultDelay is the quiet period before a change is applied. Editors tend to
// write a file in several steps.
const DefaultDelay = 50 * time.Millisecond

// ApplyFunc receives every successfully parsed configuration.
type ApplyFunc func(config.File) error

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(w *Worker) {
		w.delay = d
	}
}

// WithPattern sets the doublestar pattern, relative to the config file's
// directory, of the names that trigger a reload. It defaults to the config
// file's own name.
func WithPattern(pattern string) Option {
	return func(w *Worker) {
		w.pattern = pattern
	}
}

// WithErrorHandler is called when a changed file fails to load or apply.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Worker) {
		w.onError = fn
	}
}

// Worker watches the directory holding a config file and calls apply with the
// reloaded file. The directory is watched instead of the file so that atomic
// renames are seen.
type Worker struct {
	*worker.BaseWorker
	path    string
	dir     string
	pattern string
	apply   ApplyFunc
	delay   time.Duration
	logger  *slog.Logger
	onError func(error)

	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

// New creates a watcher for the config file at path.
func New(path string, apply ApplyFunc, opts ...Option) *Worker {
	w := &Worker{
		BaseWorker: worker.NewBaseWorker("config-watcher"),
		path:       path,
		dir:        filepath.Dir(path),
		pattern:    filepath.Base(path),
		apply:      apply,
		delay:      DefaultDelay,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Changes made after Start returns are seen.
func (w *Worker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("config watcher already started (status: %s)", status)
	}
	if !doublestar.ValidatePattern(w.pattern) {
		return fmt.Errorf("invalid watch pattern %q", w.pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.delay)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

// Stop ends the watch and waits for a reload in progress.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *Worker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"path":              w.path,
		}
	})
}

func (w *Worker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("config watcher panic: %v", recovered)
			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("config watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("config watcher panic", "error", err)
			}
		}
	}()
	defer w.watcher.Close()

	err = w.loop(ctx)
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if w.matches(event) {
				w.logger.Debug("config change detected", "name", event.Name, "op", event.Op.String())
				w.debouncer.trigger(w.reload)
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", wErr)
			w.report(wErr)
		}
	}
}

// matches reports whether event may have changed the watched file's content.
func (w *Worker) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *Worker) reload() {
	f, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped", "path", w.path, "error", err)
		w.report(err)
		return
	}
	if err := w.apply(f); err != nil {
		w.logger.Warn("config apply failed", "path", w.path, "error", err)
		w.report(err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "store", string(f.Store))
}

func (w *Worker) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
