package params

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	goutils "go.viam.com/utils"

	"go.viam.com/holo/logging"
)

// settleTime is how long a parameter file must go without events before it is reapplied. Editors
// and tweak tools often write a file in several steps.
const settleTime = 50 * time.Millisecond

// ApplyFile reads a JSON5 object of name to value from path and applies it to r. Comments and
// trailing commas are allowed since the file is usually edited by hand.
func ApplyFile(path string, r *Registry) error {
	//nolint:gosec
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var values map[string]interface{}
	if err := json5.Unmarshal(buf, &values); err != nil {
		return errors.Wrapf(err, "cannot parse parameter file %q", path)
	}
	return r.Apply(values)
}

// Watcher applies a parameter file to a registry whenever the file changes.
type Watcher struct {
	path     string
	registry *Registry
	logger   logging.Logger
	watcher  *fsnotify.Watcher
	debounce func(f func())

	mu     sync.Mutex
	closed bool

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewWatcher applies path once if it exists and then watches it. The containing directory is
// watched rather than the file so that editors that replace the file on save are picked up.
func NewWatcher(ctx context.Context, path string, registry *Registry, logger logging.Logger) (*Watcher, error) {
	path = filepath.Clean(path)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		goutils.UncheckedError(fsw.Close())
		return nil, err
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     path,
		registry: registry,
		logger:   logger,
		watcher:  fsw,
		debounce: debounce.New(settleTime),
		cancel:   cancel,
	}
	if _, err := os.Stat(path); err == nil {
		w.apply()
	}
	w.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		w.run(cancelCtx)
	}, w.activeBackgroundWorkers.Done)
	return w, nil
}

func (w *Watcher) apply() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := ApplyFile(w.path, w.registry); err != nil {
		w.logger.Warnw("error applying parameter file", "path", w.path, "error", err)
		return
	}
	w.logger.Debugw("applied parameter file", "path", w.path)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.debounce(w.apply)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("parameter file watcher error", "error", err)
		}
	}
}

// Close stops watching. A pending debounced apply is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
	err := w.watcher.Close()
	w.activeBackgroundWorkers.Wait()
	return err
}
