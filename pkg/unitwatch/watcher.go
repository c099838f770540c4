package unitwatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/registry"
	"github.com/craft-tools/mcman-go/pkg/units"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

const stopGracePeriod = time.Second

// Watcher picks up unit definition files dropped into the unit
// directories while the daemon runs and registers them. Removal of a
// file is logged only; units are never removed at runtime.
type Watcher struct {
	directories []string
	registry    *registry.Registry
	logger      logging.Logger

	watcher *fsnotify.Watcher
	sctx    *stopper.Context
}

// NewWatcher creates a watcher over the given unit directories
func NewWatcher(directories []string, reg *registry.Registry, logger logging.Logger) *Watcher {
	return &Watcher{
		directories: directories,
		registry:    reg,
		logger:      logger,
	}
}

// Start begins watching. With no directories configured it is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.directories) == 0 {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewIOError("failed to create unit watcher", err)
	}
	for _, directory := range w.directories {
		if err := fsWatcher.Add(directory); err != nil {
			_ = fsWatcher.Close()
			return errors.NewIOError("failed to watch unit directory", err).WithContext("directory", directory)
		}
	}
	w.watcher = fsWatcher

	w.sctx = stopper.WithContext(ctx)
	w.sctx.Defer(func() {
		_ = fsWatcher.Close()
	})
	w.sctx.Go(w.watchLoop)

	w.logger.Infof("Unit watcher started, directories: %v", w.directories)
	return nil
}

// Stop terminates the watcher and waits for its goroutine
func (w *Watcher) Stop() error {
	if w.sctx == nil {
		return nil
	}
	w.sctx.Stop(stopGracePeriod)
	return w.sctx.Wait()
}

func (w *Watcher) watchLoop(sctx *stopper.Context) error {
	for {
		select {
		case <-sctx.Stopping():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("Unit watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !units.IsUnitFileName(filepath.Base(event.Name)) {
		return
	}

	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.logger.Infof("Unit file removed, runtime unit removal is not supported, file: %s", event.Name)
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	unit, err := units.LoadUnitFile(event.Name)
	if err != nil {
		w.logger.Warnf("Ignoring invalid unit file, file: %s, error: %v", event.Name, err)
		return
	}

	if err := w.registry.Add(unit); err != nil {
		if errors.IsConflictError(err) {
			w.logger.Debugf("Unit already registered, unit: %s, file: %s", unit.ID(), event.Name)
		} else {
			w.logger.Warnf("Failed to register unit, unit: %s, error: %v", unit.ID(), err)
		}
		return
	}
	w.logger.Infof("Added unit from watched directory, unit: %s, file: %s", unit.ID(), event.Name)
}
