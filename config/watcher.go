package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"

	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/utils"
)

// Watcher re-reads a config file whenever it is written or replaced.
type Watcher struct {
	fsw     *fsnotify.Watcher
	workers utils.StoppableWorkers
}

// NewWatcher calls onChange with every valid new version of the file at `path`. Invalid versions
// are logged and skipped.
func NewWatcher(path string, logger logging.Logger, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	// editors often replace the file, so watch the directory
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return nil, multierr.Combine(err, fsw.Close())
	}

	w := &Watcher{fsw: fsw}
	w.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				cfg, err := Read(path)
				if err != nil {
					logger.Warnw("ignoring invalid config change", "path", path, "error", err)
					continue
				}
				logger.Infow("config file changed", "path", path)
				onChange(cfg)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "path", path, "error", err)
			}
		}
	})
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.fsw.Close()
}
