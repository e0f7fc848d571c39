package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before reloading
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a catalog whenever its template pack changes on disk
type Watcher struct {
	catalog  *Catalog
	path     string
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)
}

// NewWatcher creates a watcher for the template pack at path
func NewWatcher(c *Catalog, path string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		catalog:  c,
		path:     path,
		debounce: DefaultDebounce,
		logger:   logger.Named("catalog"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// OnReload registers a callback invoked after every reload attempt
func (w *Watcher) OnReload(fn func(error)) *Watcher {
	w.onReload = fn
	return w
}

func (w *Watcher) reload() {
	err := w.catalog.LoadFile(w.path)
	if err != nil {
		// the previous contents stay in place
		w.logger.Warn("template pack reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.logger.Info("template pack reloaded", zap.String("path", w.path), zap.Int("templates", w.catalog.Len()))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

// Watch blocks until ctx is cancelled, reloading the catalog on changes.
// The containing directory is watched so editors that replace the file
// are still picked up.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}

	w.logger.Info("watching template pack", zap.String("path", w.path))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
