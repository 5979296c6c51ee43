// Package watch re-runs index synchronisation when project files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a project tree and calls sync once changes settle.
type Watcher struct {
	Root string
	// SkipDir excludes a directory and its subtree from watching.
	SkipDir func(path string) bool
	// Match selects the slash-separated relative paths whose changes count.
	Match    func(relPath string) bool
	Debounce time.Duration
	Logger   *zap.Logger
}

func (w *Watcher) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// Run blocks until ctx is done, calling sync after every burst of relevant
// events. A sync error is logged and watching continues, except for
// context errors which end Run.
func (w *Watcher) Run(ctx context.Context, sync func(context.Context) error) error {
	logger := w.logger()
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := w.addRecursive(fw, w.Root); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fw, event) {
				continue
			}
			logger.Debug("change", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			if err := sync(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("sync failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if w.skip(event.Name) {
				return false
			}
			_ = w.addRecursive(fw, event.Name)
			return true
		}
	}
	rel, err := filepath.Rel(w.Root, event.Name)
	if err != nil {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A removed directory has no extension; let the sync sort it out.
		if filepath.Ext(rel) == "" {
			return true
		}
	}
	return w.Match == nil || w.Match(filepath.ToSlash(rel))
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && w.skip(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger().Debug("watch add failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) skip(path string) bool {
	return w.SkipDir != nil && w.SkipDir(path)
}
