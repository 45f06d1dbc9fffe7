// Package watch re-runs generation when the reference source changes. It
// wraps fsnotify with recursive directory watching, glob excludes and a
// debounce that batches a burst of saves into one rebuild.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"computegen/internal/errors"
	"computegen/internal/logger"
)

// DefaultDebounce applies when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

type Config struct {
	// Root is the source tree to watch recursively.
	Root string
	// Excludes are globs matched against "/"-prefixed paths relative to Root,
	// the same form the extractor uses.
	Excludes []string
	Debounce time.Duration
}

// RebuildFunc receives the sorted set of paths that changed since the last call.
type RebuildFunc func(ctx context.Context, changed []string)

// Watcher monitors a source tree. Watches are in place once New returns.
type Watcher struct {
	config   Config
	fs       *fsnotify.Watcher
	excludes []glob.Glob
	log      *zap.SugaredLogger
}

func New(config Config) (*Watcher, error) {
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, errors.Configurationf("watch root %s does not exist", config.Root)
	}
	if !info.IsDir() {
		return nil, errors.Configurationf("watch root %s is not a directory", config.Root)
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	excludes, err := compileExcludes(config.Excludes)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	w := &Watcher{
		config:   config,
		fs:       fsw,
		excludes: excludes,
		log:      logger.Named("watch"),
	}
	if err := w.addDirectoryRecursive(config.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	excludes := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "invalid exclude glob %q", pattern), errors.ErrConfiguration)
		}
		excludes = append(excludes, g)
	}
	return excludes, nil
}

func (w *Watcher) addDirectoryRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // vanished while walking
		}
		if !d.IsDir() {
			return nil
		}
		if w.isExcluded(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		return nil
	})
}

func (w *Watcher) isExcluded(path string) bool {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = "/" + filepath.ToSlash(rel)
	for _, g := range w.excludes {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// relevant decides whether event can change the extracted model. New
// directories are watched on the spot.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || w.isExcluded(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectoryRecursive(event.Name); err != nil {
				w.log.Warnw("cannot watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	ext := filepath.Ext(event.Name)
	if strings.EqualFold(ext, ".cs") {
		return true
	}
	// a removed or renamed directory can take source files with it
	return ext == "" && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}

// Run calls rebuild after every quiet period that follows relevant changes,
// until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	var fire <-chan time.Time
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debugw("source changed", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			timer.Reset(w.config.Debounce)
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watcher error", "error", err)
		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			clear(pending)
			rebuild(ctx, changed)
		}
	}
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
