// Package watch re-converts notes when they change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/storage"
)

// DefaultDebounce is how long a note must stay quiet before it is converted.
const DefaultDebounce = 300 * time.Millisecond

// Converter converts one vault note.
type Converter interface {
	Convert(ctx context.Context, path string) (*models.Run, error)
}

// Checksums reports the source checksum of a note's last good conversion.
type Checksums interface {
	LastChecksum(path string) (string, error)
}

// EventCallback is called after a watcher-driven action.
// kind is one of "converted", "deleted".
type EventCallback func(kind string, path string)

// Watcher converts changed notes and removes exports of deleted ones.
type Watcher struct {
	store    storage.Provider
	conv     Converter
	export   storage.Provider
	skip     []string
	debounce time.Duration
	logger   *slog.Logger
	cb       EventCallback
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExport deletes <basename>.md from export when a note disappears.
func WithExport(export storage.Provider) Option {
	return func(w *Watcher) { w.export = export }
}

// WithSkip ignores the given vault-relative directories.
func WithSkip(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			d = strings.Trim(filepath.ToSlash(d), "/")
			if d != "" && d != "." {
				w.skip = append(w.skip, d)
			}
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithCallback registers cb for every conversion or deletion.
func WithCallback(cb EventCallback) Option {
	return func(w *Watcher) { w.cb = cb }
}

// New creates a Watcher over the vault in store.
func New(store storage.Provider, conv Converter, opts ...Option) *Watcher {
	w := &Watcher{
		store:    store,
		conv:     conv,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches the vault until ctx is cancelled.
//
// New directories created at runtime are added to the watch list.
// A note that is busy-rejected stays pending and is retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := w.addDirs(fw, root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			if w.flush(ctx, pending) {
				timer.Reset(w.debounce)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if w.skipped(ev.Name) {
						continue
					}
					if addErr := w.addDirs(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					w.scanDir(ev.Name, schedule)
					continue
				}
			}

			rel, ok := w.note(ev.Name)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new one arrives as Create.
				delete(pending, rel)
				w.removeExport(rel)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush converts every pending note and reports whether any must be retried.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	retry := false
	for _, p := range paths {
		run, err := w.conv.Convert(ctx, p)
		switch {
		case errors.Is(err, apperr.ErrBusy):
			retry = true
			continue
		case err != nil:
			w.logger.Warn("watcher: convert failed", slog.String("path", p), slog.String("error", err.Error()))
		default:
			w.logger.Debug("watcher: converted", slog.String("path", p), slog.String("status", string(run.Status)))
			if w.cb != nil {
				w.cb("converted", p)
			}
		}
		delete(pending, p)
	}
	return retry
}

func (w *Watcher) removeExport(rel string) {
	if w.export == nil {
		return
	}
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel)) + ".md"
	if err := w.export.Delete(name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("watcher: delete export failed", slog.String("path", name), slog.String("error", err.Error()))
		}
		return
	}
	w.logger.Debug("watcher: export deleted", slog.String("path", name))
	if w.cb != nil {
		w.cb("deleted", rel)
	}
}

// note maps an absolute event path to a vault-relative markdown path.
func (w *Watcher) note(abs string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(abs), ".md") || w.skipped(abs) {
		return "", false
	}
	rel, err := filepath.Rel(w.store.Root(), abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return rel, true
}

func (w *Watcher) skipped(abs string) bool {
	rel, err := filepath.Rel(w.store.Root(), abs)
	if err != nil {
		return true
	}
	return w.skippedRel(filepath.ToSlash(rel))
}

// scanDir schedules the notes already present in a newly created directory.
func (w *Watcher) scanDir(dir string, schedule func(string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.note(p); ok {
			schedule(rel)
		}
		return nil
	})
}

// addDirs adds root and its visible subdirectories to the watcher.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.skipped(p)) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
