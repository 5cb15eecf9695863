package watch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/hexokit/internal/apperr"
)

// Sync converts every note whose content changed since its last good
// conversion. It returns the number of notes converted.
func (w *Watcher) Sync(ctx context.Context, history Checksums) (int, error) {
	metas, err := w.store.List("")
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if w.skippedRel(m.Path) {
			continue
		}
		last, err := history.LastChecksum(m.Path)
		if err != nil {
			return n, err
		}
		if last == m.Checksum {
			continue
		}
		run, err := w.conv.Convert(ctx, m.Path)
		if errors.Is(err, apperr.ErrBusy) {
			return n, err
		}
		if err != nil {
			w.logger.Warn("sync: convert failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		n++
		w.logger.Debug("sync: converted", slog.String("path", m.Path), slog.String("status", string(run.Status)))
		if w.cb != nil {
			w.cb("converted", m.Path)
		}
	}
	return n, nil
}

func (w *Watcher) skippedRel(rel string) bool {
	for _, d := range w.skip {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
