package attachments

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after an attachment appears or disappears on disk.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, name string)

// Watch starts an fsnotify watcher on an FS provider's directory and reports
// attachment changes until ctx is cancelled. Temp and hidden files are ignored,
// so an atomic Put surfaces as a single "created" (or "updated") event.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("attachments watcher: started", slog.String("root", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("attachments watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
					continue
				}
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name only; the new name arrives as Create.
				kind = "deleted"
			default:
				continue
			}

			logger.Debug("attachments watcher: event", slog.String("name", name), slog.String("op", kind))
			if cb != nil {
				cb(kind, name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("attachments watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
