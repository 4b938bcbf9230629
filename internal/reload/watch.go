package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch triggers l whenever the database file is created, including being
// renamed into place. The parent directory is watched so that atomic
// replace-by-rename deployments are seen. In-place writes are ignored: the
// file is incomplete while they happen and the interval reload picks up the
// result. Watch returns once the watcher is set up; events are handled until
// ctx is done.
func Watch(ctx context.Context, l *Loop) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	target := filepath.Clean(l.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Create) {
					slog.Debug("database file changed", "path", event.Name, "op", event.Op.String())
					l.Trigger()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("file watcher error", "path", target, "error", err)
			}
		}
	}()

	return nil
}
