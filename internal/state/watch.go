package state

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch marks the semantic index stale whenever the state file changes on
// disk, which keeps hand edits visible to semantic retrieval without
// polling. Correctness never depends on it: every read already goes back
// to the file under the lock.
//
// The watcher runs until ctx is canceled. It watches the parent directory
// rather than the file itself, so rename-based saves (editors, the
// store's own temp-and-rename writes) do not silently drop the watch.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating state watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watching state directory: %w", err)
	}

	go func() {
		defer w.Close()
		base := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					s.markIndexStale()
					s.logger.Debug("state file changed on disk", "op", event.Op.String())
				}

			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("state watcher error", "error", werr)
			}
		}
	}()
	return nil
}
