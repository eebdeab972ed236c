package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the freshly loaded session whenever the session
// file changes, and with nil when it disappears or loses its token. It blocks
// until ctx is done.
func (s *Store) Watch(ctx context.Context, log *slog.Logger, onChange func(*Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: Save replaces the file by rename.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			log.Debug("session file event", "op", event.Op.String())

			sess, err := s.Load()
			switch {
			case errors.Is(err, ErrNoSession):
				onChange(nil)
			case err != nil:
				log.Warn("failed to reload session", "error", err)
			default:
				onChange(sess)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("fsnotify error", "error", err)
		}
	}
}
