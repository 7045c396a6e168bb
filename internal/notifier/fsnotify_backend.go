package notifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyBackend watches trees with fsnotify. fsnotify is not recursive, so
// every directory under the root gets its own watch and directories created
// later are added as they appear.
type FSNotifyBackend struct{}

func NewFSNotifyBackend() *FSNotifyBackend {
	return &FSNotifyBackend{}
}

func (b *FSNotifyBackend) Subscribe(ctx context.Context, root string, h Handler) error {
	if err := checkRoot(root); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify new watcher: %w", err)
	}

	if err := addTree(watcher, root); err != nil {
		watcher.Close()
		return err
	}
	slog.Debug("fsnotify watch", "root", root)

	go func() {
		defer func() {
			watcher.Close()
			slog.Debug("fsnotify watch stop", "root", root)
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				n, ok := fsnotifyNotification(event)
				if !ok {
					continue
				}
				if n.Kind == Created && n.IsDir {
					if err := addTree(watcher, n.Path); err != nil {
						slog.Warn("fsnotify add watch", "path", n.Path, "error", err)
					}
				}
				h(n)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("fsnotify error", "root", root, "error", err)
			}
		}
	}()

	return nil
}

func fsnotifyNotification(event fsnotify.Event) (Notification, bool) {
	var kind Kind
	switch {
	case event.Has(fsnotify.Write):
		kind = Modified
	case event.Has(fsnotify.Create):
		kind = Created
	case event.Has(fsnotify.Remove):
		kind = Deleted
	case event.Has(fsnotify.Rename):
		kind = Moved
	default:
		// chmod only
		return Notification{}, false
	}
	return Notification{Path: event.Name, Kind: kind, IsDir: isDir(event.Name)}, true
}

func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// directory vanished while walking
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("walk dir: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("fsnotify add watch: %w", err)
		}
		return nil
	})
}
