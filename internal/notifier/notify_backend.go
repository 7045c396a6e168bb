package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rjeczalik/notify"
)

// notify drops events when the receiver is not ready, so the channel is buffered.
const notifyBufferSize = 256

// NotifyBackend watches trees with rjeczalik/notify, which handles recursion
// natively through the "dir/..." path form.
type NotifyBackend struct{}

func NewNotifyBackend() *NotifyBackend {
	return &NotifyBackend{}
}

func (b *NotifyBackend) Subscribe(ctx context.Context, root string, h Handler) error {
	if err := checkRoot(root); err != nil {
		return err
	}

	events := make(chan notify.EventInfo, notifyBufferSize)
	recursivePath := filepath.Join(root, "...")
	if err := notify.Watch(recursivePath, events, notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return fmt.Errorf("notify watch %s: %w", root, err)
	}
	slog.Debug("notify watch", "root", root)

	go func() {
		defer func() {
			notify.Stop(events)
			slog.Debug("notify watch stop", "root", root)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ei := <-events:
				kind, ok := notifyKind(ei.Event())
				if !ok {
					continue
				}
				h(Notification{
					Path:  ei.Path(),
					Kind:  kind,
					IsDir: isDir(ei.Path()),
				})
			}
		}
	}()

	return nil
}

func notifyKind(ev notify.Event) (Kind, bool) {
	switch {
	case ev&notify.Write != 0:
		return Modified, true
	case ev&notify.Create != 0:
		return Created, true
	case ev&notify.Remove != 0:
		return Deleted, true
	case ev&notify.Rename != 0:
		return Moved, true
	default:
		return 0, false
	}
}
