// Package notifier delivers filesystem change notifications for a directory tree.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openmined/dirmonitor/internal/utils"
)

var (
	ErrDirNotExist    = errors.New("directory to watch does not exist")
	ErrUnknownBackend = errors.New("unknown notifier backend")
)

const (
	BackendNotify   = "notify"
	BackendFSNotify = "fsnotify"
)

// Kind is the type of change a Notification reports.
type Kind uint8

const (
	Created Kind = iota + 1
	Modified
	Deleted
	Moved
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Notification is a single change observed under a watched root.
type Notification struct {
	Path  string
	Kind  Kind
	IsDir bool
}

// Handler receives notifications. It may be called from several goroutines
// when more than one root is subscribed.
type Handler func(Notification)

// Notifier subscribes to a root directory recursively.
type Notifier interface {
	// Subscribe starts delivering notifications for root and everything below it.
	// It returns once the subscription is established; delivery continues in the
	// background until ctx is done.
	Subscribe(ctx context.Context, root string, h Handler) error
}

// New returns the notifier backend registered under name.
func New(name string) (Notifier, error) {
	switch name {
	case "", BackendNotify:
		return NewNotifyBackend(), nil
	case BackendFSNotify:
		return NewFSNotifyBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Backends lists the names accepted by New.
func Backends() []string {
	return []string{BackendNotify, BackendFSNotify}
}

func checkRoot(root string) error {
	if !utils.DirExists(root) {
		return fmt.Errorf("%w: %s", ErrDirNotExist, root)
	}
	return nil
}

// isDir reports whether path is currently a directory. A path that no longer
// exists is treated as a file.
func isDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
