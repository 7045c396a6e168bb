// Package staging tracks files that are still being written and reports them
// once their size stops changing between two polls.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/dirmonitor/internal/notifier"
)

const (
	DefaultPollingInterval = 2 * time.Second
	DefaultTickInterval    = 1 * time.Second
)

var (
	ErrInvalidInterval = errors.New("interval must be greater than zero")
)

// Tracker owns the set of in-flight files. Ingest may be called from any
// goroutine; Sweep is expected to run from a single loop (see Run).
type Tracker struct {
	pollingInterval time.Duration
	tickInterval    time.Duration
	clock           Clock
	stat            StatFunc

	mu    sync.Mutex
	files map[string]*TrackedFile

	muSweep sync.Mutex

	muHandlers sync.RWMutex
	handlers   []ReadyHandler
}

type Option func(*Tracker)

func WithPollingInterval(d time.Duration) Option {
	return func(t *Tracker) { t.pollingInterval = d }
}

func WithTickInterval(d time.Duration) Option {
	return func(t *Tracker) { t.tickInterval = d }
}

func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

func WithStat(fn StatFunc) Option {
	return func(t *Tracker) { t.stat = fn }
}

func New(opts ...Option) (*Tracker, error) {
	t := &Tracker{
		pollingInterval: DefaultPollingInterval,
		tickInterval:    DefaultTickInterval,
		clock:           systemClock{},
		stat:            os.Stat,
		files:           make(map[string]*TrackedFile),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.pollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval %s: %w", t.pollingInterval, ErrInvalidInterval)
	}
	if t.tickInterval <= 0 {
		return nil, fmt.Errorf("tick interval %s: %w", t.tickInterval, ErrInvalidInterval)
	}

	return t, nil
}

// OnReady registers a handler for settled files.
func (t *Tracker) OnReady(h ReadyHandler) {
	t.muHandlers.Lock()
	defer t.muHandlers.Unlock()
	t.handlers = append(t.handlers, h)
}

// Handle is a notifier.Handler. Only modify notifications for files start
// staging; everything else is ignored.
func (t *Tracker) Handle(n notifier.Notification) {
	if n.IsDir || n.Kind != notifier.Modified {
		return
	}
	t.Ingest(n.Path)
}

// Ingest starts tracking path if it is not tracked already. It reports whether
// a new entry was added. A path that cannot be stat'd is dropped.
func (t *Tracker) Ingest(path string) bool {
	t.mu.Lock()
	_, exists := t.files[path]
	t.mu.Unlock()
	if exists {
		return false
	}

	info, err := t.stat(path)
	if err != nil {
		slog.Debug("staging drop", "path", path, "error", err)
		return false
	}
	if info.IsDir() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// lost a race with another notification for the same path
	if _, exists := t.files[path]; exists {
		return false
	}

	t.files[path] = newTrackedFile(path, info.Size(), t.clock.Now(), t.pollingInterval)
	slog.Info("added to queue", "path", path, "size", humanize.IBytes(uint64(info.Size())))
	return true
}

type snapshotEntry struct {
	ref  *TrackedFile
	file TrackedFile
}

func (t *Tracker) snapshot() []snapshotEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]snapshotEntry, 0, len(t.files))
	for _, f := range t.files {
		entries = append(entries, snapshotEntry{ref: f, file: *f})
	}
	return entries
}

// Sweep re-checks every due entry once. Entries whose size changed are
// re-armed, entries whose size is unchanged are removed and reported to the
// ready handlers. Entries that can no longer be stat'd are left as they are.
func (t *Tracker) Sweep() []ReadyFile {
	t.muSweep.Lock()
	defer t.muSweep.Unlock()

	now := t.clock.Now()
	var ready []ReadyFile

	for _, entry := range t.snapshot() {
		if !entry.file.due(now) {
			continue
		}

		info, err := t.stat(entry.file.Path)
		if err != nil {
			// orphaned; retried on every sweep
			slog.Debug("staging stat failed", "path", entry.file.Path, "error", err)
			continue
		}

		size := info.Size()
		if size != entry.file.Size {
			if t.rearm(entry.ref, size, now) {
				slog.Debug("still writing", "path", entry.file.Path,
					"size", humanize.IBytes(uint64(size)),
					"previous", humanize.IBytes(uint64(entry.file.Size)))
			}
			continue
		}

		if !t.remove(entry.ref) {
			continue
		}

		rf := ReadyFile{
			Path:    entry.file.Path,
			Name:    entry.file.Name,
			Ext:     entry.file.Ext,
			Size:    size,
			AddedAt: entry.file.AddedAt,
			ReadyAt: now,
		}
		slog.Info("ready for processing", "path", rf.Path,
			"size", humanize.IBytes(uint64(rf.Size)),
			"waited", now.Sub(rf.AddedAt).Round(time.Millisecond))
		t.emit(rf)
		ready = append(ready, rf)
	}

	return ready
}

func (t *Tracker) rearm(ref *TrackedFile, size int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.files[ref.Path] != ref {
		return false
	}
	ref.Size = size
	ref.NextCheck = now.Add(t.pollingInterval)
	ref.Polls++
	return true
}

func (t *Tracker) remove(ref *TrackedFile) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.files[ref.Path] != ref {
		return false
	}
	delete(t.files, ref.Path)
	return true
}

func (t *Tracker) emit(rf ReadyFile) {
	t.muHandlers.RLock()
	handlers := make([]ReadyHandler, len(t.handlers))
	copy(handlers, t.handlers)
	t.muHandlers.RUnlock()

	for _, h := range handlers {
		t.callHandler(h, rf)
	}
}

func (t *Tracker) callHandler(h ReadyHandler, rf ReadyFile) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ready handler panic", "path", rf.Path, "panic", r)
		}
	}()
	h(rf)
}

// Run sweeps every tick interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	slog.Info("staging start", "polling", t.pollingInterval, "tick", t.tickInterval)
	defer slog.Info("staging stop")

	// a timer instead of a ticker so a slow sweep doesn't queue up ticks
	timer := time.NewTimer(t.tickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			t.Sweep()
			timer.Reset(t.tickInterval)
		}
	}
}

// Tracked returns a copy of the tracked files ordered by path.
func (t *Tracker) Tracked() []TrackedFile {
	t.mu.Lock()
	files := make([]TrackedFile, 0, len(t.files))
	for _, f := range t.files {
		files = append(files, *f)
	}
	t.mu.Unlock()

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

// PollingInterval returns the delay between two size checks of the same file.
func (t *Tracker) PollingInterval() time.Duration {
	return t.pollingInterval
}
