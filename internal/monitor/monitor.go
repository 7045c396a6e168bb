// Package monitor wires the change notifier to the staging tracker for every
// configured root directory.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gofrs/flock"
	"github.com/openmined/dirmonitor/internal/config"
	"github.com/openmined/dirmonitor/internal/notifier"
	"github.com/openmined/dirmonitor/internal/staging"
	"github.com/openmined/dirmonitor/internal/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMonitorLocked  = errors.New("monitor locked by another process")
	ErrMonitorStarted = errors.New("monitor already started")
)

type Monitor struct {
	cfg      *config.Config
	tracker  *staging.Tracker
	notifier notifier.Notifier
	flock    *flock.Flock

	trackerOpts []staging.Option
	handlers    []staging.ReadyHandler

	started atomic.Bool

	mu         sync.Mutex
	subscribed []string
}

type Option func(*Monitor)

// WithNotifier replaces the backend selected by the config.
func WithNotifier(n notifier.Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithTrackerOptions appends options used when building the tracker.
func WithTrackerOptions(opts ...staging.Option) Option {
	return func(m *Monitor) { m.trackerOpts = append(m.trackerOpts, opts...) }
}

// WithReadyHandler registers an extra consumer of ready files.
func WithReadyHandler(h staging.ReadyHandler) Option {
	return func(m *Monitor) { m.handlers = append(m.handlers, h) }
}

// New creates a monitor for a validated config.
func New(cfg *config.Config, opts ...Option) (*Monitor, error) {
	m := &Monitor{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}

	if m.notifier == nil {
		n, err := notifier.New(cfg.Backend)
		if err != nil {
			return nil, err
		}
		m.notifier = n
	}

	trackerOpts := append([]staging.Option{
		staging.WithPollingInterval(cfg.PollingInterval()),
		staging.WithTickInterval(cfg.Tick),
	}, m.trackerOpts...)
	tracker, err := staging.New(trackerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}
	m.tracker = tracker

	for _, h := range m.handlers {
		tracker.OnReady(h)
	}

	if cfg.LockFile != "" {
		m.flock = flock.New(cfg.LockFile)
	}

	return m, nil
}

// Tracker returns the staging tracker fed by this monitor.
func (m *Monitor) Tracker() *staging.Tracker {
	return m.tracker
}

// Subscribed returns the roots that are currently being watched.
func (m *Monitor) Subscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subscribed...)
}

// Start subscribes every root and runs the sweep loop until ctx is cancelled.
// Roots that cannot be subscribed are logged and skipped. A Monitor can only
// be started once; the ready log opened here is closed when Start returns.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrMonitorStarted
	}

	if err := m.lock(); err != nil {
		return err
	}
	defer m.unlock()

	if m.cfg.ReadyLog != "" {
		sink, err := NewJSONLSink(m.cfg.ReadyLog)
		if err != nil {
			return err
		}
		defer sink.Close()
		m.tracker.OnReady(sink.Handle)
		slog.Info("ready log", "path", m.cfg.ReadyLog)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return m.tracker.Run(egCtx)
	})

	if n := m.subscribeAll(egCtx); n == 0 {
		slog.Warn("no directories are being monitored")
	}

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("monitor failure", "error", err)
		return err
	}

	slog.Info("monitor stopped")
	return nil
}

func (m *Monitor) subscribeAll(ctx context.Context) int {
	seen := mapset.NewThreadUnsafeSet[string]()

	for _, dir := range m.cfg.Directories {
		root, err := utils.CanonicalPath(dir)
		if err != nil {
			slog.Error("invalid directory. skipping for monitor", "dir", dir, "error", err)
			continue
		}
		if !seen.Add(root) {
			slog.Warn("directory already monitored", "dir", dir, "root", root)
			continue
		}

		if err := m.notifier.Subscribe(ctx, root, m.tracker.Handle); err != nil {
			if errors.Is(err, notifier.ErrDirNotExist) {
				slog.Error("directory does not exist. skipping for monitor", "dir", dir)
			} else {
				slog.Error("failed to monitor directory. skipping", "dir", dir, "error", err)
			}
			continue
		}

		m.mu.Lock()
		m.subscribed = append(m.subscribed, root)
		m.mu.Unlock()
		slog.Info("adding monitor", "dir", root)
	}

	return len(m.Subscribed())
}

func (m *Monitor) lock() error {
	if m.flock == nil {
		return nil
	}
	if err := utils.EnsureParent(m.flock.Path()); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	locked, err := m.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock monitor: %w", err)
	}
	if !locked {
		return ErrMonitorLocked
	}
	return nil
}

func (m *Monitor) unlock() {
	if m.flock == nil || !m.flock.Locked() {
		return
	}
	if err := m.flock.Unlock(); err != nil {
		slog.Warn("failed to unlock monitor", "error", err)
		return
	}
	os.Remove(m.flock.Path())
}
