package staging

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TrackedFile is a file that has been noticed but is not yet known to be
// completely written.
type TrackedFile struct {
	Path      string
	Name      string
	Ext       string
	Size      int64
	NextCheck time.Time
	AddedAt   time.Time
	Polls     int
}

func newTrackedFile(path string, size int64, now time.Time, interval time.Duration) *TrackedFile {
	return &TrackedFile{
		Path:      path,
		Name:      filepath.Base(path),
		Ext:       strings.ToLower(filepath.Ext(path)),
		Size:      size,
		NextCheck: now.Add(interval),
		AddedAt:   now,
	}
}

// due reports whether the sweep should re-check the file at now.
func (f *TrackedFile) due(now time.Time) bool {
	return !now.Before(f.NextCheck)
}

// ReadyFile is emitted once a tracked file's size has settled.
type ReadyFile struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Ext     string    `json:"extension"`
	Size    int64     `json:"size"`
	AddedAt time.Time `json:"added_at"`
	ReadyAt time.Time `json:"ready_at"`
}

// ReadyHandler consumes ready files. Handlers run on the sweep goroutine and
// should hand off long work.
type ReadyHandler func(ReadyFile)

// Clock abstracts time for the tracker.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// StatFunc returns file info for a path, like os.Stat.
type StatFunc func(path string) (os.FileInfo, error)
