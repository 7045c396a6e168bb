package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/openmined/dirmonitor/internal/staging"
	"github.com/openmined/dirmonitor/internal/utils"
)

// JSONLSink appends one JSON object per ready file to a file.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("create ready log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ready log: %w", err)
	}
	return &JSONLSink{file: file, enc: json.NewEncoder(file)}, nil
}

// Handle is a staging.ReadyHandler.
func (s *JSONLSink) Handle(rf staging.ReadyFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(rf); err != nil {
		slog.Error("ready log write", "path", rf.Path, "error", err)
	}
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
