package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMultiHandler_SingleHandlerUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	assert.Equal(t, inner, newMultiHandler(nil, inner, nil))
}

func TestMultiHandler_EnabledIfAnyEnabled(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_RespectsPerHandlerLevel(t *testing.T) {
	var info, debug bytes.Buffer
	logger := slog.New(newMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("root", "/srv").WithGroup("file")

	logger.Debug("still writing", "path", "a.txt")
	logger.Info("ready for processing", "path", "a.txt")

	assert.NotContains(t, info.String(), "still writing")
	assert.Contains(t, info.String(), "ready for processing")
	assert.Contains(t, info.String(), "root=/srv")
	assert.Contains(t, info.String(), "file.path=a.txt")
	assert.Contains(t, debug.String(), "still writing")
	assert.Contains(t, debug.String(), "ready for processing")
}

func TestNew_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dirmonitor.log")

	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer devnull.Close()

	logger, closer, err := New(Options{Console: devnull, File: path, Level: slog.LevelInfo})
	require.NoError(t, err)

	logger.Info("added to queue", "path", "/srv/a.txt")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "added to queue")
	assert.Contains(t, string(data), "path=/srv/a.txt")
}

func TestNew_ConsoleOnly(t *testing.T) {
	logger, closer, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}
