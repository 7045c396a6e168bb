// Package logging configures the process-wide slog logger: a colourised
// console handler plus an optional plain-text log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/dirmonitor/internal/utils"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

type Options struct {
	// Console receives coloured output when it is a terminal. Defaults to os.Stdout.
	Console *os.File
	// File, when set, receives the same records as slog text.
	File  string
	Level slog.Level
}

// New builds a logger from opts. The returned closer releases the log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      opts.Level,
		TimeFormat: timeFormat,
		NoColor:    !isatty.IsTerminal(console.Fd()),
	})

	if opts.File == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	if err := utils.EnsureParent(opts.File); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: opts.Level})

	return slog.New(newMultiHandler(consoleHandler, fileHandler)), file, nil
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
