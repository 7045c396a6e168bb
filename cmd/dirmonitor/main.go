package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openmined/dirmonitor/internal/config"
	"github.com/openmined/dirmonitor/internal/logging"
	"github.com/openmined/dirmonitor/internal/monitor"
	"github.com/openmined/dirmonitor/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var verbose bool
	var logCloser io.Closer = nopCloser{}

	rootCmd := &cobra.Command{
		Use:     "dirmonitor [directories...]",
		Short:   "Monitors directories and reports files once they are completely written",
		Version: version.Detailed(),
		Args:    cobra.ArbitraryArgs,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logCloser.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v, args...)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logCloser, err = logging.Setup(logging.Options{File: cfg.LogFile, Level: level})
			if err != nil {
				return err
			}

			// all good now, show header
			cmd.SilenceUsage = true
			showHeader(cmd.OutOrStdout(), cfg)

			m, err := monitor.New(cfg)
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			if err := m.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().IntP("polling-time", "p", config.DefaultPollingTime,
		"Seconds between file size polls used to decide a copy is complete. Raise it for slow copies, lower it for fast ones")
	rootCmd.Flags().StringSliceP("directories-to-monitor", "d", nil, "Directories to monitor for new file updates (extra arguments are added too)")
	rootCmd.Flags().Duration("tick", config.DefaultTick, "How often staged files are checked")
	rootCmd.Flags().String("backend", config.DefaultBackend, "Change notification backend (notify, fsnotify)")
	rootCmd.Flags().String("ready-log", "", "Append a JSON line for every ready file to this path")
	rootCmd.Flags().String("lock-file", "", "Refuse to start if another monitor holds this lock")
	rootCmd.Flags().String("log-file", "", "Also write logs to this file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (json, yaml or toml)")

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func main() {
	// console logging until the config is known
	if _, err := logging.Setup(logging.Options{Level: slog.LevelInfo}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
