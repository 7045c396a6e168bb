package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmined/dirmonitor/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultConfigPath is read when --config is not given.
var defaultConfigPath = config.DefaultConfigPath

var flagKeys = map[string]string{
	"polling-time":           config.KeyPollingTime,
	"directories-to-monitor": config.KeyDirectories,
	"tick":                   config.KeyTick,
	"backend":                config.KeyBackend,
	"ready-log":              config.KeyReadyLog,
	"lock-file":              config.KeyLockFile,
	"log-file":               config.KeyLogFile,
}

// loadConfig merges defaults, the config file, env and flags. Positional
// args are extra directories, so `-d a b` works like `-d a -d b`.
func loadConfig(cmd *cobra.Command, v *viper.Viper, args ...string) (*config.Config, error) {
	config.SetDefaults(v)

	// config path
	if cmd.Flag("config").Changed {
		// persistent flags are only merged into cmd.Flags() by Execute
		v.SetConfigFile(cmd.Flag("config").Value.String())
	} else {
		v.SetConfigFile(defaultConfigPath)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
		// an explicitly requested config file must exist
		if cmd.Flag("config").Changed {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	// Set up environment variables
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	cfg := config.Load(v)
	cfg.Directories = append(cfg.Directories, args...)
	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err != nil {
			cfg.Path = ""
		} else {
			cfg.Path = filepath.Clean(cfg.Path)
		}
	}
	return cfg, nil
}
