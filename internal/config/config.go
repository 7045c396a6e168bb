package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/openmined/dirmonitor/internal/notifier"
	"github.com/openmined/dirmonitor/internal/utils"
	"github.com/spf13/viper"
)

// viper keys
const (
	KeyDirectories = "directories_to_monitor"
	KeyPollingTime = "polling_time"
	KeyTick        = "tick"
	KeyBackend     = "backend"
	KeyReadyLog    = "ready_log"
	KeyLockFile    = "lock_file"
	KeyLogFile     = "log_file"
)

const (
	DefaultPollingTime = 2
	DefaultTick        = 1 * time.Second
	DefaultBackend     = notifier.BackendNotify
	EnvPrefix          = "DIRMONITOR"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".config", "dirmonitor", "config.json")
)

var (
	ErrNoDirectories  = errors.New("no directories to monitor")
	ErrInvalidPolling = errors.New("polling time must be greater than zero")
	ErrInvalidTick    = errors.New("tick must be greater than zero")
)

type Config struct {
	Directories []string      `json:"directories_to_monitor"`
	PollingTime int           `json:"polling_time"`
	Tick        time.Duration `json:"tick"`
	Backend     string        `json:"backend"`
	ReadyLog    string        `json:"ready_log,omitempty"`
	LockFile    string        `json:"lock_file,omitempty"`
	LogFile     string        `json:"log_file,omitempty"`
	Path        string        `json:"-"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPollingTime, DefaultPollingTime)
	v.SetDefault(KeyTick, DefaultTick)
	v.SetDefault(KeyBackend, DefaultBackend)
}

// Load builds a Config from v. The result is not validated.
func Load(v *viper.Viper) *Config {
	return &Config{
		Directories: v.GetStringSlice(KeyDirectories),
		PollingTime: v.GetInt(KeyPollingTime),
		Tick:        v.GetDuration(KeyTick),
		Backend:     v.GetString(KeyBackend),
		ReadyLog:    v.GetString(KeyReadyLog),
		LockFile:    v.GetString(KeyLockFile),
		LogFile:     v.GetString(KeyLogFile),
		Path:        v.ConfigFileUsed(),
	}
}

// PollingInterval is the polling time as a duration.
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingTime) * time.Second
}

// Validate checks the config and resolves every path to an absolute one.
// Directories are not required to exist.
func (c *Config) Validate() error {
	if len(c.Directories) == 0 {
		return ErrNoDirectories
	}
	if c.PollingTime <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPolling, c.PollingTime)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTick, c.Tick)
	}

	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if !slices.Contains(notifier.Backends(), c.Backend) {
		return fmt.Errorf("%w: %q", notifier.ErrUnknownBackend, c.Backend)
	}

	dirs := make([]string, 0, len(c.Directories))
	for _, dir := range c.Directories {
		resolved, err := utils.ResolvePath(dir)
		if err != nil {
			return fmt.Errorf("directory %q: %w", dir, err)
		}
		dirs = append(dirs, resolved)
	}
	c.Directories = dirs

	for _, p := range []*string{&c.ReadyLog, &c.LockFile, &c.LogFile} {
		if *p == "" {
			continue
		}
		resolved, err := utils.ResolvePath(*p)
		if err != nil {
			return fmt.Errorf("path %q: %w", *p, err)
		}
		*p = resolved
	}

	return nil
}
