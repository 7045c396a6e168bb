package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openmined/dirmonitor/internal/notifier"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_ResolvesPaths(t *testing.T) {
	tmp := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	cfg := &Config{
		Directories: []string{"incoming", filepath.Join(tmp, "other")},
		PollingTime: 2,
		Tick:        time.Second,
		ReadyLog:    "ready.jsonl",
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBackend, cfg.Backend)
	for _, dir := range cfg.Directories {
		assert.True(t, filepath.IsAbs(dir), dir)
	}
	assert.True(t, filepath.IsAbs(cfg.ReadyLog))
	assert.Empty(t, cfg.LockFile)
	assert.Equal(t, 2*time.Second, cfg.PollingInterval())
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Directories: []string{t.TempDir()},
			PollingTime: 2,
			Tick:        time.Second,
			Backend:     notifier.BackendFSNotify,
		}
	}

	t.Run("no directories", func(t *testing.T) {
		cfg := valid()
		cfg.Directories = nil
		assert.ErrorIs(t, cfg.Validate(), ErrNoDirectories)
	})

	t.Run("zero polling", func(t *testing.T) {
		cfg := valid()
		cfg.PollingTime = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPolling)
	})

	t.Run("negative tick", func(t *testing.T) {
		cfg := valid()
		cfg.Tick = -time.Second
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidTick)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "polling"
		assert.ErrorIs(t, cfg.Validate(), notifier.ErrUnknownBackend)
	})

	t.Run("empty directory", func(t *testing.T) {
		cfg := valid()
		cfg.Directories = []string{""}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "directory")
	})
}

func TestConfig_Validate_AllowsMissingDirectories(t *testing.T) {
	cfg := &Config{
		Directories: []string{filepath.Join(t.TempDir(), "missing")},
		PollingTime: 1,
		Tick:        time.Second,
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg := Load(v)
	assert.Equal(t, DefaultPollingTime, cfg.PollingTime)
	assert.Equal(t, DefaultTick, cfg.Tick)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Empty(t, cfg.Directories)
}

func TestLoad_ConfigFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	content := strings.Join([]string{
		"directories_to_monitor:",
		"  - /srv/incoming",
		"  - /srv/uploads",
		"polling_time: 5",
		"tick: 250ms",
		"backend: fsnotify",
		"ready_log: /var/log/ready.jsonl",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := Load(v)
	assert.Equal(t, []string{"/srv/incoming", "/srv/uploads"}, cfg.Directories)
	assert.Equal(t, 5, cfg.PollingTime)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)
	assert.Equal(t, notifier.BackendFSNotify, cfg.Backend)
	assert.Equal(t, "/var/log/ready.jsonl", cfg.ReadyLog)
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DIRMONITOR_POLLING_TIME", "7")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	assert.Equal(t, 7, Load(v).PollingTime)
}
