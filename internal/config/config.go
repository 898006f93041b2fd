package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

type Config struct {
	DesktopNotifications bool              `koanf:"desktop_notifications"`
	SchedulerBuffer      int               `koanf:"scheduler_buffer"`
	Storage              StorageConfig     `koanf:"storage"`
	Log                  LogConfig         `koanf:"log"`
	Preferences          PreferencesConfig `koanf:"preferences"`
}

type StorageConfig struct {
	Backend       string `koanf:"backend"` // sqlite, redis or memory
	Path          string `koanf:"path"`
	MaxBytes      int64  `koanf:"max_bytes"` // 0 disables the quota
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
	File   string `koanf:"file"`   // "-" writes to stderr
}

// PreferencesConfig seeds the stored preferences on first run.
type PreferencesConfig struct {
	Notifications        bool   `koanf:"notifications"`
	DefaultReminderTimes string `koanf:"default_reminder_times"`
	Theme                string `koanf:"theme"`
}

// Load layers defaults, the YAML file at configPath (when it exists) and
// STUDYD_ environment variables. Nested keys use a double underscore, e.g.
// STUDYD_STORAGE__BACKEND=redis.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	if cfg.Log.File != "-" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: sqlite, redis, memory)", c.Storage.Backend)
	}

	if c.Storage.MaxBytes < 0 {
		return fmt.Errorf("storage.max_bytes must not be negative")
	}
	if c.SchedulerBuffer <= 0 {
		return fmt.Errorf("scheduler_buffer must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s (supported: text, json)", c.Log.Format)
	}

	if _, err := model.ParseOffsets(c.Preferences.DefaultReminderTimes); err != nil {
		return fmt.Errorf("preferences.default_reminder_times: %w", err)
	}
	return nil
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.Storage.Backend,
		Path:          c.Storage.Path,
		MaxBytes:      c.Storage.MaxBytes,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisDB:       c.Storage.RedisDB,
		RedisPrefix:   c.Storage.RedisPrefix,
	}
}

// DefaultPreferences returns the preferences used when none are stored yet.
func (c *Config) DefaultPreferences() model.Preferences {
	prefs := model.DefaultPreferences()
	prefs.Notifications = c.Preferences.Notifications
	if c.Preferences.Theme != "" {
		prefs.Theme = c.Preferences.Theme
	}
	if offsets, err := model.ParseOffsets(c.Preferences.DefaultReminderTimes); err == nil && len(offsets) > 0 {
		prefs.DefaultReminderTimes = offsets
	}
	return prefs
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
