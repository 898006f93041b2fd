package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.DesktopNotifications || cfg.SchedulerBuffer != 64 {
		t.Fatalf("unexpected runtime defaults: %+v", cfg)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.MaxBytes != 5*1024*1024 {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if filepath.Base(cfg.Storage.Path) != "studyd.db" {
		t.Fatalf("unexpected storage path %q", cfg.Storage.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	prefs := cfg.DefaultPreferences()
	if !prefs.Notifications || prefs.Theme != "dark" || len(prefs.DefaultReminderTimes) != 4 {
		t.Fatalf("unexpected preference defaults: %+v", prefs)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
scheduler_buffer: 16
storage:
  backend: memory
  max_bytes: 1024
log:
  format: json
preferences:
  theme: light
  default_reminder_times: "2d,3h"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STUDYD_DESKTOP_NOTIFICATIONS", "false")
	t.Setenv("STUDYD_SCHEDULER_BUFFER", "128")
	t.Setenv("STUDYD_LOG__LEVEL", "debug")
	t.Setenv("STUDYD_LOG__FILE", "-")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DesktopNotifications {
		t.Fatal("expected desktop notifications false from env")
	}
	if cfg.SchedulerBuffer != 128 {
		t.Fatalf("env should override file, got buffer %d", cfg.SchedulerBuffer)
	}
	if cfg.Storage.Backend != "memory" || cfg.Storage.MaxBytes != 1024 {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Storage.RedisPrefix != "studyd:" {
		t.Fatalf("file should not clear unrelated defaults: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.File != "-" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}

	prefs := cfg.DefaultPreferences()
	if prefs.Theme != "light" || len(prefs.DefaultReminderTimes) != 2 || prefs.DefaultReminderTimes[1].String() != "3h" {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}

	opts := cfg.StorageOptions()
	if opts.Backend != "memory" || opts.MaxBytes != 1024 {
		t.Fatalf("unexpected storage options: %+v", opts)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "backend", mutate: func(c *Config) { c.Storage.Backend = "postgres" }},
		{name: "redis addr", mutate: func(c *Config) { c.Storage.Backend = "redis"; c.Storage.RedisAddr = "" }},
		{name: "buffer", mutate: func(c *Config) { c.SchedulerBuffer = 0 }},
		{name: "format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "offsets", mutate: func(c *Config) { c.Preferences.DefaultReminderTimes = "7w" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
