package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

const (
	EnvPrefix         = "STUDYD_"
	DefaultConfigPath = "~/.studyd/config.yaml"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"desktop_notifications": true,
		"scheduler_buffer":      64,
		"storage": map[string]interface{}{
			"backend":        "sqlite",
			"path":           "~/.studyd/studyd.db",
			"max_bytes":      5 * 1024 * 1024,
			"redis_addr":     "localhost:6379",
			"redis_password": "",
			"redis_db":       0,
			"redis_prefix":   "studyd:",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
			"file":   "~/.studyd/studyd.log",
		},
		"preferences": map[string]interface{}{
			"notifications":          true,
			"default_reminder_times": "7d,3d,1d,1h",
			"theme":                  "dark",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
