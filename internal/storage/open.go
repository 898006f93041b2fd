package storage

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Options struct {
	Backend       string
	Path          string
	MaxBytes      int64
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open builds the backend named by opts.Backend. An empty backend means
// SQLite.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendSQLite:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("storage: sqlite backend needs a path")
		}
		return OpenSQLite(opts.Path, opts.MaxBytes)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix, opts.MaxBytes)
	case BackendMemory:
		return NewMemoryKV(opts.MaxBytes), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
