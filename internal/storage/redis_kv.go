package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "studyd:"
	redisSaveRetries   = 3
)

type RedisKV struct {
	client *redis.Client
	prefix string
	quota  int64
}

func NewRedisKV(client *redis.Client, prefix string, quota int64) *RedisKV {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisKV{client: client, prefix: prefix, quota: quota}
}

// OpenRedis connects and pings the server at addr.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string, quota int64) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisKV(client, prefix, quota), nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

func (r *RedisKV) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (r *RedisKV) Save(ctx context.Context, key string, blob []byte) error {
	full := r.prefix + key
	if r.quota <= 0 {
		return r.client.Set(ctx, full, blob, 0).Err()
	}
	for attempt := 0; attempt < redisSaveRetries; attempt++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			used, _, err := r.usage(ctx, tx, full)
			if err != nil {
				return err
			}
			if exceeds(r.quota, used, key, blob) {
				return ErrQuotaExceeded
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, full, blob, 0)
				return nil
			})
			return err
		}, full)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("storage: save %s: concurrent writers, gave up after %d attempts", key, redisSaveRetries)
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *RedisKV) Info(ctx context.Context) (Usage, error) {
	used, items, err := r.usage(ctx, r.client, "")
	if err != nil {
		return Usage{}, err
	}
	return newUsage(used, items, r.quota), nil
}

// Clear deletes every key under the prefix.
func (r *RedisKV) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

type redisScanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	StrLen(ctx context.Context, key string) *redis.IntCmd
}

// usage sums the sizes of every prefixed key except skip. Sizes are counted
// without the prefix so quotas agree with the other backends.
func (r *RedisKV) usage(ctx context.Context, c redisScanner, skip string) (int64, int, error) {
	var (
		used   int64
		items  int
		cursor uint64
	)
	for {
		keys, next, err := c.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return 0, 0, err
		}
		for _, k := range keys {
			if k == skip {
				continue
			}
			n, err := c.StrLen(ctx, k).Result()
			if err != nil {
				return 0, 0, err
			}
			used += int64(len(k)-len(r.prefix)) + n
			items++
		}
		if next == 0 {
			return used, items, nil
		}
		cursor = next
	}
}
