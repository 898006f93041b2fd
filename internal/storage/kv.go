package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded, delete some old reminders")
	ErrClosed        = errors.New("storage: closed")
)

const (
	KeyReminders   = "homework_reminders"
	KeyPreferences = "user_preferences"

	// DefaultQuota matches the usual per-origin budget of browser local storage.
	DefaultQuota int64 = 5 * 1024 * 1024
)

// KV persists opaque blobs by key. Save replaces the whole value.
type KV interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	Info(ctx context.Context) (Usage, error)
	// Clear removes every key the backend owns.
	Clear(ctx context.Context) error
	Close() error
}

// Usage reports how much of the backend's quota is in use. A zero
// QuotaBytes means unlimited. LastWrite is the time the reminder collection
// was last saved, zero when the backend does not track it.
type Usage struct {
	UsedBytes      int64
	Items          int
	QuotaBytes     int64
	RemainingBytes int64
	LastWrite      time.Time
}

func (u Usage) Percent() float64 {
	if u.QuotaBytes <= 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.QuotaBytes) * 100
}

func newUsage(used int64, items int, quota int64) Usage {
	u := Usage{UsedBytes: used, Items: items, QuotaBytes: quota}
	if quota > 0 {
		u.RemainingBytes = max(0, quota-used)
	}
	return u
}

func entrySize(key string, blob []byte) int64 {
	return int64(len(key) + len(blob))
}

func exceeds(quota, usedOthers int64, key string, blob []byte) bool {
	return quota > 0 && usedOthers+entrySize(key, blob) > quota
}
