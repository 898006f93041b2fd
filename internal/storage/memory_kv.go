package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryKV keeps blobs in process memory. It is used by tests and by the
// "memory" backend.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	quota  int64
	saves  int
	closed bool
	wrote  time.Time
}

func NewMemoryKV(quota int64) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryKV) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	blob, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryKV) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	var others int64
	for k, v := range m.data {
		if k != key {
			others += entrySize(k, v)
		}
	}
	if exceeds(m.quota, others, key, blob) {
		return ErrQuotaExceeded
	}
	m.data[key] = append([]byte{}, blob...)
	m.saves++
	if key == KeyReminders {
		m.wrote = time.Now().UTC()
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Info(_ context.Context) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var used int64
	for k, v := range m.data {
		used += entrySize(k, v)
	}
	u := newUsage(used, len(m.data), m.quota)
	u.LastWrite = m.wrote
	return u, nil
}

func (m *MemoryKV) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	clear(m.data)
	m.wrote = time.Time{}
	return nil
}

// Saves counts successful Save calls.
func (m *MemoryKV) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SetQuota changes the quota for subsequent saves.
func (m *MemoryKV) SetQuota(quota int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = quota
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
