package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteKV struct {
	db    *sql.DB
	quota int64
	now   func() time.Time
}

func NewSQLiteKV(db *sql.DB, quota int64) (*SQLiteKV, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	return &SQLiteKV{db: db, quota: quota, now: time.Now}, nil
}

// OpenSQLite opens (creating when needed) the database file at path and
// applies the embedded migrations.
func OpenSQLite(path string, quota int64) (*SQLiteKV, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps the quota check and the upsert in the same transaction
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	kv, err := NewSQLiteKV(db, quota)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return kv, nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

func (s *SQLiteKV) Load(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return blob, nil
}

func (s *SQLiteKV) Save(ctx context.Context, key string, blob []byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateSQLiteErr(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.quota > 0 {
		var used int64
		if err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0)
			FROM kv WHERE key != ?`, key).Scan(&used); err != nil {
			return translateSQLiteErr(err)
		}
		if exceeds(s.quota, used, key, blob) {
			return ErrQuotaExceeded
		}
	}

	if blob == nil {
		blob = []byte{}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, blob, s.now().UTC().Format(sqliteTimeLayout),
	); err != nil {
		return translateSQLiteErr(err)
	}
	if err = tx.Commit(); err != nil {
		return translateSQLiteErr(err)
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return translateSQLiteErr(err)
}

func (s *SQLiteKV) Info(ctx context.Context) (Usage, error) {
	var used int64
	var items int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0), COUNT(*)
		FROM kv`).Scan(&used, &items)
	if err != nil {
		return Usage{}, err
	}
	u := newUsage(used, items, s.quota)
	switch at, err := s.UpdatedAt(ctx, KeyReminders); {
	case err == nil:
		u.LastWrite = at
	case !errors.Is(err, ErrNotFound):
		return Usage{}, err
	}
	return u, nil
}

// Clear drops and recreates the schema.
func (s *SQLiteKV) Clear(_ context.Context) error {
	if err := MigrateDown(s.db); err != nil {
		return err
	}
	return MigrateUp(s.db)
}

// UpdatedAt reports when key was last written.
func (s *SQLiteKV) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return time.Parse(sqliteTimeLayout, raw)
}

func translateSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}
