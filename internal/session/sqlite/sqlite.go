// Package sqlite persists sessions in a SQLite table so they survive
// restarts of a single web instance.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"expensetracker/internal/session"
)

const driverName = "sqlite"

type Backend struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

var _ session.Backend = (*Backend)(nil)

type row struct {
	Value     []byte `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
}

// Open creates the database file if needed, migrates it and returns a backend
// whose values live for ttl.
func Open(dbPath string, ttl time.Duration) (*Backend, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Backend{db: db, ttl: ttl, now: time.Now}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var r row
	err := b.db.GetContext(ctx, &r, `SELECT value, expires_at FROM sessions WHERE session_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if b.now().Unix() >= r.ExpiresAt {
		_ = b.Delete(ctx, key)
		return nil, session.ErrNotFound
	}
	return r.Value, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	now := b.now()
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO sessions (session_key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, value, now.Add(b.ttl).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired row and returns how many were deleted.
func (b *Backend) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, b.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Close() error {
	return b.db.Close()
}
