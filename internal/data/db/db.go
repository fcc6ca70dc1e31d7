// Package db opens the loupe SQLite database and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "loupe.db"

// OpenOptions tunes the connection pool.
type OpenOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
	PingRetries  int
	PingWait     time.Duration
}

// DefaultOpenOptions returns the pool settings used by the CLI.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		BusyTimeout:  5 * time.Second,
		PingRetries:  5,
		PingWait:     100 * time.Millisecond,
	}
}

// DB wraps the SQL connection pool.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database in dataDir and applies pending
// migrations.
func Open(ctx context.Context, dataDir string, opts OpenOptions) (*DB, error) {
	return OpenPath(ctx, filepath.Join(dataDir, FileName), opts)
}

// OpenPath is Open for an explicit file path.
func OpenPath(ctx context.Context, path string, opts OpenOptions) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		path, opts.BusyTimeout.Milliseconds())
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)

	db := &DB{conn: conn}
	if err := db.ping(ctx, opts); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := migrateUp(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB { return db.conn }

// Close closes the pool.
func (db *DB) Close() error { return db.conn.Close() }

// WithTx runs fn in a transaction, rolling back when fn fails.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ping retries with exponential backoff; a busy file can refuse the first
// connection while another process holds a write lock.
func (db *DB) ping(ctx context.Context, opts OpenOptions) error {
	retries := max(1, opts.PingRetries)
	wait := opts.PingWait

	var err error
	for i := range retries {
		if err = db.conn.PingContext(ctx); err == nil {
			return nil
		}
		if i == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("ping database after %d attempts: %w", retries, err)
}
