// Package db owns the durable SQLite file that backs the local cache, the
// offline request queue and the small key-value area (last sync time,
// encrypted auth session).
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = "gudang.db"

// ErrStorageUnavailable is returned when the durable store cannot be opened
// or queried. Callers show a degraded/empty state rather than retrying.
var ErrStorageUnavailable = errors.New("storage unavailable")

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	baseDir string
}

// Open opens (creating if needed) the database under baseDir and runs any
// pending migrations.
func Open(baseDir string) (*DB, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", ErrStorageUnavailable, err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(baseDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageUnavailable, err)
	}

	// WAL gives concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: enable WAL mode: %v", ErrStorageUnavailable, err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %v", ErrStorageUnavailable, err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	db, err := OpenConn(conn, baseDir)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenConn adopts an already-open connection and makes sure the schema is
// current. An empty baseDir disables the cross-process write lock, which is
// what in-memory test databases want.
func OpenConn(conn *sql.DB, baseDir string) (*DB, error) {
	db := &DB{conn: conn, baseDir: baseDir}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("%w: run migrations: %v", ErrStorageUnavailable, err)
	}
	return db, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// BaseDir returns the directory holding the database file
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Conn returns the underlying *sql.DB for read queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// withWriteLock executes fn while holding an exclusive write lock.
// Keeps a CLI invocation and a running `gudang watch` from
// interleaving writes.
func (db *DB) withWriteLock(fn func() error) error {
	if db.baseDir == "" {
		return fn()
	}
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// WithTx runs fn inside a write-locked transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.withWriteLock(func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin tx: %v", ErrStorageUnavailable, err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}
