package db

import (
	"database/sql"
	"fmt"
)

// Well-known keys in the kv table.
const (
	KeyLastSync    = "last_sync"
	KeyAuthSession = "auth_session"
)

// GetValue returns the value stored under key. ok is false when the key
// has never been written.
func (db *DB) GetValue(key string) (value string, ok bool, err error) {
	err = db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %v", ErrStorageUnavailable, key, err)
	}
	return value, true, nil
}

// SetValue writes value under key, replacing any previous value.
func (db *DB) SetValue(key, value string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
		return err
	})
}

// SetValueTx writes value under key inside an existing transaction.
func SetValueTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
	return err
}

// DeleteValue removes key. Deleting a missing key is not an error.
func (db *DB) DeleteValue(key string) error {
	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`DELETE FROM kv WHERE key = ?`, key)
		return err
	})
}
