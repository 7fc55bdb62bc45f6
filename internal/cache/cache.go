// Package cache is the durable, offline-readable mirror of the server
// collections. Each sync replaces mirrored collections wholesale.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bandungraya/gudang/internal/db"
	"github.com/bandungraya/gudang/internal/models"
)

var (
	// ErrSyncWriteFailed means a ReplaceAll transaction aborted. The cache
	// state is unknown and must not be trusted until the next sync.
	ErrSyncWriteFailed = errors.New("sync write failed")
	// ErrUnknownCollection is returned for names outside the mirrored set.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Store is the local cache store
type Store struct {
	db  *db.DB
	now func() time.Time
}

// New wraps an open database
func New(d *db.DB) *Store {
	return &Store{db: d, now: time.Now}
}

// Init makes sure the backing storage is reachable and its schema current.
// It is safe to call any number of times.
func (s *Store) Init(ctx context.Context) error {
	if s.db == nil {
		return db.ErrStorageUnavailable
	}
	if err := s.db.Conn().PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", db.ErrStorageUnavailable, err)
	}
	if _, err := s.db.RunMigrations(); err != nil {
		return fmt.Errorf("%w: %v", db.ErrStorageUnavailable, err)
	}
	return nil
}

// ReplaceAll clears and rewrites every mirrored collection present in snap,
// in one transaction, and records the sync time. Collections absent from
// snap are untouched; names outside the mirrored set are ignored.
func (s *Store) ReplaceAll(ctx context.Context, snap models.Snapshot) error {
	syncedAt := s.now().UTC()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, name := range snap.Names() {
			if err := replaceCollection(ctx, tx, name, snap[name]); err != nil {
				return err
			}
		}
		return db.SetValueTx(tx, db.KeyLastSync, syncedAt.Format(time.RFC3339Nano))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyncWriteFailed, err)
	}
	slog.Debug("cache: replaced", "collections", len(snap.Names()), "at", syncedAt)
	return nil
}

func replaceCollection(ctx context.Context, tx *sql.Tx, name models.CollectionName, records []models.Record) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_records WHERE collection = ?`, string(name)); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO cache_records (collection, record_id, position, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", name, err)
	}
	defer stmt.Close()

	for i, r := range records {
		id, ok := r.ID()
		if !ok {
			return fmt.Errorf("%s[%d]: record has no id", name, i)
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("%s/%s: marshal: %w", name, id, err)
		}
		if _, err := stmt.ExecContext(ctx, string(name), id, i, string(data)); err != nil {
			return fmt.Errorf("%s/%s: insert: %w", name, id, err)
		}
	}
	return nil
}

// ReadAll returns the cached records of a collection in server order, or
// an empty slice if it has never been populated.
func (s *Store) ReadAll(ctx context.Context, name models.CollectionName) ([]models.Record, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT data FROM cache_records WHERE collection = ? ORDER BY position`, string(name))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", db.ErrStorageUnavailable, name, err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", db.ErrStorageUnavailable, name, err)
		}
		r, err := models.DecodeRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", db.ErrStorageUnavailable, name, err)
	}
	return records, nil
}

// ReadSnapshot reads every mirrored collection.
func (s *Store) ReadSnapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{}
	for _, name := range models.Collections {
		records, err := s.ReadAll(ctx, name)
		if err != nil {
			return nil, err
		}
		snap[name] = records
	}
	return snap, nil
}

// LastSync returns when the cache was last replaced. The zero time means
// no sync has ever completed.
func (s *Store) LastSync() (time.Time, error) {
	v, ok, err := s.db.GetValue(db.KeyLastSync)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync %q: %w", v, err)
	}
	return t, nil
}

// Counts returns the number of cached records per collection
func (s *Store) Counts(ctx context.Context) (map[models.CollectionName]int, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT collection, COUNT(*) FROM cache_records GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", db.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[models.CollectionName]int, len(models.Collections))
	for _, c := range models.Collections {
		counts[c] = 0
	}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[models.CollectionName(name)] = n
	}
	return counts, rows.Err()
}
