package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// newTestDB opens an in-memory database with the full schema applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	d, err := OpenConn(conn, "")
	if err != nil {
		t.Fatalf("OpenConn: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(filepath.Join(dir, dbFile)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	v, err := d.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}
	for _, table := range []string{"cache_records", "pending_requests", "kv", "dead_letters"} {
		ok, err := d.tableExists(table)
		if err != nil || !ok {
			t.Errorf("table %s missing (err=%v)", table, err)
		}
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.SetValue(KeyLastSync, "2024-05-01T10:00:00Z"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	d.Close()

	d, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	v, ok, err := d.GetValue(KeyLastSync)
	if err != nil || !ok || v != "2024-05-01T10:00:00Z" {
		t.Errorf("GetValue = %q, %v, %v", v, ok, err)
	}
}

func TestOpen_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(filepath.Join(blocker, "sub"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	d := newTestDB(t)
	n, err := d.RunMigrations()
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if n != 0 {
		t.Errorf("second run applied %d migrations, want 0", n)
	}
}

func TestKV(t *testing.T) {
	d := newTestDB(t)

	if _, ok, err := d.GetValue("missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := d.SetValue("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue("a", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := d.GetValue("a"); v != "2" {
		t.Errorf("a = %q, want 2", v)
	}
	if err := d.DeleteValue("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := d.GetValue("a"); ok {
		t.Error("a should be deleted")
	}
	if err := d.DeleteValue("a"); err != nil {
		t.Errorf("deleting missing key: %v", err)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	d := newTestDB(t)
	boom := errors.New("boom")

	err := d.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := SetValueTx(tx, "k", "v"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok, _ := d.GetValue("k"); ok {
		t.Error("write should have been rolled back")
	}

	err = d.WithTx(context.Background(), func(tx *sql.Tx) error {
		return SetValueTx(tx, "k", "v")
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if v, ok, _ := d.GetValue("k"); !ok || v != "v" {
		t.Errorf("k = %q, %v", v, ok)
	}
}
