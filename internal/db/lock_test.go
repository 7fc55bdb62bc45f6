//go:build unix

package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteLocker_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	locker := newWriteLocker(dir)

	if err := locker.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if len(data) == 0 {
		t.Error("lock file should contain holder info")
	}

	if err := locker.release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}

func TestWriteLocker_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	const workers = 4
	const iterations = 8

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				locker := newWriteLocker(dir)
				if err := locker.acquire(5 * time.Second); err != nil {
					t.Errorf("acquire failed: %v", err)
					return
				}
				val := atomic.LoadInt64(&counter)
				time.Sleep(time.Millisecond)
				atomic.StoreInt64(&counter, val+1)
				locker.release()
			}
		}()
	}
	wg.Wait()

	if want := int64(workers * iterations); counter != want {
		t.Errorf("counter = %d, want %d", counter, want)
	}
}

func TestWriteLocker_Timeout(t *testing.T) {
	dir := t.TempDir()

	holder := newWriteLocker(dir)
	if err := holder.acquire(500 * time.Millisecond); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer holder.release()

	waiter := newWriteLocker(dir)
	err := waiter.acquire(100 * time.Millisecond)
	if err == nil {
		waiter.release()
		t.Fatal("expected a busy error, got nil")
	}
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	var busy *BusyError
	if !errors.As(err, &busy) || busy.Holder.PID != os.Getpid() || busy.Holder.Command == "" {
		t.Errorf("holder = %+v", busy)
	}
	if !strings.Contains(err.Error(), "since") {
		t.Errorf("error should describe the holder: %v", err)
	}
}

func TestParseHolder(t *testing.T) {
	h := parseHolder("pid=4242\ncmd=gudang watch\nsince=2025-03-01T08:30:00Z\n")
	if h.PID != 4242 || h.Command != "gudang watch" || h.Since.Hour() != 8 {
		t.Errorf("holder = %+v", h)
	}
	if h := parseHolder(""); h.PID != 0 || h.String() != "unknown process" {
		t.Errorf("empty holder = %+v", h)
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"/usr/local/bin/gudang", "watch", "--interval", "30s"}, "gudang watch"},
		{[]string{"gudang", "auth", "login", "-p", "rahasia"}, "gudang auth login"},
		{[]string{"gudang"}, "gudang"},
		{nil, "gudang"},
	}
	for _, tt := range tests {
		if got := commandLine(tt.args); got != tt.want {
			t.Errorf("commandLine(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestWithWriteLock_NoBaseDir(t *testing.T) {
	d := &DB{}
	called := false
	if err := d.withWriteLock(func() error { called = true; return nil }); err != nil {
		t.Fatalf("withWriteLock: %v", err)
	}
	if !called {
		t.Error("fn was not called")
	}
}
