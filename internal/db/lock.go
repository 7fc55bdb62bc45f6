package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName   = "gudang.lock"
	defaultTimeout = 2 * time.Second
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 100 * time.Millisecond
)

// ErrBusy is wrapped by the error returned when another gudang process
// (typically a long running `gudang watch` or `gudang monitor`) keeps the
// write lock past the timeout.
var ErrBusy = errors.New("database busy")

// lockHolder is what a process writes into the lock file while it holds it
type lockHolder struct {
	PID     int
	Command string
	Since   time.Time
}

func (h lockHolder) String() string {
	if h.PID == 0 {
		return "unknown process"
	}
	s := fmt.Sprintf("%q (pid %d) since %s", h.Command, h.PID, h.Since.Format(time.TimeOnly))
	if !isProcessAlive(h.PID) {
		s += ", process has exited"
	}
	return s
}

// BusyError reports who held the write lock when acquiring timed out
type BusyError struct {
	Holder  lockHolder
	Timeout time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%v: write lock held by %s (waited %v)", ErrBusy, e.Holder, e.Timeout)
}

func (e *BusyError) Unwrap() error { return ErrBusy }

// writeLocker serializes writes across gudang processes sharing one data
// directory. The OS drops the lock when the process dies.
type writeLocker struct {
	path string
	file *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{path: filepath.Join(baseDir, lockFileName)}
}

// acquire waits up to timeout for the lock, backing off between attempts
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", lockFileName, err)
	}
	l.file = f

	deadline := time.Now().Add(timeout)
	for backoff := initialBackoff; ; backoff = min(backoff*2, maxBackoff) {
		if l.tryLock() == nil {
			l.recordHolder()
			return nil
		}
		if time.Now().After(deadline) {
			holder := readHolder(l.path)
			l.file.Close()
			l.file = nil
			return &BusyError{Holder: holder, Timeout: timeout}
		}
		time.Sleep(backoff)
	}
}

// release clears the holder record and unlocks
func (l *writeLocker) release() error {
	if l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	l.unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *writeLocker) recordHolder() {
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid=%d\ncmd=%s\nsince=%s\n", os.Getpid(), commandLine(os.Args), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// commandLine names the running command without its flags or their
// values, e.g. "gudang queue replay".
func commandLine(args []string) string {
	if len(args) == 0 {
		return "gudang"
	}
	words := []string{filepath.Base(args[0])}
	for _, a := range args[1:] {
		if strings.HasPrefix(a, "-") {
			break
		}
		words = append(words, a)
	}
	return strings.Join(words, " ")
}

func readHolder(path string) lockHolder {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockHolder{}
	}
	return parseHolder(string(data))
}

func parseHolder(s string) lockHolder {
	var h lockHolder
	for _, line := range strings.Split(s, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "cmd":
			h.Command = value
		case "since":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h
}
