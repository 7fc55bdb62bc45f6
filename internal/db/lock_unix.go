//go:build unix

package db

import (
	"errors"

	"golang.org/x/sys/unix"
)

// flock is per open file, so two lockers in one process also exclude
// each other.
func (l *writeLocker) tryLock() error {
	return unix.Flock(int(l.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func (l *writeLocker) unlock() {
	if l.file != nil {
		_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	}
}

// isProcessAlive sends signal 0 to pid. EPERM means the process exists
// but belongs to someone else.
func isProcessAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
