//go:build windows

package db

import (
	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a running process
const stillActive = 259

// lockRange locks the first byte of the lock file
const lockRange = 1

func (l *writeLocker) tryLock() error {
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK | windows.LOCKFILE_FAIL_IMMEDIATELY)
	return windows.LockFileEx(windows.Handle(l.file.Fd()), flags, 0, lockRange, 0, new(windows.Overlapped))
}

func (l *writeLocker) unlock() {
	if l.file != nil {
		_ = windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, lockRange, 0, new(windows.Overlapped))
	}
}

func isProcessAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	var code uint32
	return windows.GetExitCodeProcess(h, &code) == nil && code == stillActive
}
