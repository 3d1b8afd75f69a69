// Package lock provides cross-process exclusive file locking used to
// serialize concurrent index builds against the same directory.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// FileLock wraps a gofrs/flock.Flock with the blocking-acquire/release
// pair the build path needs.
type FileLock struct {
	fl *flock.Flock
}

// New returns a FileLock backed by the file at path. The file is
// created if it doesn't exist; it is never removed.
func New(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired.
func (l *FileLock) Lock() error {
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.fl.Path(), err)
	}
	return nil
}

// TryLock attempts to acquire the lock without blocking, returning
// false if another process already holds it.
func (l *FileLock) TryLock() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("try-lock %s: %w", l.fl.Path(), err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return l.fl.Unlock()
}
