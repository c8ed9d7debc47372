// lock.go provides cross-process file locking for stream and state files.
// Satellites, cron wakes, and the CLI all mutate the same files, so every
// writer serializes through an advisory lock. Readers never lock.

package util

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileLock provides advisory cross-process locking. Unlike sync.Mutex,
// which only excludes goroutines within one process, FileLock excludes
// other processes on the same machine.
// Uses gofrs/flock for cross-platform compatibility (Unix + Windows).
type FileLock struct {
	fl *flock.Flock
}

// NewFileLock creates a lock for the given path. The lock file is created
// on first acquisition and is never removed.
func NewFileLock(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.fl.Path()
}

// Lock acquires the exclusive lock, blocking until it is available.
// The caller must call Unlock when done.
func (l *FileLock) Lock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if another process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	locked, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring lock: %w", err)
	}
	return locked, nil
}

// LockContext acquires the exclusive lock, retrying every retryDelay until
// the context is done. Returns false with a nil error when the context
// expired before the lock was acquired, so callers can distinguish
// contention from real failures.
func (l *FileLock) LockContext(ctx context.Context, retryDelay time.Duration) (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	locked, err := l.fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("acquiring lock: %w", err)
	}
	return locked, nil
}

// Unlock releases the lock. Safe to call even if not locked.
func (l *FileLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// WithLock executes fn while holding the lock.
func (l *FileLock) WithLock(fn func() error) error {
	if err := l.Lock(); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

func (l *FileLock) ensureDir() error {
	dir := filepath.Dir(l.fl.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	return nil
}
