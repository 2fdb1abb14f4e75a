package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// indexLock guards the index directory across processes. Two recall
// processes mutating the same snapshot files would corrupt them, so the
// engine takes this lock before its first mutation and holds it until
// Close. The mutex keeps the locked flag consistent when several
// goroutines race to take the lock.
type indexLock struct {
	path   string
	flock  *flock.Flock
	mu     sync.Mutex
	locked bool
}

// newIndexLock creates a lock for the given index directory. The lock
// file lives at <dir>/.recall.lock.
func newIndexLock(dir string) *indexLock {
	lockPath := filepath.Join(dir, ".recall.lock")
	return &indexLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. Returns false
// when another process holds it.
func (l *indexLock) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create index directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *indexLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release index lock: %w", err)
	}
	return nil
}
