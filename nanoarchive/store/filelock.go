package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// FileLock defines the interface for cross-process file locking
type FileLock interface {
	// TryLockContext attempts to acquire an exclusive lock with retries
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	// New creates a new FileLock for the given path
	New(path string) FileLock
}

// FlockWrapper wraps github.com/gofrs/flock for our interface
type FlockWrapper struct {
	flock *flock.Flock
}

// TryLockContext implements FileLock.TryLockContext
func (f *FlockWrapper) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	return f.flock.TryLockContext(ctx, retryInterval)
}

// Unlock implements FileLock.Unlock
func (f *FlockWrapper) Unlock() error {
	return f.flock.Unlock()
}

// FlockFactory is the default factory implementation using flock
type FlockFactory struct{}

// New implements FileLockFactory.New
func (f *FlockFactory) New(path string) FileLock {
	return &FlockWrapper{
		flock: flock.New(path),
	}
}

// Constants for file locking
const (
	// LockFileName is created inside each collection directory while it is
	// being written to. It never matches an archive file extension.
	LockFileName = ".nanoarchive.lock"

	defaultLockTimeout = 3 * time.Second
	lockMaxRetries     = 3
	lockRetryDelay     = 100 * time.Millisecond
)

// acquireLock attempts to acquire an exclusive file lock with retry logic
func acquireLock(ctx context.Context, lock FileLock) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLock, err)
		}
		if locked {
			return nil
		}

		// Wait before retrying
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrLock, ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}

	return fmt.Errorf("%w: not acquired after %d attempts", ErrLock, lockMaxRetries)
}
