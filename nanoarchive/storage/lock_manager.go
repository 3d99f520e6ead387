package storage

import (
	"sync"
)

// OperationType defines whether an operation is read or write.
// This distinction allows the LockManager to use appropriate locking
// strategies - read locks (RLock) for concurrent reads, and write locks
// (Lock) for exclusive writes.
type OperationType int

const (
	// ReadOperation indicates an operation that only reads data.
	// Multiple read operations on the same key can proceed concurrently.
	ReadOperation OperationType = iota

	// WriteOperation indicates an operation that modifies data.
	// Write operations are exclusive per key - no other reads or writes
	// of that key can proceed while a write lock is held.
	WriteOperation
)

// LockManager provides per-key read/write locking for archive paths.
//
// Every keyed operation also holds a shared lock on the whole tree, so that
// ExecuteExclusive (used to remove an entire archive root) waits for in-flight
// operations and blocks new ones until it returns.
//
// Entries are reference counted and dropped once no goroutine holds or waits
// for them, so the map does not grow with the number of distinct keys seen.
type LockManager struct {
	tree sync.RWMutex

	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.RWMutex
	refs int
}

// NewLockManager creates a new lock manager instance.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*keyedLock),
	}
}

// Execute runs fn while holding the lock for key. The lock is released via
// defer, so it is released even if fn panics.
//
// Example:
//
//	err := lockManager.Execute(path, WriteOperation, func() error {
//	    return writeFile(path)
//	})
func (lm *LockManager) Execute(key string, opType OperationType, fn func() error) error {
	lm.tree.RLock()
	defer lm.tree.RUnlock()

	l := lm.acquire(key)
	defer lm.release(key, l)

	switch opType {
	case ReadOperation:
		l.mu.RLock()
		defer l.mu.RUnlock()
	case WriteOperation:
		l.mu.Lock()
		defer l.mu.Unlock()
	}
	return fn()
}

// ExecuteExclusive runs fn while no keyed operation is in progress.
func (lm *LockManager) ExecuteExclusive(fn func() error) error {
	lm.tree.Lock()
	defer lm.tree.Unlock()
	return fn()
}

// ExecuteWithResult is Execute for functions that also return a value.
func ExecuteWithResult[T any](lm *LockManager, key string, opType OperationType, fn func() (T, error)) (T, error) {
	var result T
	err := lm.Execute(key, opType, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

// Len returns the number of keys currently tracked.
func (lm *LockManager) Len() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}

func (lm *LockManager) acquire(key string) *keyedLock {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	l, ok := lm.locks[key]
	if !ok {
		l = &keyedLock{}
		lm.locks[key] = l
	}
	l.refs++
	return l
}

func (lm *LockManager) release(key string, l *keyedLock) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(lm.locks, key)
	}
}
