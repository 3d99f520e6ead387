package store

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Option is a function that modifies DirectoryStore configuration
type Option func(*DirectoryStore)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(s *DirectoryStore) {
		s.fs = fs
	}
}

// WithFileLockFactory enables cross-process locking of collection
// directories using the given factory. Without it only in-process locking
// is performed.
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(s *DirectoryStore) {
		s.lockFactory = factory
	}
}

// WithLockTimeout bounds how long a write waits for the cross-process lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *DirectoryStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *DirectoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventHook installs a hook that observes every store event
func WithEventHook(hook EventHook) Option {
	return func(s *DirectoryStore) {
		s.onEvent = hook
	}
}

// WithTempNameFunc sets how temporary file names are derived for atomic
// writes (for testing)
func WithTempNameFunc(fn func(path string) string) Option {
	return func(s *DirectoryStore) {
		s.tempName = fn
	}
}

func defaultTempName(path string) string {
	return path + "." + uuid.NewString() + tempSuffix
}
