package nanoarchive

import (
	"log/slog"

	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
)

// Option is a function that modifies Archiver construction
type Option func(*options)

type options struct {
	fs          store.FileSystem
	lockFactory store.FileLockFactory
	logger      *slog.Logger
	metrics     *Metrics
	hook        store.EventHook
}

// WithFileSystem sets the backend files are written to. The default is the
// OS file system.
func WithFileSystem(fs store.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithFileLockFactory sets the cross-process lock factory, overriding
// Config.FileLocking
func WithFileLockFactory(factory store.FileLockFactory) Option {
	return func(o *options) {
		o.lockFactory = factory
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records operation and event counters
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEventHook observes every directory store event, including directory
// creation failures that the fire-and-forget operations do not return.
func WithEventHook(hook store.EventHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}
