package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/arthur-debert/nanoarchive/nanoarchive/storage"
	"github.com/arthur-debert/nanoarchive/record"
)

const tempSuffix = ".tmp"

// DirectoryStore persists one record per file. It knows nothing about
// entities or identifiers: callers hand it fully derived paths.
//
// Writes go to a uniquely named sibling temp file that is renamed over the
// target, so a concurrent reader sees either the previous content or the new
// content, never a partial file. Access to a single path is serialized in
// process; with a FileLockFactory configured, writers in other processes are
// excluded per collection directory as well.
type DirectoryStore struct {
	fs          FileSystem
	format      *formats.RecordFormat
	locks       *storage.LockManager
	lockFactory FileLockFactory
	lockTimeout time.Duration
	logger      *slog.Logger
	onEvent     EventHook
	tempName    func(string) string
}

// NewDirectoryStore creates a DirectoryStore that encodes records with format
func NewDirectoryStore(format *formats.RecordFormat, opts ...Option) *DirectoryStore {
	s := &DirectoryStore{
		format:      format,
		locks:       storage.NewLockManager(),
		lockTimeout: defaultLockTimeout,
		tempName:    defaultTempName,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Set defaults for dependencies not provided via options
	if s.fs == nil {
		s.fs = &OSFileSystem{}
	}
	if s.format == nil {
		s.format = formats.JSON
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Extension returns the file extension of the configured format, with the dot
func (s *DirectoryStore) Extension() string {
	return s.format.Extension
}

// Format returns the record format used for files
func (s *DirectoryStore) Format() *formats.RecordFormat {
	return s.format
}

// FileSystem returns the backend the store writes to
func (s *DirectoryStore) FileSystem() FileSystem {
	return s.fs
}

// EnsureDirectory creates path and any missing parents. Failures are
// reported as an EventDirectoryCreateFailed event and a warning log in
// addition to the returned error.
func (s *DirectoryStore) EnsureDirectory(path string) error {
	info, err := s.fs.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return s.fail(EventDirectoryCreateFailed, path,
			fmt.Errorf("%w: %s exists and is not a directory", ErrDirectoryCreate, path))
	}

	if err := s.fs.MkdirAll(path, 0755); err != nil {
		return s.fail(EventDirectoryCreateFailed, path, fmt.Errorf("%w: %w", ErrDirectoryCreate, err))
	}
	s.emit(Event{Kind: EventDirectoryCreated, Path: path})
	return nil
}

// Write stores rec at exactly path, replacing any previous content.
func (s *DirectoryStore) Write(path string, rec record.Record) error {
	data, err := s.format.Marshal(rec)
	if err != nil {
		return s.fail(EventWriteFailed, path, fmt.Errorf("%w: failed to encode record: %w", ErrWrite, err))
	}

	err = s.locks.Execute(path, storage.WriteOperation, func() error {
		unlock, err := s.lockDir(filepath.Dir(path))
		if err != nil {
			return err
		}
		defer unlock()

		// Write to a temp file, then rename over the target
		tmpFile := s.tempName(path)
		if err := s.fs.WriteFile(tmpFile, data, 0644); err != nil {
			return fmt.Errorf("%w: failed to write temp file: %w", ErrWrite, err)
		}
		if err := s.fs.Rename(tmpFile, path); err != nil {
			_ = s.fs.Remove(tmpFile)
			return fmt.Errorf("%w: failed to rename file: %w", ErrWrite, err)
		}
		return nil
	})
	if err != nil {
		return s.fail(EventWriteFailed, path, err)
	}

	s.emit(Event{Kind: EventWritten, Path: path})
	return nil
}

// Read returns the record stored at path. A missing file yields
// ErrNotFound; bytes that do not parse yield ErrMalformed. Read never
// creates anything.
func (s *DirectoryStore) Read(path string) (record.Record, error) {
	return storage.ExecuteWithResult(s.locks, path, storage.ReadOperation, func() (record.Record, error) {
		// Check existence first so that "missing" is never confused with "corrupt"
		if _, err := s.fs.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, ErrNotFound
			}
			return nil, s.fail(EventReadFailed, path, fmt.Errorf("%w: %w", ErrRead, err))
		}

		data, err := s.fs.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, ErrNotFound
			}
			return nil, s.fail(EventReadFailed, path, fmt.Errorf("%w: %w", ErrRead, err))
		}

		rec, err := s.format.Unmarshal(data)
		if err != nil {
			return nil, s.fail(EventMalformed, path, fmt.Errorf("%w: %w", ErrMalformed, err))
		}
		return rec, nil
	})
}

// Exists reports whether a file is stored at path.
func (s *DirectoryStore) Exists(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Delete removes the file at path. A missing file is not an error and
// emits no event.
func (s *DirectoryStore) Delete(path string) error {
	removed := false
	err := s.locks.Execute(path, storage.WriteOperation, func() error {
		if _, err := s.fs.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		unlock, err := s.lockDir(filepath.Dir(path))
		if err != nil {
			return err
		}
		defer unlock()

		err = s.fs.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}
		removed = true
		return nil
	})
	if err != nil {
		return s.fail(EventDeleteFailed, path, err)
	}

	if removed {
		s.emit(Event{Kind: EventDeleted, Path: path})
	}
	return nil
}

// RemoveAll removes path and everything below it in one step, waiting for
// in-flight operations to finish first. A missing path is not an error.
func (s *DirectoryStore) RemoveAll(path string) error {
	err := s.locks.ExecuteExclusive(func() error {
		if err := s.fs.RemoveAll(path); err != nil {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}
		return nil
	})
	if err != nil {
		return s.fail(EventTreeRemoveFailed, path, err)
	}

	s.emit(Event{Kind: EventTreeRemoved, Path: path})
	return nil
}

// List returns the base names, without extension, of the archive files in
// dir, sorted. Temporary and lock files are skipped. A missing directory
// yields an empty list.
func (s *DirectoryStore) List(dir string) ([]string, error) {
	entries, err := s.readDir(dir)
	if err != nil {
		return nil, err
	}

	ext := s.format.Extension
	names := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasSuffix(name, tempSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ext))
	}
	sort.Strings(names)
	return names, nil
}

// ListDirs returns the names of the subdirectories of dir, sorted. A
// missing directory yields an empty list.
func (s *DirectoryStore) ListDirs(dir string) ([]string, error) {
	entries, err := s.readDir(dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirectoryStore) readDir(dir string) ([]fs.DirEntry, error) {
	return storage.ExecuteWithResult(s.locks, dir, storage.ReadOperation, func() ([]fs.DirEntry, error) {
		entries, err := s.fs.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		return entries, nil
	})
}

// lockDir acquires the cross-process lock for dir when locking is enabled.
// The returned function releases it.
func (s *DirectoryStore) lockDir(dir string) (func(), error) {
	if s.lockFactory == nil {
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	lock := s.lockFactory.New(filepath.Join(dir, LockFileName))
	if err := acquireLock(ctx, lock); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release archive lock", "dir", dir, "error", err)
		}
	}, nil
}

// fail reports a failure event and returns err unchanged
func (s *DirectoryStore) fail(kind EventKind, path string, err error) error {
	level := slog.LevelDebug
	if kind == EventDirectoryCreateFailed {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "archive operation failed",
		"event", kind.String(),
		"path", path,
		"error", err)
	s.emit(Event{Kind: kind, Path: path, Err: err})
	return err
}

func (s *DirectoryStore) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}
