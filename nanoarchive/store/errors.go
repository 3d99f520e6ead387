package store

import "errors"

var (
	// ErrNotFound reports that nothing is stored at a path. It is an expected
	// outcome, not a failure.
	ErrNotFound = errors.New("archive not found")

	// ErrMalformed reports stored bytes that do not parse into a record.
	ErrMalformed = errors.New("malformed archive")

	// ErrRead reports that the backend refused to read an existing path.
	ErrRead = errors.New("archive read failed")

	// ErrWrite reports that a record could not be encoded or persisted.
	ErrWrite = errors.New("archive write failed")

	// ErrDelete reports that the backend refused to remove a path.
	ErrDelete = errors.New("archive deletion failed")

	// ErrDirectoryCreate reports that an archive directory could not be created.
	ErrDirectoryCreate = errors.New("archive directory creation failed")

	// ErrLock reports that the cross-process lock could not be acquired.
	ErrLock = errors.New("archive lock failed")
)
