package nanoarchive

import (
	"errors"

	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
)

// Errors returned by the Try* operations. Store failures are the sentinels
// of the store package, re-exported so callers only import this package.
var (
	ErrNotFound        = store.ErrNotFound
	ErrMalformed       = store.ErrMalformed
	ErrRead            = store.ErrRead
	ErrWrite           = store.ErrWrite
	ErrDelete          = store.ErrDelete
	ErrDirectoryCreate = store.ErrDirectoryCreate
	ErrLock            = store.ErrLock

	// ErrDecode reports a record that parsed but could not be turned into
	// the collection's entity type.
	ErrDecode = errors.New("archive decode failed")

	// ErrInvalidID reports an identifier that cannot name a file inside its
	// collection directory.
	ErrInvalidID = errors.New("invalid archive id")

	// ErrInvalidCollection reports a collection that cannot be constructed.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrInvalidConfig reports a configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid archive configuration")
)
