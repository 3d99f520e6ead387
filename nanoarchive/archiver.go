// Package nanoarchive keeps application entities in a per-identifier file
// cache.
//
// Each entity type gets its own collection directory and each entity one
// file named after its identifier:
//
//	<RootDir>/<Subdirectory>/<Collection>/<id>.<ext>
//
// An Archiver owns the configuration (root directory, subdirectory, file
// format) and the DirectoryStore that performs the physical I/O. A
// Collection binds an entity type to an Archiver and exposes store, load and
// delete for single entities and for batches. ResponseBridge turns decoded
// network responses into entities and archives them on the way through.
//
// Every operation exists in two flavors. The plain one (Store, Load,
// Delete, ClearAll) is fire-and-forget: failures are logged and reported
// through metrics and the event hook, and a failed load is simply absent.
// The Try variant returns the error, so callers can tell a missing archive
// (ErrNotFound) from a corrupt one (ErrMalformed, ErrDecode) or a failed
// write (ErrWrite, ErrDirectoryCreate).
//
// Basic usage:
//
//	archiver, err := nanoarchive.New(nanoarchive.DefaultConfig())
//	widgets, err := nanoarchive.NewCollection(archiver, DecodeWidget)
//	widgets.Store(w)
//	w, ok := widgets.Load("42")
package nanoarchive

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/arthur-debert/nanoarchive/internal/validation"
	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
)

// Archiver is the root of one archive tree. Its configuration is fixed at
// construction; WithRoot and WithSubdirectory derive new Archivers that
// share the same store, so locking stays consistent between them.
type Archiver struct {
	cfg     Config
	store   *store.DirectoryStore
	logger  *slog.Logger
	metrics *Metrics
}

// New creates an Archiver. Zero-valued Config fields are filled from
// DefaultConfig, except FileLocking which stays as given.
func New(cfg Config, opts ...Option) (*Archiver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, err := formats.Get(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// Set defaults for dependencies not provided via options
	if o.fs == nil {
		o.fs = &store.OSFileSystem{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.lockFactory == nil && cfg.FileLocking {
		// flock only means something for files on a real file system
		if _, isOS := o.fs.(*store.OSFileSystem); isOS {
			o.lockFactory = &store.FlockFactory{}
		}
	}

	storeOpts := []store.Option{
		store.WithFileSystem(o.fs),
		store.WithLogger(o.logger),
		store.WithLockTimeout(cfg.LockTimeout),
		store.WithEventHook(func(e store.Event) {
			o.metrics.observeEvent(e)
			if o.hook != nil {
				o.hook(e)
			}
		}),
	}
	if o.lockFactory != nil {
		storeOpts = append(storeOpts, store.WithFileLockFactory(o.lockFactory))
	}

	a := &Archiver{
		cfg:     cfg,
		store:   store.NewDirectoryStore(format, storeOpts...),
		logger:  o.logger,
		metrics: o.metrics,
	}

	a.logger.Debug("archiver created",
		"archive_dir", cfg.ArchiveDir(),
		"format", format.Name,
		"file_locking", o.lockFactory != nil)
	return a, nil
}

var defaultArchiver = sync.OnceValue(func() *Archiver {
	a, err := New(DefaultConfig())
	if err != nil {
		// DefaultConfig only produces valid configurations
		panic(fmt.Sprintf("nanoarchive: default configuration rejected: %v", err))
	}
	return a
})

// Default returns the process-wide Archiver built from DefaultConfig. It is
// created on first use.
func Default() *Archiver {
	return defaultArchiver()
}

// Config returns a copy of the archiver's configuration
func (a *Archiver) Config() Config {
	return a.cfg
}

// ArchiveDir returns <RootDir>/<Subdirectory>
func (a *Archiver) ArchiveDir() string {
	return a.cfg.ArchiveDir()
}

// Extension returns the file extension of archive files, with the dot
func (a *Archiver) Extension() string {
	return a.store.Extension()
}

// WithRoot returns an Archiver rooted at dir. The receiver is unchanged and
// operations already running against it are unaffected.
func (a *Archiver) WithRoot(dir string) (*Archiver, error) {
	next := *a
	next.cfg.RootDir = dir
	if err := next.cfg.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

// WithSubdirectory returns an Archiver that keeps its collections under
// name. The receiver is unchanged.
func (a *Archiver) WithSubdirectory(name string) (*Archiver, error) {
	next := *a
	next.cfg.Subdirectory = name
	if err := next.cfg.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

// Location returns the path of the archive file for id in collection. It is
// a pure function of the configuration and its arguments.
func (a *Archiver) Location(collection, id string) (string, error) {
	if err := validation.Segment(collection); err != nil {
		return "", fmt.Errorf("%w: collection %s", ErrInvalidCollection, err)
	}
	if err := validation.Segment(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, err)
	}
	return filepath.Join(a.cfg.ArchiveDir(), collection, id+a.store.Extension()), nil
}

// Collections returns the names of the collection directories that exist
// on disk, sorted.
func (a *Archiver) Collections() ([]string, error) {
	return a.store.ListDirs(a.cfg.ArchiveDir())
}

// ClearAll removes every archived collection in one step. Failures are
// logged; use TryClearAll to observe them.
func (a *Archiver) ClearAll() {
	_ = a.TryClearAll()
}

// TryClearAll removes the archive directory and everything below it. A
// missing directory is a quiet success, so calling it twice is harmless.
func (a *Archiver) TryClearAll() error {
	dir := a.cfg.ArchiveDir()
	err := a.store.RemoveAll(dir)
	a.metrics.observe("", opClear, err)
	if err != nil {
		a.logger.Error("failed to clear archives", "archive_dir", dir, "error", err)
		return err
	}
	a.logger.Debug("archives cleared", "archive_dir", dir)
	return nil
}
