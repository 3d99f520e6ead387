package nanoarchive

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/arthur-debert/nanoarchive/internal/validation"
	"github.com/arthur-debert/nanoarchive/record"
)

// Identifiable is implemented by entities that have a stable, non-empty
// identifier. The identifier names the archive file.
type Identifiable interface {
	ArchiveID() string
}

// Encodable is implemented by entities that can always be turned into a
// record.
type Encodable interface {
	ArchiveRecord() record.Record
}

// Entity is the constraint on archived types
type Entity interface {
	Identifiable
	Encodable
}

// DecodeFunc rebuilds an entity from its record. It fails when required
// keys are missing or malformed. For every entity e,
// decode(e.ArchiveRecord()) must equal e on the archived fields.
type DecodeFunc[T any] func(record.Record) (T, error)

// CollectionOption configures a Collection
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	name string
}

// WithCollectionName overrides the directory name of a collection, which
// defaults to the Go type name of the entity.
func WithCollectionName(name string) CollectionOption {
	return func(o *collectionOptions) {
		o.name = name
	}
}

// Collection archives entities of one type in one directory of an Archiver.
// It is safe for concurrent use.
type Collection[T Entity] struct {
	archiver *Archiver
	name     string
	decode   DecodeFunc[T]
	logger   *slog.Logger
}

// NewCollection binds entity type T to archiver a
func NewCollection[T Entity](a *Archiver, decode DecodeFunc[T], opts ...CollectionOption) (*Collection[T], error) {
	if a == nil {
		return nil, fmt.Errorf("%w: archiver is nil", ErrInvalidCollection)
	}
	if decode == nil {
		return nil, fmt.Errorf("%w: decode function is nil", ErrInvalidCollection)
	}

	o := collectionOptions{name: typeName[T]()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validation.Segment(o.name); err != nil {
		return nil, fmt.Errorf("%w: name %s", ErrInvalidCollection, err)
	}

	return &Collection[T]{
		archiver: a,
		name:     o.name,
		decode:   decode,
		logger:   a.logger.With("collection", o.name),
	}, nil
}

// typeName returns the name of T without pointers or type arguments
func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// Name returns the collection directory name
func (c *Collection[T]) Name() string {
	return c.name
}

// Archiver returns the archiver the collection writes to
func (c *Collection[T]) Archiver() *Archiver {
	return c.archiver
}

// In returns the same collection bound to another archiver, typically one
// derived with WithRoot or WithSubdirectory.
func (c *Collection[T]) In(a *Archiver) *Collection[T] {
	next := *c
	next.archiver = a
	next.logger = a.logger.With("collection", c.name)
	return &next
}

// Dir returns the collection directory
func (c *Collection[T]) Dir() string {
	return filepath.Join(c.archiver.ArchiveDir(), c.name)
}

// Location returns the archive file path for id
func (c *Collection[T]) Location(id string) (string, error) {
	return c.archiver.Location(c.name, id)
}

// Store archives e, replacing any previous archive with the same id.
// Failures are logged, not returned; use TryStore to observe them.
func (c *Collection[T]) Store(e T) {
	_ = c.TryStore(e)
}

// TryStore archives e and reports whether it was persisted
func (c *Collection[T]) TryStore(e T) error {
	id := e.ArchiveID()
	err := c.store(id, e.ArchiveRecord())
	c.archiver.metrics.observe(c.name, opStore, err)
	if err != nil {
		c.logger.Error("failed to store archive", "id", id, "error", err)
		return err
	}
	c.logger.Debug("archive stored", "id", id)
	return nil
}

func (c *Collection[T]) store(id string, rec record.Record) error {
	path, err := c.Location(id)
	if err != nil {
		return err
	}
	if err := c.archiver.store.EnsureDirectory(c.Dir()); err != nil {
		return err
	}
	return c.archiver.store.Write(path, rec)
}

// Load returns the entity archived under id. Missing, corrupt and
// undecodable archives all yield false; use TryLoad to tell them apart.
func (c *Collection[T]) Load(id string) (T, bool) {
	e, err := c.TryLoad(id)
	return e, err == nil
}

// TryLoad returns the entity archived under id. The error wraps
// ErrNotFound, ErrMalformed, ErrDecode, ErrInvalidID or ErrRead. Loading
// never creates directories.
func (c *Collection[T]) TryLoad(id string) (T, error) {
	e, err := c.load(id)
	c.archiver.metrics.observe(c.name, opLoad, err)

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		c.logger.Debug("archive not found", "id", id)
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrDecode), errors.Is(err, ErrInvalidID):
		c.logger.Warn("unusable archive", "id", id, "error", err)
	default:
		c.logger.Error("failed to load archive", "id", id, "error", err)
	}
	return e, err
}

func (c *Collection[T]) load(id string) (T, error) {
	var zero T

	path, err := c.Location(id)
	if err != nil {
		return zero, err
	}
	rec, err := c.archiver.store.Read(path)
	if err != nil {
		return zero, err
	}
	e, err := c.decode(rec)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return e, nil
}

// Delete removes the archive of e. Failures are logged, not returned.
func (c *Collection[T]) Delete(e T) {
	_ = c.TryDeleteID(e.ArchiveID())
}

// TryDelete removes the archive of e. Deleting something that was never
// archived is not an error.
func (c *Collection[T]) TryDelete(e T) error {
	return c.TryDeleteID(e.ArchiveID())
}

// DeleteID removes the archive stored under id. Failures are logged, not
// returned.
func (c *Collection[T]) DeleteID(id string) {
	_ = c.TryDeleteID(id)
}

// TryDeleteID removes the archive stored under id
func (c *Collection[T]) TryDeleteID(id string) error {
	path, err := c.Location(id)
	if err == nil {
		err = c.archiver.store.Delete(path)
	}
	c.archiver.metrics.observe(c.name, opDelete, err)
	if err != nil {
		c.logger.Error("failed to delete archive", "id", id, "error", err)
		return err
	}
	c.logger.Debug("archive deleted", "id", id)
	return nil
}

// Exists reports whether an archive file is stored under id. It does not
// check that the file decodes.
func (c *Collection[T]) Exists(id string) bool {
	path, err := c.Location(id)
	if err != nil {
		return false
	}
	return c.archiver.store.Exists(path)
}

// IDs returns the identifiers archived in the collection, sorted. A
// collection that was never written to has no identifiers.
func (c *Collection[T]) IDs() ([]string, error) {
	return c.archiver.store.List(c.Dir())
}

// LoadCollection loads every id in order, leaving out the ones that fail
// to load.
func (c *Collection[T]) LoadCollection(ids []string) []T {
	entities := make([]T, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.Load(id); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// StoreCollection archives every entity. One failure does not stop the
// others from being attempted.
func (c *Collection[T]) StoreCollection(entities []T) {
	_ = c.TryStoreCollection(entities)
}

// TryStoreCollection archives every entity and joins the failures
func (c *Collection[T]) TryStoreCollection(entities []T) error {
	var errs []error
	for _, e := range entities {
		if err := c.TryStore(e); err != nil {
			errs = append(errs, fmt.Errorf("failed to store %q: %w", e.ArchiveID(), err))
		}
	}
	return errors.Join(errs...)
}
