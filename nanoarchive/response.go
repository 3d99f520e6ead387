package nanoarchive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ResponseObject is one decoded JSON object of a network response. Numbers
// are json.Number when produced by ParseResponse.
type ResponseObject = map[string]any

// ResponseDecodeFunc builds an entity from a response object
type ResponseDecodeFunc[T any] func(ResponseObject) (T, error)

// ResponseBridge builds entities from network responses and archives them
// in a collection as they are built.
type ResponseBridge[T Entity] struct {
	collection *Collection[T]
	decode     ResponseDecodeFunc[T]
}

// NewResponseBridge creates a bridge that decodes responses with decode and
// archives the results in c.
func NewResponseBridge[T Entity](c *Collection[T], decode ResponseDecodeFunc[T]) (*ResponseBridge[T], error) {
	if c == nil || decode == nil {
		return nil, fmt.Errorf("%w: response bridge needs a collection and a decoder", ErrInvalidCollection)
	}
	return &ResponseBridge[T]{collection: c, decode: decode}, nil
}

// Collection returns the collection entities are archived in
func (b *ResponseBridge[T]) Collection() *Collection[T] {
	return b.collection
}

// BuildAndCache decodes obj and, when shouldCache is set, archives the
// entity before returning it. A decode failure yields false and archives
// nothing. Archive failures are logged and do not affect the result.
func (b *ResponseBridge[T]) BuildAndCache(obj ResponseObject, shouldCache bool) (T, bool) {
	e, err := b.TryBuildAndCache(obj, shouldCache)
	if err != nil && !errors.Is(err, ErrDecode) {
		// The entity was built; only archiving it failed
		return e, true
	}
	return e, err == nil
}

// TryBuildAndCache is BuildAndCache with errors. A decode failure wraps
// ErrDecode and returns the zero entity; an archive failure returns the
// built entity together with the store error.
func (b *ResponseBridge[T]) TryBuildAndCache(obj ResponseObject, shouldCache bool) (T, error) {
	c := b.collection

	e, err := b.decode(obj)
	if err != nil {
		var zero T
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		c.archiver.metrics.observe(c.name, opBuild, err)
		c.logger.Warn("failed to build entity from response", "error", err)
		return zero, err
	}
	c.archiver.metrics.observe(c.name, opBuild, nil)

	if shouldCache {
		if err := c.TryStore(e); err != nil {
			return e, err
		}
	}
	return e, nil
}

// BuildAndCacheCollection builds and archives every object in order,
// leaving out the ones that fail to decode.
func (b *ResponseBridge[T]) BuildAndCacheCollection(objs []ResponseObject) []T {
	entities := make([]T, 0, len(objs))
	for _, obj := range objs {
		if e, ok := b.BuildAndCache(obj, true); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// BuildAndCacheCollectionFromKey reads obj[key] as a list of objects and
// builds and archives each of them. A missing or mistyped key yields no
// entities; list elements that are not objects are skipped.
func (b *ResponseBridge[T]) BuildAndCacheCollectionFromKey(obj ResponseObject, key string) []T {
	return b.BuildAndCacheCollection(ObjectsAt(obj, key))
}

// ObjectsAt returns the objects listed under obj[key]
func ObjectsAt(obj ResponseObject, key string) []ResponseObject {
	switch list := obj[key].(type) {
	case []ResponseObject:
		return list
	case []any:
		objs := make([]ResponseObject, 0, len(list))
		for _, item := range list {
			if o, ok := item.(map[string]any); ok && o != nil {
				objs = append(objs, o)
			}
		}
		return objs
	default:
		return nil
	}
}

// ParseResponse decodes a JSON object
func ParseResponse(data []byte) (ResponseObject, error) {
	var obj ResponseObject
	if err := decodeJSON(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("failed to parse response: expected an object, got null")
	}
	return obj, nil
}

// ParseResponseList decodes a JSON array of objects
func ParseResponseList(data []byte) ([]ResponseObject, error) {
	var objs []ResponseObject
	if err := decodeJSON(data, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("failed to parse response: unexpected data after the top-level value")
	}
	return nil
}
