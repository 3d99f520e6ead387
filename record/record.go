// Package record defines the keyed record: the portable, in-memory form of
// an archived entity. A Record maps string keys to Values, and a Value is a
// closed set of variants (scalars, nested records and lists), so encoders
// and decoders can switch exhaustively instead of type-asserting on any.
package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMissingKey is returned when a required key is absent.
	ErrMissingKey = errors.New("missing key")

	// ErrWrongKind is returned when a key holds a different variant than requested.
	ErrWrongKind = errors.New("wrong kind")

	// ErrUnsupported is returned when data cannot be represented as a Value.
	ErrUnsupported = errors.New("unsupported value")
)

// Record is a keyed record. Keys are unique by construction.
type Record map[string]Value

// FromMap converts a decoded JSON object into a Record. Keys holding null
// are left out, so a null field reads the same as an absent one; nested
// objects are treated the same way.
func FromMap(m map[string]any) (Record, error) {
	r := make(Record, len(m))
	for k, x := range m {
		if x == nil {
			continue
		}
		v, err := FromInterface(x)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		r[k] = v
	}
	return r, nil
}

// Lookup returns the value stored under key.
func (r Record) Lookup(key string) (Value, bool) {
	v, ok := r[key]
	return v, ok
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// GetString returns the string stored under key.
func (r Record) GetString(key string) (string, bool) { return r[key].AsString() }

// GetInt returns the integer stored under key.
func (r Record) GetInt(key string) (int64, bool) { return r[key].AsInt() }

// GetFloat returns the number stored under key, widening integers.
func (r Record) GetFloat(key string) (float64, bool) { return r[key].AsFloat() }

// GetBool returns the boolean stored under key.
func (r Record) GetBool(key string) (bool, bool) { return r[key].AsBool() }

// GetRecord returns a copy of the nested record stored under key.
func (r Record) GetRecord(key string) (Record, bool) { return r[key].AsRecord() }

// GetList returns a copy of the list stored under key.
func (r Record) GetList(key string) ([]Value, bool) { return r[key].AsList() }

// GetStrings returns the list under key when every element is a string.
func (r Record) GetStrings(key string) ([]string, bool) {
	l, ok := r.GetList(key)
	if !ok {
		return nil, false
	}
	out := make([]string, len(l))
	for i, v := range l {
		s, ok := v.AsString()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// RequireString returns the string under key or a descriptive error.
func (r Record) RequireString(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s is %s, want string", ErrWrongKind, key, v.Kind())
	}
	return s, nil
}

// RequireInt returns the integer under key or a descriptive error.
func (r Record) RequireInt(key string) (int64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, want int", ErrWrongKind, key, v.Kind())
	}
	return i, nil
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both records hold the same keys with equal values.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for k, v := range r {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a copy of r. Values are immutable so a shallow copy of the
// map is enough.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Interface converts r into a map of plain Go values.
func (r Record) Interface() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}

// String renders r with sorted keys.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%s", k, r[k].String())
	}
	b.WriteByte('}')
	return b.String()
}
