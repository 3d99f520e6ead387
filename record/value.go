package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// floatTag marks the JSON object form of a float JSON numbers cannot hold:
// {"$float": "NaN"}, {"$float": "+Inf"} or {"$float": "-Inf"}.
const floatTag = "$float"

// Kind identifies which variant a Value holds.
type Kind int

const (
	// Invalid is the kind of the zero Value. It cannot be encoded.
	Invalid Kind = iota
	StringKind
	IntKind
	FloatKind
	BoolKind
	RecordKind
	ListKind
)

func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case RecordKind:
		return "record"
	case ListKind:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a closed tagged variant: a scalar (string, int, float, bool), a
// nested Record, or an ordered list of Values. Values are immutable; the
// accessors never hand out storage that aliases the original.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	r    Record
	l    []Value
}

// String returns a string Value.
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: IntKind, i: i} }

// Float returns a floating point Value.
func Float(f float64) Value { return Value{kind: FloatKind, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Nested wraps a Record as a Value. The record is copied.
func Nested(r Record) Value { return Value{kind: RecordKind, r: r.Clone()} }

// List returns a list Value holding copies of vs in order.
func List(vs ...Value) Value {
	l := make([]Value, len(vs))
	copy(l, vs)
	return Value{kind: ListKind, l: l}
}

// Strings is a convenience for a list of string Values.
func Strings(ss []string) Value {
	l := make([]Value, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return Value{kind: ListKind, l: l}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds any variant.
func (v Value) IsValid() bool { return v.kind != Invalid }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringKind }

// AsInt returns the integer held by v. Floats do not narrow.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == IntKind }

// AsFloat returns the numeric value of v. Integers widen to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case FloatKind:
		return v.f, true
	case IntKind:
		return float64(v.i), true
	}
	return 0, false
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolKind }

// AsRecord returns a copy of the nested record held by v.
func (v Value) AsRecord() (Record, bool) {
	if v.kind != RecordKind {
		return nil, false
	}
	return v.r.Clone(), true
}

// AsList returns a copy of the list held by v.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != ListKind {
		return nil, false
	}
	l := make([]Value, len(v.l))
	copy(l, v.l)
	return l, true
}

// Equal reports deep equality. Kinds must match exactly: Int(1) is not
// equal to Float(1).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case StringKind:
		return v.s == o.s
	case IntKind:
		return v.i == o.i
	case FloatKind:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case BoolKind:
		return v.b == o.b
	case RecordKind:
		return v.r.Equal(o.r)
	case ListKind:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Interface converts v into plain Go values: string, int64, float64, bool,
// map[string]any and []any.
func (v Value) Interface() any {
	switch v.kind {
	case StringKind:
		return v.s
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case BoolKind:
		return v.b
	case RecordKind:
		return v.r.Interface()
	case ListKind:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.Interface()
		}
		return out
	}
	return nil
}

// String renders v for logs and test output.
func (v Value) String() string {
	switch v.kind {
	case StringKind:
		return strconv.Quote(v.s)
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return FormatFloat(v.f)
	case BoolKind:
		return strconv.FormatBool(v.b)
	case RecordKind:
		return v.r.String()
	case ListKind:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return "<invalid>"
}

// FormatFloat renders f so that it always reads back as a float: a
// fraction or exponent is present even for integral values.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

// MarshalJSON encodes v as the natural JSON value. Floats always carry a
// fraction or exponent so the kind survives a round trip; NaN and the
// infinities use the {"$float": ...} object form. Strings and keys that are
// not valid UTF-8 are rejected rather than rewritten.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case StringKind:
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("%w: string %q is not valid UTF-8", ErrUnsupported, v.s)
		}
		return json.Marshal(v.s)
	case IntKind:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case FloatKind:
		if name, ok := nonFiniteName(v.f); ok {
			return json.Marshal(map[string]string{floatTag: name})
		}
		return []byte(FormatFloat(v.f)), nil
	case BoolKind:
		return []byte(strconv.FormatBool(v.b)), nil
	case RecordKind:
		if v.r == nil {
			return []byte("{}"), nil
		}
		for k := range v.r {
			if !utf8.ValidString(k) {
				return nil, fmt.Errorf("%w: key %q is not valid UTF-8", ErrUnsupported, k)
			}
		}
		if _, ok := taggedFloat(v.r.Interface()); ok {
			return nil, fmt.Errorf("%w: record %s reads back as a float", ErrUnsupported, v.r)
		}
		return json.Marshal(map[string]Value(v.r))
	case ListKind:
		if v.l == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.l)
	}
	return nil, fmt.Errorf("%w: invalid value", ErrUnsupported)
}

// UnmarshalJSON decodes any JSON value except null. Number literals with a
// fraction or exponent decode as floats, all others as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, err := fromJSON(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// fromJSON is FromInterface for data written by MarshalJSON: it also turns
// the {"$float": ...} objects back into floats.
func fromJSON(x any) (Value, error) {
	switch t := x.(type) {
	case map[string]any:
		if f, ok := taggedFloat(t); ok {
			return Float(f), nil
		}
		r := make(Record, len(t))
		for k, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			r[k] = v
		}
		return Value{kind: RecordKind, r: r}, nil
	case []any:
		l := make([]Value, len(t))
		for i, e := range t {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			l[i] = v
		}
		return Value{kind: ListKind, l: l}, nil
	}
	return FromInterface(x)
}

func nonFiniteName(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "+Inf", true
	case math.IsInf(f, -1):
		return "-Inf", true
	}
	return "", false
}

// taggedFloat recognizes the object form of a non-finite float
func taggedFloat(m map[string]any) (float64, bool) {
	if len(m) != 1 {
		return 0, false
	}
	name, _ := m[floatTag].(string)
	switch name {
	case "NaN":
		return math.NaN(), true
	case "+Inf":
		return math.Inf(1), true
	case "-Inf":
		return math.Inf(-1), true
	}
	return 0, false
}

// FromInterface converts plain Go data, as produced by encoding/json or a
// response decoder, into a Value. nil and unknown types are rejected.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case Record:
		return Nested(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return fromNumber(t)
	case map[string]any:
		r, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: RecordKind, r: r}, nil
	case []any:
		l := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			l[i] = ev
		}
		return Value{kind: ListKind, l: l}, nil
	case []string:
		return Strings(t), nil
	case nil:
		return Value{}, fmt.Errorf("%w: null", ErrUnsupported)
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, x)
}

func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %s: %v", ErrUnsupported, s, err)
		}
		return Float(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: number %s: %v", ErrUnsupported, s, err)
	}
	return Int(i), nil
}
