package record

import "fmt"

// DecodeNested decodes the nested record stored under key. It fails when
// the key is absent, is not a record, or the nested decode fails.
func DecodeNested[T any](r Record, key string, decode func(Record) (T, error)) (T, error) {
	var zero T
	v, ok := r[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	nested, ok := v.AsRecord()
	if !ok {
		return zero, fmt.Errorf("%w: %s is %s, want record", ErrWrongKind, key, v.Kind())
	}
	out, err := decode(nested)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

// DecodeList decodes the list of records stored under key. A missing or
// mistyped key yields an empty result; elements that fail to decode are
// dropped and the order of the rest is kept.
func DecodeList[T any](r Record, key string, decode func(Record) (T, error)) []T {
	l, ok := r.GetList(key)
	if !ok {
		return []T{}
	}
	records := make([]Record, 0, len(l))
	for _, v := range l {
		if nested, ok := v.AsRecord(); ok {
			records = append(records, nested)
		}
	}
	return DecodeAll(records, decode)
}

// DecodeAll decodes each record, dropping failures and keeping order.
func DecodeAll[T any](records []Record, decode func(Record) (T, error)) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		item, err := decode(rec)
		if err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// EncodeList encodes items into a list of nested records.
func EncodeList[T any](items []T, encode func(T) Record) Value {
	l := make([]Value, len(items))
	for i, item := range items {
		l[i] = Value{kind: RecordKind, r: encode(item)}
	}
	return Value{kind: ListKind, l: l}
}
