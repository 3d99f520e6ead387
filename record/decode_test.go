package record_test

import (
	"errors"
	"testing"

	"github.com/arthur-debert/nanoarchive/record"
	"github.com/google/go-cmp/cmp"
)

type part struct {
	SKU   string
	Count int64
}

func (p part) record() record.Record {
	return record.Record{"sku": record.String(p.SKU), "count": record.Int(p.Count)}
}

func decodePart(r record.Record) (part, error) {
	sku, err := r.RequireString("sku")
	if err != nil {
		return part{}, err
	}
	count, err := r.RequireInt("count")
	if err != nil {
		return part{}, err
	}
	return part{SKU: sku, Count: count}, nil
}

func TestDecodeNested(t *testing.T) {
	r := record.Record{
		"main":   record.Nested(part{SKU: "a", Count: 1}.record()),
		"broken": record.Nested(record.Record{"sku": record.String("b")}),
		"scalar": record.String("nope"),
	}

	got, err := record.DecodeNested(r, "main", decodePart)
	if err != nil {
		t.Fatalf("DecodeNested(main): %v", err)
	}
	if got != (part{SKU: "a", Count: 1}) {
		t.Errorf("DecodeNested(main) = %+v", got)
	}

	tests := []struct {
		key  string
		want error
	}{
		{"missing", record.ErrMissingKey},
		{"scalar", record.ErrWrongKind},
		{"broken", record.ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if _, err := record.DecodeNested(r, tt.key, decodePart); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeListDropsFailures(t *testing.T) {
	parts := []part{{"a", 1}, {"b", 2}, {"c", 3}}
	r := record.Record{"parts": record.EncodeList(parts, part.record)}

	// Corrupt the middle element and add a scalar.
	l, _ := r.GetList("parts")
	l[1] = record.Nested(record.Record{"sku": record.Int(9)})
	l = append(l, record.String("noise"))
	r["parts"] = record.List(l...)

	got := record.DecodeList(r, "parts", decodePart)
	want := []part{{"a", 1}, {"c", 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeList mismatch (-want +got):\n%s", diff)
	}

	if got := record.DecodeList(r, "missing", decodePart); got == nil || len(got) != 0 {
		t.Errorf("DecodeList(missing) = %#v, want empty slice", got)
	}
}

func TestRectCodec(t *testing.T) {
	rect := record.Rect{Origin: record.Point{X: 1, Y: 2.5}, Size: record.Size{Width: 10, Height: 20}}

	got, err := record.DecodeRect(rect.ArchiveRecord())
	if err != nil {
		t.Fatalf("DecodeRect: %v", err)
	}
	if got != rect {
		t.Errorf("round trip = %+v, want %+v", got, rect)
	}

	malformed := []record.Record{
		{},
		{"origin": record.String("0,0")},
		{"origin": record.Nested(record.Record{}), "size": record.Int(3)},
	}
	for _, r := range malformed {
		got, err := record.DecodeRect(r)
		if err != nil || got != (record.Rect{}) {
			t.Errorf("DecodeRect(%v) = %+v, %v; want zero rect", r, got, err)
		}
	}

	// Integer coordinates widen instead of failing.
	p, _ := record.DecodePoint(record.Record{"x": record.Int(4), "y": record.String("bad")})
	if p != (record.Point{X: 4}) {
		t.Errorf("DecodePoint = %+v", p)
	}
}
