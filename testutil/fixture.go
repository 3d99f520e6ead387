// Package testutil provides the Widget entity and a response fixture shared
// by the archive tests.
package testutil

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/nanoarchive/record"
)

// Part is a nested component of a Widget
type Part struct {
	Name  string
	Count int64
}

func (p Part) ArchiveRecord() record.Record {
	return record.Record{"name": record.String(p.Name), "count": record.Int(p.Count)}
}

// DecodePart requires a name; a missing count reads as 0
func DecodePart(r record.Record) (Part, error) {
	name, err := r.RequireString("name")
	if err != nil {
		return Part{}, err
	}
	count, _ := r.GetInt("count")
	return Part{Name: name, Count: count}, nil
}

// Widget is the archived entity used throughout the tests. Zero-valued
// optional fields are left out of its record, so a Widget with only an ID
// and a Name encodes to {"id", "name"}.
type Widget struct {
	ID       string
	Name     string
	Price    float64
	Quantity int64
	Active   bool
	Tags     []string
	Frame    record.Rect
	Parts    []Part
}

// ArchiveID implements nanoarchive.Identifiable
func (w Widget) ArchiveID() string {
	return w.ID
}

// ArchiveRecord implements nanoarchive.Encodable
func (w Widget) ArchiveRecord() record.Record {
	r := record.Record{
		"id":   record.String(w.ID),
		"name": record.String(w.Name),
	}
	if w.Price != 0 {
		r["price"] = record.Float(w.Price)
	}
	if w.Quantity != 0 {
		r["quantity"] = record.Int(w.Quantity)
	}
	if w.Active {
		r["active"] = record.Bool(true)
	}
	if len(w.Tags) > 0 {
		r["tags"] = record.Strings(w.Tags)
	}
	if w.Frame != (record.Rect{}) {
		r["frame"] = record.Nested(w.Frame.ArchiveRecord())
	}
	if len(w.Parts) > 0 {
		r["parts"] = record.EncodeList(w.Parts, Part.ArchiveRecord)
	}
	return r
}

// DecodeWidget rebuilds a Widget. The id and name are required; parts that
// fail to decode are dropped and a malformed frame reads as the zero Rect.
func DecodeWidget(r record.Record) (Widget, error) {
	id, err := r.RequireString("id")
	if err != nil {
		return Widget{}, err
	}
	if id == "" {
		return Widget{}, errors.New("widget id is empty")
	}
	name, err := r.RequireString("name")
	if err != nil {
		return Widget{}, err
	}

	w := Widget{ID: id, Name: name}
	w.Price, _ = r.GetFloat("price")
	w.Quantity, _ = r.GetInt("quantity")
	w.Active, _ = r.GetBool("active")
	w.Tags, _ = r.GetStrings("tags")
	if frame, ok := r.GetRecord("frame"); ok {
		w.Frame, _ = record.DecodeRect(frame)
	}
	if parts := record.DecodeList(r, "parts", DecodePart); len(parts) > 0 {
		w.Parts = parts
	}
	return w, nil
}

// DecodeWidgetResponse builds a Widget from a decoded JSON response object
func DecodeWidgetResponse(obj map[string]any) (Widget, error) {
	r, err := record.FromMap(obj)
	if err != nil {
		return Widget{}, fmt.Errorf("failed to convert response: %w", err)
	}
	return DecodeWidget(r)
}

//go:embed testdata/catalog.json
var catalogJSON []byte

// Catalog is the response fixture in testdata/catalog.json: a listing with
// three valid widgets and two entries that do not decode.
type Catalog struct {
	// Raw is the fixture file content
	Raw []byte

	// Sprocket, Gear and Flange are the widgets the listing decodes to
	Sprocket Widget // ID: "sprocket-1"
	Gear     Widget // ID: "gear-7"
	Flange   Widget // ID: "flange-3"

	// Widgets holds the decodable widgets in listing order
	Widgets []Widget
}

// LoadCatalog returns the response fixture together with the widgets it
// is expected to decode to.
func LoadCatalog(t testing.TB) *Catalog {
	t.Helper()

	var probe map[string]any
	if err := json.Unmarshal(catalogJSON, &probe); err != nil {
		t.Fatalf("failed to parse catalog fixture: %v", err)
	}

	c := &Catalog{
		Raw: catalogJSON,
		Sprocket: Widget{
			ID:       "sprocket-1",
			Name:     "Sprocket",
			Price:    4.25,
			Quantity: 12,
			Active:   true,
			Tags:     []string{"metal", "round"},
			Frame: record.Rect{
				Origin: record.Point{X: 1, Y: 2},
				Size:   record.Size{Width: 30, Height: 30},
			},
		},
		Gear: Widget{
			ID:    "gear-7",
			Name:  "Gear",
			Price: 10,
			Parts: []Part{{Name: "tooth", Count: 24}, {Name: "axle", Count: 1}},
		},
		Flange: Widget{
			ID:   "flange-3",
			Name: "Flange",
		},
	}
	c.Widgets = []Widget{c.Sprocket, c.Gear, c.Flange}
	return c
}
