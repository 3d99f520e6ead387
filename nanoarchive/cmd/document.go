package main

import (
	"encoding/json"
	"fmt"

	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/arthur-debert/nanoarchive/record"
)

// document is an untyped archive entry: the CLI does not know the entity
// types of the applications whose archives it inspects, so every file is
// handled as its raw record.
type document struct {
	id  string
	rec record.Record
}

func (d document) ArchiveID() string            { return d.id }
func (d document) ArchiveRecord() record.Record { return d.rec }

// decodeDocument accepts any record. The id is taken from the "id" key
// when there is one; loads by id do not need it.
func decodeDocument(r record.Record) (document, error) {
	id, _ := r.GetString("id")
	return document{id: id, rec: r}, nil
}

// documentResponseDecoder builds documents from response objects, taking
// the identifier from idField. Numeric identifiers are accepted.
func documentResponseDecoder(idField string) nanoarchive.ResponseDecodeFunc[document] {
	return func(obj nanoarchive.ResponseObject) (document, error) {
		var id string
		switch v := obj[idField].(type) {
		case string:
			id = v
		case json.Number:
			id = v.String()
		case nil:
			return document{}, fmt.Errorf("missing %q field", idField)
		default:
			return document{}, fmt.Errorf("field %q is %T, want string or number", idField, v)
		}
		if id == "" {
			return document{}, fmt.Errorf("field %q is empty", idField)
		}

		rec, err := record.FromMap(obj)
		if err != nil {
			return document{}, err
		}
		return document{id: id, rec: rec}, nil
	}
}
