package formats

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/arthur-debert/nanoarchive/record"
)

// JSON stores records as indented JSON objects with sorted keys
var JSON = &RecordFormat{
	Name:      "json",
	Extension: ".json",
	Marshal:   marshalJSON,
	Unmarshal: unmarshalJSON,
}

func marshalJSON(rec record.Record) ([]byte, error) {
	if rec == nil {
		rec = record.Record{}
	}
	for k := range rec {
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("failed to marshal JSON: %w: key %q is not valid UTF-8", record.ErrUnsupported, k)
		}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func unmarshalJSON(data []byte) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if rec == nil {
		return nil, errors.New("failed to parse JSON: document is not an object")
	}
	return rec, nil
}
