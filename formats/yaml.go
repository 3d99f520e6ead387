package formats

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/arthur-debert/nanoarchive/record"
	"gopkg.in/yaml.v3"
)

// YAML stores records as YAML mappings. Scalars carry explicit tags where
// the plain form would resolve to a different kind.
var YAML = &RecordFormat{
	Name:      "yaml",
	Extension: ".yaml",
	Marshal:   marshalYAML,
	Unmarshal: unmarshalYAML,
}

const (
	tagStr   = "!!str"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagBool  = "!!bool"
	tagNull  = "!!null"
)

func marshalYAML(rec record.Record) ([]byte, error) {
	root, err := recordNode(rec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func recordNode(rec record.Record) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range rec.Keys() {
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("%w: key %q is not valid UTF-8", record.ErrUnsupported, k)
		}
		v, err := valueNode(rec[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		n.Content = append(n.Content, scalar(tagStr, k), v)
	}
	return n, nil
}

func valueNode(v record.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case record.StringKind:
		s, _ := v.AsString()
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: string %q is not valid UTF-8", record.ErrUnsupported, s)
		}
		return scalar(tagStr, s), nil
	case record.IntKind:
		i, _ := v.AsInt()
		return scalar(tagInt, strconv.FormatInt(i, 10)), nil
	case record.FloatKind:
		f, _ := v.AsFloat()
		return scalar(tagFloat, yamlFloat(f)), nil
	case record.BoolKind:
		b, _ := v.AsBool()
		return scalar(tagBool, strconv.FormatBool(b)), nil
	case record.RecordKind:
		r, _ := v.AsRecord()
		return recordNode(r)
	case record.ListKind:
		l, _ := v.AsList()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, e := range l {
			en, err := valueNode(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: invalid value", record.ErrUnsupported)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return record.FormatFloat(f)
}

func unmarshalYAML(data []byte) (record.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("failed to parse YAML: empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("failed to parse YAML: document is not a mapping")
	}
	return nodeRecord(root)
}

func nodeRecord(n *yaml.Node) (record.Record, error) {
	rec := make(record.Record, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
		}
		if _, dup := rec[k.Value]; dup {
			return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		val, err := nodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k.Value, err)
		}
		rec[k.Value] = val
	}
	return rec, nil
}

func nodeValue(n *yaml.Node) (record.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		r, err := nodeRecord(n)
		if err != nil {
			return record.Value{}, err
		}
		return record.Nested(r), nil
	case yaml.SequenceNode:
		l := make([]record.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return record.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			l[i] = v
		}
		return record.List(l...), nil
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return record.Value{}, fmt.Errorf("%w: yaml node kind %d", record.ErrUnsupported, n.Kind)
}

func scalarValue(n *yaml.Node) (record.Value, error) {
	switch n.ShortTag() {
	case tagStr:
		return record.String(n.Value), nil
	case tagInt:
		var i int64
		if err := n.Decode(&i); err != nil {
			return record.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return record.Int(i), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return record.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return record.Float(f), nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return record.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return record.Bool(b), nil
	case tagNull:
		return record.Value{}, fmt.Errorf("%w: null at line %d", record.ErrUnsupported, n.Line)
	}
	return record.Value{}, fmt.Errorf("%w: tag %s at line %d", record.ErrUnsupported, n.Tag, n.Line)
}
