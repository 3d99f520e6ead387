package formats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoarchive/record"
)

// RecordFormat defines how a record is serialized to and from archive files
type RecordFormat struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".json")
	Extension string

	// Marshal converts a record into file contents
	Marshal func(rec record.Record) ([]byte, error)

	// Unmarshal parses file contents back into a record
	Unmarshal func(data []byte) (record.Record, error)
}

// Default is the name of the format used when none is configured
const Default = "json"

// registry holds all available record formats
var registry = make(map[string]*RecordFormat)

func init() {
	for _, f := range []*RecordFormat{JSON, YAML} {
		if err := Register(f); err != nil {
			panic(err)
		}
	}
}

// Register adds a new record format to the registry
func Register(format *RecordFormat) error {
	// Validate format name (alphanumeric, dashes, underscores, lowercase)
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}
	if format.Marshal == nil || format.Unmarshal == nil {
		return fmt.Errorf("format %q must define Marshal and Unmarshal", format.Name)
	}

	// Normalize extension
	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	// Check if format already exists
	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a record format by name
func Get(name string) (*RecordFormat, error) {
	format, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown format %q", name)
	}
	return format, nil
}

// List returns all registered format names in sorted order
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
