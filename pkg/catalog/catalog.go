// Package catalog holds the display-field schema and the severity table used
// by the renderer. Both are loaded once at startup and never mutated.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/fields.yaml
var defaultFields []byte

//go:embed defaults/priorities.yaml
var defaultPriorities []byte

// Field is one row of the notification table
type Field struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// FieldCatalog is the ordered set of fields a notification shows
type FieldCatalog []Field

// Priority is the display form of a severity key
type Priority struct {
	Label      string `yaml:"label"`
	StyleClass string `yaml:"style_class"`
}

// PriorityCatalog maps severity keys to their display form
type PriorityCatalog struct {
	Default Priority            `yaml:"default"`
	Entries map[string]Priority `yaml:"priorities"`
}

// Resolve returns the entry for key, or the default entry when key is unknown
func (p PriorityCatalog) Resolve(key string) Priority {
	if pr, ok := p.Entries[key]; ok {
		return pr
	}
	return p.Default
}

// LoadFields reads a field catalog from path. An empty path loads the
// built-in catalog.
func LoadFields(path string) (FieldCatalog, error) {
	data, err := readOrDefault(path, defaultFields)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Fields FieldCatalog `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse field catalog: %w", err)
	}
	if err := doc.Fields.Validate(); err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// LoadPriorities reads a priority catalog from path. An empty path loads the
// built-in catalog.
func LoadPriorities(path string) (PriorityCatalog, error) {
	data, err := readOrDefault(path, defaultPriorities)
	if err != nil {
		return PriorityCatalog{}, err
	}
	var pc PriorityCatalog
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return PriorityCatalog{}, fmt.Errorf("failed to parse priority catalog: %w", err)
	}
	if err := pc.Validate(); err != nil {
		return PriorityCatalog{}, err
	}
	return pc, nil
}

// Validate checks that the catalog is non-empty and keys are unique
func (f FieldCatalog) Validate() error {
	if len(f) == 0 {
		return errors.New("field catalog is empty")
	}
	seen := make(map[string]bool, len(f))
	for i, field := range f {
		if field.Key == "" || field.Label == "" {
			return fmt.Errorf("field catalog entry %d: key and label are required", i)
		}
		if seen[field.Key] {
			return fmt.Errorf("field catalog: duplicate key %q", field.Key)
		}
		seen[field.Key] = true
	}
	return nil
}

// Validate checks that the catalog has a usable default entry
func (p PriorityCatalog) Validate() error {
	if p.Default.Label == "" || p.Default.StyleClass == "" {
		return errors.New("priority catalog: default entry needs label and style_class")
	}
	for key, pr := range p.Entries {
		if pr.Label == "" {
			return fmt.Errorf("priority catalog: entry %q has no label", key)
		}
	}
	return nil
}

func readOrDefault(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return data, nil
}
