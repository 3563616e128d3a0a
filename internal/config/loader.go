// Package config loads desired-state documents. The document format is a
// plain YAML resource list; parsing stops at typed ir.Resources, the
// engine never sees YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fabrik-io/fabrik/internal/ir"
)

type document struct {
	Resources []*ir.Resource `yaml:"resources"`
}

// Load reads and parses a desired-state document from a file.
func Load(path string) ([]*ir.Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	resources, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return resources, nil
}

// Parse decodes a desired-state document. Attribute values of the form
// ref://kind/name/attribute become ir.Ref references.
func Parse(raw []byte) ([]*ir.Resource, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	for i, res := range doc.Resources {
		if res.Kind == "" {
			return nil, fmt.Errorf("resource %d: missing kind", i)
		}
		if res.Name == "" {
			return nil, fmt.Errorf("resource %d (%s): missing name", i, res.Kind)
		}
		res.Attributes = ir.NormalizeAttributes(res.Attributes)
	}
	return doc.Resources, nil
}
