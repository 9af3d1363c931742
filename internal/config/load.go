package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses path into a File. Unknown top-level and nested
// fields produce warnings (returned, not fatal) rather than aborting load,
// per spec.md §6.
func Load(path string) (*File, []string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes raw YAML bytes into a File plus any unknown-field warnings.
func Parse(b []byte) (*File, []string, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, nil, fmt.Errorf("config: yaml: %w", err)
	}

	var strict File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var warnings []string
	if err := dec.Decode(&strict); err != nil {
		warnings = append(warnings, err.Error())
	}
	return &f, warnings, nil
}
