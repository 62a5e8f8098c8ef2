package mapper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a mapping table from a YAML file and validates it. Used
// to override the default table for web databases with renamed columns.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping table: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse mapping table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTable writes a table as YAML, used by `config init` to give users a
// starting point to edit.
func SaveTable(path string, t *Table) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode mapping table: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write mapping table: %w", err)
	}
	return nil
}
