// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnType is a declared scalar type for a schema column.
type ColumnType string

const (
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
)

// SchemaColumn pairs a column name with its declared type. Order matters:
// it is the canonical column order for validated data.
type SchemaColumn struct {
	Name string
	Type ColumnType
}

// Schema is the single source of truth for column presence and dtype
// coercion. It is loaded once per validation run.
type Schema struct {
	Columns []SchemaColumn `yaml:"-"`

	// TargetColumn names the label column. It must appear in Columns.
	TargetColumn string `yaml:"target_column"`
}

// schemaFile mirrors the on-disk layout: a list of single-entry
// {name: type} maps, the format the original schema file used.
type schemaFile struct {
	Columns      []map[string]string `yaml:"columns"`
	TargetColumn string              `yaml:"target_column"`
}

// LoadSchema reads and validates a dataset schema from YAML.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return ParseSchema(data)
}

// ParseSchema parses schema YAML from memory.
func ParseSchema(data []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(file.Columns) == 0 {
		return nil, fmt.Errorf("schema declares no columns")
	}

	schema := &Schema{TargetColumn: file.TargetColumn}
	seen := make(map[string]struct{}, len(file.Columns))
	for i, entry := range file.Columns {
		if len(entry) != 1 {
			return nil, fmt.Errorf("schema column %d: want exactly one {name: type} pair, got %d", i, len(entry))
		}
		for name, typ := range entry {
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("schema column %q declared twice", name)
			}
			seen[name] = struct{}{}
			ct := ColumnType(typ)
			if ct != TypeInt64 && ct != TypeFloat64 {
				return nil, fmt.Errorf("schema column %q: unsupported type %q", name, typ)
			}
			schema.Columns = append(schema.Columns, SchemaColumn{Name: name, Type: ct})
		}
	}

	if schema.TargetColumn == "" {
		return nil, fmt.Errorf("schema missing target_column")
	}
	if _, ok := seen[schema.TargetColumn]; !ok {
		return nil, fmt.Errorf("target_column %q not declared in columns", schema.TargetColumn)
	}
	return schema, nil
}

// ColumnNames returns the declared column names in schema order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// FeatureColumns returns the declared columns minus the target, in schema
// order.
func (s *Schema) FeatureColumns() []string {
	names := make([]string, 0, len(s.Columns)-1)
	for _, c := range s.Columns {
		if c.Name != s.TargetColumn {
			names = append(names, c.Name)
		}
	}
	return names
}

// TypeOf returns the declared type for a column and whether it exists.
func (s *Schema) TypeOf(name string) (ColumnType, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}
