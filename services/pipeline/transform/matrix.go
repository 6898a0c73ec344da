// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Matrix is a dense labeled dataset persisted between pipeline stages.
// The last column is always the target.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Features returns every row without its trailing target column.
func (m *Matrix) Features() [][]float64 {
	out := make([][]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[:len(row)-1]
	}
	return out
}

// Labels returns the trailing target column.
func (m *Matrix) Labels() []float64 {
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[len(row)-1]
	}
	return out
}

// FeatureColumns returns the column names without the target.
func (m *Matrix) FeatureColumns() []string {
	return m.Columns[:len(m.Columns)-1]
}

// SaveMatrix gob-encodes a matrix, creating parent directories.
func SaveMatrix(path string, m *Matrix) error {
	if len(m.Columns) < 2 {
		return fmt.Errorf("matrix needs at least one feature and the target, got %d columns", len(m.Columns))
	}
	for i, row := range m.Rows {
		if len(row) != len(m.Columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(m.Columns))
		}
	}
	return encodeGob(path, m)
}

// LoadMatrix reads a matrix written by SaveMatrix.
func LoadMatrix(path string) (*Matrix, error) {
	var m Matrix
	if err := decodeGob(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SavePreprocessor persists a fitted imputer.
func SavePreprocessor(path string, imp *KNNImputer) error {
	if imp.Reference == nil {
		return fmt.Errorf("refusing to persist an unfitted preprocessor")
	}
	return encodeGob(path, imp)
}

// LoadPreprocessor reads an imputer written by SavePreprocessor.
func LoadPreprocessor(path string) (*KNNImputer, error) {
	var imp KNNImputer
	if err := decodeGob(path, &imp); err != nil {
		return nil, err
	}
	return &imp, nil
}

func encodeGob(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func decodeGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
