// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tabular implements the column-oriented table the pipeline stages
// pass between each other.
//
// A Frame holds raw CSV cells; typed views are produced on demand so each
// stage can run its own coercion pass against the declared schema. Missing
// values ("", "na", "NaN" and friends) surface as NaN in numeric views,
// which is what the KNN imputer keys on.
package tabular

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// missingSentinels are cell values treated as missing when coercing to
// numeric. Matches the document-store export convention of the source data.
var missingSentinels = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
}

// Frame is a column-ordered table of raw string cells.
type Frame struct {
	cols  []string
	cells [][]string // row-major, len(cells[i]) == len(cols)
}

// New builds a Frame from a header and row-major cells. The cells slice is
// taken over by the Frame; callers must not mutate it afterwards.
func New(cols []string, cells [][]string) (*Frame, error) {
	for i, row := range cells {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(cols))
		}
	}
	return &Frame{cols: append([]string(nil), cols...), cells: cells}, nil
}

// ReadCSV loads a Frame from a headered CSV file.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv %s has no header row", path)
	}
	return New(records[0], records[1:])
}

// WriteCSV persists the Frame with a header row, creating parent
// directories as needed.
func (f *Frame) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(f.cols); err != nil {
		return err
	}
	for _, row := range f.cells {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Columns returns the column names in order. The slice is a copy.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return len(f.cells) }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	return f.index(name) >= 0
}

func (f *Frame) index(name string) int {
	for i, c := range f.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the raw cells of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	idx := f.index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(f.cells))
	for i, row := range f.cells {
		out[i] = row[idx]
	}
	return out, nil
}

// SetColumn replaces the cells of an existing column.
func (f *Frame) SetColumn(name string, values []string) error {
	idx := f.index(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	if len(values) != len(f.cells) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(f.cells))
	}
	for i := range f.cells {
		f.cells[i][idx] = values[i]
	}
	return nil
}

// Drop returns a new Frame without the named columns. Unknown names are
// ignored, matching the drop-with-warning validation behavior upstream.
func (f *Frame) Drop(names ...string) *Frame {
	dropped := make(map[string]struct{}, len(names))
	for _, n := range names {
		dropped[n] = struct{}{}
	}

	var keep []int
	var cols []string
	for i, c := range f.cols {
		if _, ok := dropped[c]; !ok {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}

	cells := make([][]string, len(f.cells))
	for i, row := range f.cells {
		out := make([]string, len(keep))
		for j, idx := range keep {
			out[j] = row[idx]
		}
		cells[i] = out
	}
	return &Frame{cols: cols, cells: cells}
}

// WithColumn returns a new Frame with an extra column appended. The
// value count must match the row count; an existing name is an error.
func (f *Frame) WithColumn(name string, values []string) (*Frame, error) {
	if f.index(name) >= 0 {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(f.cells) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(f.cells))
	}
	cells := make([][]string, len(f.cells))
	for i, row := range f.cells {
		cells[i] = append(append([]string(nil), row...), values[i])
	}
	return &Frame{cols: append(append([]string(nil), f.cols...), name), cells: cells}, nil
}

// Select returns a new Frame holding the given rows, in order. Row
// indices may repeat; out-of-range indices are an error.
func (f *Frame) Select(rows []int) (*Frame, error) {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		if r < 0 || r >= len(f.cells) {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", r, len(f.cells))
		}
		cells[i] = append([]string(nil), f.cells[r]...)
	}
	return &Frame{cols: append([]string(nil), f.cols...), cells: cells}, nil
}

// Numeric parses the named column to float64. Missing sentinels become
// NaN; any other unparseable cell is an error naming the value and row.
func (f *Frame) Numeric(name string) ([]float64, error) {
	raw, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, cell := range raw {
		v, err := parseCell(cell)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Matrix parses every listed column to float64, returning a row-major
// matrix in the given column order.
func (f *Frame) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		vals, err := f.Numeric(name)
		if err != nil {
			return nil, err
		}
		cols[j] = vals
	}
	rows := make([][]float64, f.NumRows())
	for i := range rows {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		rows[i] = row
	}
	return rows, nil
}

func parseCell(cell string) (float64, error) {
	trimmed := strings.TrimSpace(cell)
	if _, ok := missingSentinels[strings.ToLower(trimmed)]; ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric", cell)
	}
	return v, nil
}

// FormatCell renders a float64 back to a CSV cell for the given declared
// type. NaN renders as the empty cell.
func FormatCell(v float64, declaredType string) string {
	if math.IsNaN(v) {
		return ""
	}
	if declaredType == "int64" {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FromMatrix builds a Frame from a numeric matrix and column names, using
// float64 formatting for every cell.
func FromMatrix(cols []string, rows [][]float64) (*Frame, error) {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(cols))
		}
		out := make([]string, len(row))
		for j, v := range row {
			out[j] = FormatCell(v, "float64")
		}
		cells[i] = out
	}
	return New(cols, cells)
}
