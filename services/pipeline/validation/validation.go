// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks ingested splits against the declared schema
// and measures dataset drift between them with a per-column two-sample
// KS test.
//
// Drift here does not stop the pipeline: the validated CSVs and the
// drift report are always written, and the verdict travels in the stage
// record. Schema violations and type failures are fatal.
package validation

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/pkg/tabular"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

// ColumnDrift is one column's entry in the dataset drift report.
type ColumnDrift struct {
	PValue      float64 `yaml:"p_value" json:"p_value"`
	DriftStatus bool    `yaml:"drift_status" json:"drift_status"`
}

// Validator runs the data validation stage.
type Validator struct {
	schema *config.Schema
	cfg    config.Validation
	log    *logging.Logger
}

// NewValidator wires a validator for one schema. A nil logger falls back
// to the process default.
func NewValidator(schema *config.Schema, cfg config.Validation, log *logging.Logger) *Validator {
	if log == nil {
		log = logging.Default()
	}
	return &Validator{schema: schema, cfg: cfg, log: log.With("component", "data_validation")}
}

// Run validates the ingested train/test CSVs and writes the validated
// copies plus the drift report into the run directory.
func (v *Validator) Run(run artifacts.Run, ing artifacts.Ingestion) (artifacts.Validation, error) {
	train, err := v.loadAndCheck(ing.TrainPath)
	if err != nil {
		return artifacts.Validation{}, err
	}
	test, err := v.loadAndCheck(ing.TestPath)
	if err != nil {
		return artifacts.Validation{}, err
	}

	status, report, err := v.detectDatasetDrift(train, test)
	if err != nil {
		return artifacts.Validation{}, err
	}
	if !status {
		v.log.Warn("dataset drift detected between train and test splits")
	}

	reportPath := run.DatasetDriftReportPath()
	if err := writeDriftReport(reportPath, report); err != nil {
		return artifacts.Validation{}, faults.Wrap(faults.KindInternal, err, "writing drift report")
	}

	if err := train.WriteCSV(run.ValidTrainPath()); err != nil {
		return artifacts.Validation{}, faults.Wrap(faults.KindInternal, err, "writing validated train split")
	}
	if err := test.WriteCSV(run.ValidTestPath()); err != nil {
		return artifacts.Validation{}, faults.Wrap(faults.KindInternal, err, "writing validated test split")
	}

	v.log.Info("validation complete",
		"status", status,
		"columns", len(v.schema.Columns),
		"report", reportPath)

	return artifacts.Validation{
		Status:          status,
		TrainPath:       run.ValidTrainPath(),
		TestPath:        run.ValidTestPath(),
		DriftReportPath: reportPath,
	}, nil
}

// loadAndCheck reads a split and enforces the schema: every declared
// column must be present and numeric under its declared type; columns
// the schema does not know are dropped with a warning.
func (v *Validator) loadAndCheck(path string) (*tabular.Frame, error) {
	frame, err := tabular.ReadCSV(path)
	if err != nil {
		return nil, faults.Wrap(faults.KindSchemaViolation, err, "reading split %s", filepath.Base(path))
	}

	var missing, extra []string
	for _, name := range v.schema.ColumnNames() {
		if !frame.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	declared := map[string]struct{}{}
	for _, name := range v.schema.ColumnNames() {
		declared[name] = struct{}{}
	}
	for _, name := range frame.Columns() {
		if _, ok := declared[name]; !ok {
			extra = append(extra, name)
		}
	}

	if len(missing) > 0 {
		return nil, faults.New(faults.KindSchemaViolation,
			"split %s is missing required columns %v", filepath.Base(path), missing)
	}
	if len(extra) > 0 {
		v.log.Warn("dropping columns absent from schema", "columns", extra, "split", filepath.Base(path))
		frame = frame.Drop(extra...)
	}

	for _, name := range v.schema.ColumnNames() {
		if _, err := frame.Numeric(name); err != nil {
			declared, _ := v.schema.TypeOf(name)
			return nil, faults.Wrap(faults.KindSchemaViolation, err,
				"column %q: expected %s, got non-numeric data", name, declared)
		}
	}
	return frame, nil
}

// detectDatasetDrift compares each schema column across the two splits.
// The returned status is true when no column drifted.
func (v *Validator) detectDatasetDrift(train, test *tabular.Frame) (bool, map[string]ColumnDrift, error) {
	status := true
	report := make(map[string]ColumnDrift, len(v.schema.Columns))

	for _, name := range v.schema.ColumnNames() {
		base, err := train.Numeric(name)
		if err != nil {
			return false, nil, faults.Wrap(faults.KindSchemaViolation, err, "train column %q", name)
		}
		current, err := test.Numeric(name)
		if err != nil {
			return false, nil, faults.Wrap(faults.KindSchemaViolation, err, "test column %q", name)
		}

		ks, err := KolmogorovSmirnov(base, current)
		if err != nil {
			return false, nil, faults.Wrap(faults.KindSchemaViolation, err, "ks test on column %q", name)
		}

		drifted := ks.PValue < v.cfg.DriftPValue
		if drifted {
			status = false
			v.log.Warn("column drift", "column", name, "p_value", ks.PValue)
		}
		report[name] = ColumnDrift{PValue: ks.PValue, DriftStatus: drifted}
	}
	return status, report, nil
}

func writeDriftReport(path string, report map[string]ColumnDrift) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}
