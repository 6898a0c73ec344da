// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform turns validated CSV splits into dense numeric
// matrices ready for training. Missing values are filled by a KNN
// imputer fitted on the train split only, and the target label -1 is
// remapped to 0.
package transform

import (
	"math"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/pkg/tabular"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

// Transformer runs the data transformation stage.
type Transformer struct {
	schema *config.Schema
	cfg    config.Transformation
	log    *logging.Logger
}

// NewTransformer wires the stage. A nil logger falls back to the process
// default.
func NewTransformer(schema *config.Schema, cfg config.Transformation, log *logging.Logger) *Transformer {
	if log == nil {
		log = logging.Default()
	}
	return &Transformer{schema: schema, cfg: cfg, log: log.With("component", "data_transformation")}
}

// Run produces the transformed train/test matrices and persists the
// fitted preprocessor both inside the run directory and at the
// production path used for inference.
func (t *Transformer) Run(run artifacts.Run, val artifacts.Validation) (artifacts.Transformation, error) {
	trainX, trainY, err := t.loadSplit(val.TrainPath)
	if err != nil {
		return artifacts.Transformation{}, err
	}
	testX, testY, err := t.loadSplit(val.TestPath)
	if err != nil {
		return artifacts.Transformation{}, err
	}

	imputer := NewKNNImputer(t.cfg.ImputerNeighbors, t.cfg.ImputerWeights)
	trainImputed, err := imputer.FitTransform(trainX)
	if err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindDataType, err, "fitting imputer on train split")
	}
	testImputed, err := imputer.Transform(testX)
	if err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindDataType, err, "imputing test split")
	}

	columns := append(t.schema.FeatureColumns(), t.schema.TargetColumn)
	trainMatrix := &Matrix{Columns: columns, Rows: withTarget(trainImputed, trainY)}
	testMatrix := &Matrix{Columns: columns, Rows: withTarget(testImputed, testY)}

	if err := SaveMatrix(run.TransformedTrainPath(), trainMatrix); err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindInternal, err, "writing train matrix")
	}
	if err := SaveMatrix(run.TransformedTestPath(), testMatrix); err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindInternal, err, "writing test matrix")
	}
	if err := SavePreprocessor(run.PreprocessorPath(), imputer); err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindInternal, err, "writing preprocessor")
	}
	if err := SavePreprocessor(run.ProductionPreprocessorPath(), imputer); err != nil {
		return artifacts.Transformation{}, faults.Wrap(faults.KindInternal, err, "writing production preprocessor")
	}

	t.log.Info("transformation complete",
		"train_rows", len(trainMatrix.Rows),
		"test_rows", len(testMatrix.Rows),
		"features", len(columns)-1)

	return artifacts.Transformation{
		TrainMatrixPath:  run.TransformedTrainPath(),
		TestMatrixPath:   run.TransformedTestPath(),
		PreprocessorPath: run.PreprocessorPath(),
	}, nil
}

// loadSplit reads a validated CSV into a feature matrix and a remapped
// label vector. Missing labels are rejected.
func (t *Transformer) loadSplit(path string) ([][]float64, []float64, error) {
	frame, err := tabular.ReadCSV(path)
	if err != nil {
		return nil, nil, faults.Wrap(faults.KindDataType, err, "reading validated split")
	}

	x, err := frame.Matrix(t.schema.FeatureColumns())
	if err != nil {
		return nil, nil, faults.Wrap(faults.KindDataType, err, "extracting feature matrix")
	}
	y, err := frame.Numeric(t.schema.TargetColumn)
	if err != nil {
		return nil, nil, faults.Wrap(faults.KindDataType, err, "extracting target column")
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, nil, faults.New(faults.KindDataType, "target column %q has a missing value at row %d", t.schema.TargetColumn, i)
		}
		// The source data labels attacks as -1; models expect 0/1.
		if v == -1 {
			y[i] = 0
		}
	}
	return x, y, nil
}

func withTarget(x [][]float64, y []float64) [][]float64 {
	rows := make([][]float64, len(x))
	for i, row := range x {
		rows[i] = append(append([]float64(nil), row...), y[i])
	}
	return rows
}
