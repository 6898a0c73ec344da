// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package models holds the binary classifiers the trainer selects from.
//
// Every classifier satisfies Classifier. Probability output is a separate
// capability: callers that need scores check for ProbabilityEstimator
// structurally and treat its absence as "AUC unavailable", not as a fault.
package models

import (
	"encoding/gob"
	"fmt"
)

// Classifier is a fitted or fittable binary classifier over dense
// float64 feature matrices. Labels are 0 or 1.
type Classifier interface {
	// Name returns the human-readable model name used in reports and
	// tracking, e.g. "Random Forest".
	Name() string

	// Fit trains on the given rows. It fails on empty or ragged input.
	Fit(x [][]float64, y []float64) error

	// Predict returns one label per input row. The classifier must be
	// fitted first.
	Predict(x [][]float64) ([]float64, error)
}

// ProbabilityEstimator is the optional scoring capability. PredictProba
// returns P(label==1) per row.
type ProbabilityEstimator interface {
	PredictProba(x [][]float64) ([]float64, error)
}

func init() {
	// Concrete types travel through the Classifier interface inside the
	// persisted model bundle.
	gob.Register(&LogisticRegression{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
}

// checkTrainingInput validates shape before any model starts fitting.
func checkTrainingInput(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("empty feature matrix")
	}
	if len(x) != len(y) {
		return fmt.Errorf("feature/label length mismatch: %d rows vs %d labels", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return fmt.Errorf("feature matrix has zero columns")
	}
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("ragged feature matrix: row %d has %d columns, expected %d", i, len(row), width)
		}
	}
	return nil
}

func checkPredictionInput(x [][]float64, width int) error {
	if width == 0 {
		return fmt.Errorf("classifier is not fitted")
	}
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, model was fitted on %d", i, len(row), width)
		}
	}
	return nil
}
