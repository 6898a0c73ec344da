// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trainer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/netsentry/netsentry/pkg/tabular"
	"github.com/netsentry/netsentry/services/pipeline/models"
	"github.com/netsentry/netsentry/services/pipeline/transform"
)

// Bundle couples a fitted preprocessor with a fitted classifier so
// inference consumers cannot pair a model with the wrong imputer.
type Bundle struct {
	FeatureColumns []string
	ModelName      string
	Preprocessor   *transform.KNNImputer
	Model          models.Classifier
}

// Predict scores raw tabular rows: extract the bundle's feature columns,
// impute, classify.
func (b *Bundle) Predict(frame *tabular.Frame) ([]float64, error) {
	x, err := frame.Matrix(b.FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}
	imputed, err := b.Preprocessor.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("imputing features: %w", err)
	}
	return b.Model.Predict(imputed)
}

// PredictProba returns P(label==1) per row, and false when the bundled
// model has no probability output.
func (b *Bundle) PredictProba(frame *tabular.Frame) ([]float64, bool, error) {
	pe, ok := b.Model.(models.ProbabilityEstimator)
	if !ok {
		return nil, false, nil
	}
	x, err := frame.Matrix(b.FeatureColumns)
	if err != nil {
		return nil, false, fmt.Errorf("extracting features: %w", err)
	}
	imputed, err := b.Preprocessor.Transform(x)
	if err != nil {
		return nil, false, fmt.Errorf("imputing features: %w", err)
	}
	probs, err := pe.PredictProba(imputed)
	if err != nil {
		return nil, false, err
	}
	return probs, true, nil
}

// SaveBundle gob-encodes a bundle, creating parent directories.
func SaveBundle(path string, b *Bundle) error {
	if b.Model == nil || b.Preprocessor == nil {
		return fmt.Errorf("refusing to persist an incomplete bundle")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(b); err != nil {
		return err
	}
	return f.Close()
}

// LoadBundle reads a bundle written by SaveBundle.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var b Bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding model bundle %s: %w", path, err)
	}
	return &b, nil
}
