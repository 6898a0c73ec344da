// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package models

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is a binary logistic classifier trained with batch
// gradient descent on internally standardized features.
type LogisticRegression struct {
	LearningRate float64
	Epochs       int
	L2           float64

	// Fitted state. Means and Stds standardize inputs at prediction time
	// with the statistics observed during Fit.
	Weights []float64
	Bias    float64
	Means   []float64
	Stds    []float64
}

// NewLogisticRegression returns an unfitted model with defaults that
// converge on standardized inputs.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{LearningRate: 0.1, Epochs: 300, L2: 1e-4}
}

func (m *LogisticRegression) Name() string { return "Logistic Regression" }

func (m *LogisticRegression) Fit(x [][]float64, y []float64) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	n := len(x)
	d := len(x[0])

	m.Means = make([]float64, d)
	m.Stds = make([]float64, d)
	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i][j]
		}
		mean := sum / float64(n)
		var sq float64
		for i := 0; i < n; i++ {
			delta := x[i][j] - mean
			sq += delta * delta
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = 1
		}
		m.Means[j] = mean
		m.Stds[j] = std
	}

	scaled := make([][]float64, n)
	for i := range x {
		scaled[i] = m.standardize(x[i])
	}

	m.Weights = make([]float64, d)
	m.Bias = 0
	grad := make([]float64, d)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64
		for i := 0; i < n; i++ {
			p := sigmoid(floats.Dot(m.Weights, scaled[i]) + m.Bias)
			residual := p - y[i]
			floats.AddScaled(grad, residual, scaled[i])
			biasGrad += residual
		}
		scale := m.LearningRate / float64(n)
		for j := range m.Weights {
			m.Weights[j] -= scale * (grad[j] + m.L2*m.Weights[j])
		}
		m.Bias -= scale * biasGrad
	}
	return nil
}

func (m *LogisticRegression) Predict(x [][]float64) ([]float64, error) {
	probs, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	labels := make([]float64, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (m *LogisticRegression) PredictProba(x [][]float64) ([]float64, error) {
	if err := checkPredictionInput(x, len(m.Weights)); err != nil {
		return nil, err
	}
	probs := make([]float64, len(x))
	for i, row := range x {
		probs[i] = sigmoid(floats.Dot(m.Weights, m.standardize(row)) + m.Bias)
	}
	return probs, nil
}

func (m *LogisticRegression) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - m.Means[j]) / m.Stds[j]
	}
	return out
}

func sigmoid(z float64) float64 {
	// Clamping avoids overflow in Exp for extreme logits.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
