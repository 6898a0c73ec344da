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
	"fmt"
	"math"
	"math/rand"
)

// RandomForest bags decision trees over bootstrap samples with sqrt(d)
// feature subsampling per split. Prediction is a majority vote; the
// probability estimate averages the per-tree leaf probabilities.
type RandomForest struct {
	NumTrees  int
	Criterion string
	MaxDepth  int
	Seed      int64

	Trees []*DecisionTree
}

// NewRandomForest returns an unfitted forest with defaults.
func NewRandomForest() *RandomForest {
	return &RandomForest{NumTrees: 50, Criterion: CriterionGini, Seed: 42}
}

func (f *RandomForest) Name() string { return "Random Forest" }

func (f *RandomForest) Fit(x [][]float64, y []float64) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	if f.NumTrees < 1 {
		return fmt.Errorf("forest needs at least one tree, got %d", f.NumTrees)
	}

	n := len(x)
	maxFeatures := int(math.Sqrt(float64(len(x[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*DecisionTree, f.NumTrees)

	sampleX := make([][]float64, n)
	sampleY := make([]float64, n)
	for k := 0; k < f.NumTrees; k++ {
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleX[i] = x[j]
			sampleY[i] = y[j]
		}
		tree := &DecisionTree{
			Criterion:       f.Criterion,
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: 2,
			MaxFeatures:     maxFeatures,
			Seed:            rng.Int63(),
		}
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return fmt.Errorf("fitting tree %d: %w", k, err)
		}
		f.Trees[k] = tree
	}
	return nil
}

func (f *RandomForest) Predict(x [][]float64) ([]float64, error) {
	probs, err := f.PredictProba(x)
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

func (f *RandomForest) PredictProba(x [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("random forest is not fitted")
	}
	sum := make([]float64, len(x))
	for _, tree := range f.Trees {
		probs, err := tree.PredictProba(x)
		if err != nil {
			return nil, err
		}
		for i, p := range probs {
			sum[i] += p
		}
	}
	for i := range sum {
		sum[i] /= float64(len(f.Trees))
	}
	return sum, nil
}
