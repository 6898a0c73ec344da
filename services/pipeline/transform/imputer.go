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
	"fmt"
	"math"
	"sort"
)

// Imputer weighting modes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNNImputer fills missing values from the k nearest training rows under
// a NaN-aware Euclidean distance. Fitting stores the training matrix;
// transforming never mutates its input.
type KNNImputer struct {
	Neighbors int
	Weights   string

	// Reference is the training matrix captured by Fit. ColumnMeans is
	// the fallback when a value has no usable neighbor.
	Reference   [][]float64
	ColumnMeans []float64
}

// NewKNNImputer returns an unfitted imputer.
func NewKNNImputer(neighbors int, weights string) *KNNImputer {
	return &KNNImputer{Neighbors: neighbors, Weights: weights}
}

// Fit captures the training matrix as the neighbor reference.
func (imp *KNNImputer) Fit(x [][]float64) error {
	if len(x) == 0 || len(x[0]) == 0 {
		return fmt.Errorf("cannot fit imputer on an empty matrix")
	}
	if imp.Neighbors < 1 {
		return fmt.Errorf("imputer needs at least one neighbor, got %d", imp.Neighbors)
	}
	if imp.Weights != WeightsUniform && imp.Weights != WeightsDistance {
		return fmt.Errorf("unknown imputer weighting %q", imp.Weights)
	}

	d := len(x[0])
	imp.Reference = make([][]float64, len(x))
	for i, row := range x {
		if len(row) != d {
			return fmt.Errorf("ragged matrix: row %d has %d columns, expected %d", i, len(row), d)
		}
		imp.Reference[i] = append([]float64(nil), row...)
	}

	imp.ColumnMeans = make([]float64, d)
	for j := 0; j < d; j++ {
		var sum float64
		count := 0
		for _, row := range x {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				count++
			}
		}
		if count == 0 {
			// A fully-missing training column imputes to zero.
			imp.ColumnMeans[j] = 0
			continue
		}
		imp.ColumnMeans[j] = sum / float64(count)
	}
	return nil
}

// Transform returns a copy of x with every NaN replaced.
func (imp *KNNImputer) Transform(x [][]float64) ([][]float64, error) {
	if imp.Reference == nil {
		return nil, fmt.Errorf("imputer is not fitted")
	}
	d := len(imp.Reference[0])

	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d columns, imputer was fitted on %d", i, len(row), d)
		}
		out[i] = append([]float64(nil), row...)
	}

	for i, row := range out {
		for j, v := range row {
			if math.IsNaN(v) {
				out[i][j] = imp.imputeValue(x[i], j)
			}
		}
	}
	return out, nil
}

// FitTransform fits on x and returns its imputed copy.
func (imp *KNNImputer) FitTransform(x [][]float64) ([][]float64, error) {
	if err := imp.Fit(x); err != nil {
		return nil, err
	}
	return imp.Transform(x)
}

type neighbor struct {
	distance float64
	value    float64
}

// imputeValue estimates row's missing feature j from reference rows that
// observe j. Distances use the nan-Euclidean convention: only coordinates
// observed on both sides count, scaled back up to full dimensionality.
func (imp *KNNImputer) imputeValue(row []float64, j int) float64 {
	candidates := make([]neighbor, 0, len(imp.Reference))
	for _, ref := range imp.Reference {
		if math.IsNaN(ref[j]) {
			continue
		}
		dist, ok := nanEuclidean(row, ref)
		if !ok {
			continue
		}
		candidates = append(candidates, neighbor{distance: dist, value: ref[j]})
	}
	if len(candidates) == 0 {
		return imp.ColumnMeans[j]
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].distance < candidates[b].distance })
	k := imp.Neighbors
	if k > len(candidates) {
		k = len(candidates)
	}
	nearest := candidates[:k]

	if imp.Weights == WeightsDistance {
		var weighted, weightSum float64
		for _, n := range nearest {
			if n.distance == 0 {
				// Exact matches dominate; average only the zero-distance ones.
				return exactMatchMean(nearest)
			}
			w := 1 / n.distance
			weighted += w * n.value
			weightSum += w
		}
		return weighted / weightSum
	}

	var sum float64
	for _, n := range nearest {
		sum += n.value
	}
	return sum / float64(len(nearest))
}

func exactMatchMean(nearest []neighbor) float64 {
	var sum float64
	count := 0
	for _, n := range nearest {
		if n.distance == 0 {
			sum += n.value
			count++
		}
	}
	return sum / float64(count)
}

// nanEuclidean returns the distance over mutually observed coordinates,
// scaled by sqrt(total/observed). The bool is false when no coordinate
// is observed on both sides.
func nanEuclidean(a, b []float64) (float64, bool) {
	var sq float64
	observed := 0
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		delta := a[i] - b[i]
		sq += delta * delta
		observed++
	}
	if observed == 0 {
		return 0, false
	}
	return math.Sqrt(sq * float64(len(a)) / float64(observed)), true
}
