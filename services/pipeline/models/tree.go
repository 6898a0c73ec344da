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
	"sort"
)

// Split criteria for DecisionTree.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// TreeNode is one node of a fitted CART tree. Exported fields keep the
// structure gob-encodable.
type TreeNode struct {
	Leaf      bool
	Label     float64 // majority label at a leaf
	Proba     float64 // P(label==1) at a leaf
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

// DecisionTree is a CART binary classifier splitting on gini or entropy
// impurity. MaxDepth <= 0 means unbounded.
type DecisionTree struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int

	// MaxFeatures limits the candidate features tried per split; 0 tries
	// all of them. The forest sets it to sqrt(d).
	MaxFeatures int
	Seed        int64

	Root     *TreeNode
	NumInput int
}

// NewDecisionTree returns an unfitted tree with sklearn-like defaults.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{Criterion: CriterionGini, MinSamplesSplit: 2}
}

func (t *DecisionTree) Name() string { return "Decision Tree" }

func (t *DecisionTree) Fit(x [][]float64, y []float64) error {
	if err := checkTrainingInput(x, y); err != nil {
		return err
	}
	if t.Criterion != CriterionGini && t.Criterion != CriterionEntropy {
		return fmt.Errorf("unknown split criterion %q", t.Criterion)
	}
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	t.NumInput = len(x[0])

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(t.Seed))
	t.Root = t.grow(x, y, idx, 0, rng)
	return nil
}

func (t *DecisionTree) Predict(x [][]float64) ([]float64, error) {
	if t.Root == nil {
		return nil, fmt.Errorf("decision tree is not fitted")
	}
	if err := checkPredictionInput(x, t.NumInput); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = t.leafFor(row).Label
	}
	return out, nil
}

func (t *DecisionTree) PredictProba(x [][]float64) ([]float64, error) {
	if t.Root == nil {
		return nil, fmt.Errorf("decision tree is not fitted")
	}
	if err := checkPredictionInput(x, t.NumInput); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = t.leafFor(row).Proba
	}
	return out, nil
}

func (t *DecisionTree) leafFor(row []float64) *TreeNode {
	node := t.Root
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (t *DecisionTree) grow(x [][]float64, y []float64, idx []int, depth int, rng *rand.Rand) *TreeNode {
	positives := 0
	for _, i := range idx {
		if y[i] == 1 {
			positives++
		}
	}
	proba := float64(positives) / float64(len(idx))

	pure := positives == 0 || positives == len(idx)
	depthStop := t.MaxDepth > 0 && depth >= t.MaxDepth
	if pure || depthStop || len(idx) < t.MinSamplesSplit {
		return leafNode(proba)
	}

	feature, threshold, gain := t.bestSplit(x, y, idx, rng)
	if gain <= 0 {
		return leafNode(proba)
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(proba)
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(x, y, left, depth+1, rng),
		Right:     t.grow(x, y, right, depth+1, rng),
	}
}

func leafNode(proba float64) *TreeNode {
	label := 0.0
	if proba >= 0.5 {
		label = 1
	}
	return &TreeNode{Leaf: true, Label: label, Proba: proba}
}

// bestSplit scans candidate features for the threshold with the largest
// impurity decrease. Candidate thresholds are midpoints between adjacent
// distinct sorted values.
func (t *DecisionTree) bestSplit(x [][]float64, y []float64, idx []int, rng *rand.Rand) (int, float64, float64) {
	d := len(x[0])
	features := make([]int, d)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < d {
		rng.Shuffle(d, func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:t.MaxFeatures]
	}

	parent := t.impurity(y, idx)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	sorted := make([]int, len(idx))
	for _, feature := range features {
		copy(sorted, idx)
		f := feature
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][f] < x[sorted[b]][f] })

		// Running positive counts give O(1) impurity per threshold.
		totalPos := 0
		for _, i := range sorted {
			totalPos += int(y[i])
		}
		leftPos := 0
		for k := 0; k < len(sorted)-1; k++ {
			leftPos += int(y[sorted[k]])
			if x[sorted[k]][f] == x[sorted[k+1]][f] {
				continue
			}
			nLeft := k + 1
			nRight := len(sorted) - nLeft
			gain := parent -
				(float64(nLeft)/float64(len(sorted)))*t.impurityFromCounts(leftPos, nLeft) -
				(float64(nRight)/float64(len(sorted)))*t.impurityFromCounts(totalPos-leftPos, nRight)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (x[sorted[k]][f] + x[sorted[k+1]][f]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func (t *DecisionTree) impurity(y []float64, idx []int) float64 {
	pos := 0
	for _, i := range idx {
		pos += int(y[i])
	}
	return t.impurityFromCounts(pos, len(idx))
}

func (t *DecisionTree) impurityFromCounts(positives, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(positives) / float64(total)
	if t.Criterion == CriterionEntropy {
		var h float64
		if p > 0 {
			h -= p * math.Log2(p)
		}
		if p < 1 {
			h -= (1 - p) * math.Log2(1-p)
		}
		return h
	}
	return 2 * p * (1 - p)
}
