// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mlmetrics computes the classification scores shared by the
// trainer and the model drift detector.
//
// Precision, recall and F1 use support-weighted averaging across classes.
// AUC is an explicit optional: it is only produced when probability scores
// are available and both classes are present in the labels, never raised
// as an error.
package mlmetrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ClassScore is the per-class block of a classification report.
type ClassScore struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// Summary bundles every score the drift detector tracks for one model on
// one dataset.
type Summary struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`

	// AUC is present only when AUCValid; some models expose no
	// probability output, and single-class splits make AUC undefined.
	AUC      float64 `json:"auc,omitempty" yaml:"auc,omitempty"`
	AUCValid bool    `json:"auc_valid" yaml:"auc_valid"`

	// ConfusionMatrix is indexed [actual][predicted] over Labels.
	ConfusionMatrix [][]int   `json:"confusion_matrix" yaml:"confusion_matrix"`
	Labels          []float64 `json:"labels" yaml:"labels"`

	// Report maps the printed label (e.g. "0", "1") to its class block.
	Report map[string]ClassScore `json:"classification_report" yaml:"classification_report"`
}

// Accuracy returns the fraction of exact label matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("label length mismatch: %d vs %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("empty label vectors")
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// uniqueLabels returns the sorted distinct values across both vectors.
func uniqueLabels(yTrue, yPred []float64) []float64 {
	seen := map[float64]struct{}{}
	for _, v := range yTrue {
		seen[v] = struct{}{}
	}
	for _, v := range yPred {
		seen[v] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Float64s(labels)
	return labels
}

// ConfusionMatrix returns counts indexed [actual][predicted] over the
// sorted label set, plus the labels themselves.
func ConfusionMatrix(yTrue, yPred []float64) ([][]int, []float64, error) {
	if len(yTrue) != len(yPred) {
		return nil, nil, fmt.Errorf("label length mismatch: %d vs %d", len(yTrue), len(yPred))
	}
	labels := uniqueLabels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		cm[index[yTrue[i]]][index[yPred[i]]]++
	}
	return cm, labels, nil
}

// Score computes accuracy plus support-weighted precision/recall/F1 and
// the per-class report.
func Score(yTrue, yPred []float64) (Summary, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return Summary{}, err
	}
	cm, labels, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return Summary{}, err
	}

	report := make(map[string]ClassScore, len(labels))
	var wPrec, wRec, wF1 float64
	total := len(yTrue)

	for i, label := range labels {
		tp := cm[i][i]
		support := 0
		predicted := 0
		for j := range labels {
			support += cm[i][j]
			predicted += cm[j][i]
		}

		var prec, rec, f1 float64
		if predicted > 0 {
			prec = float64(tp) / float64(predicted)
		}
		if support > 0 {
			rec = float64(tp) / float64(support)
		}
		if prec+rec > 0 {
			f1 = 2 * prec * rec / (prec + rec)
		}

		report[formatLabel(label)] = ClassScore{Precision: prec, Recall: rec, F1: f1, Support: support}

		weight := float64(support) / float64(total)
		wPrec += weight * prec
		wRec += weight * rec
		wF1 += weight * f1
	}

	return Summary{
		Accuracy:        acc,
		Precision:       wPrec,
		Recall:          wRec,
		F1:              wF1,
		ConfusionMatrix: cm,
		Labels:          labels,
		Report:          report,
	}, nil
}

// ROCAUC computes the area under the ROC curve for binary labels given
// positive-class scores. The second return is false when AUC is undefined:
// mismatched lengths, or fewer than two classes present.
func ROCAUC(yTrue, scores []float64) (float64, bool) {
	if len(yTrue) != len(scores) || len(yTrue) == 0 {
		return 0, false
	}
	positive := 0
	for _, v := range yTrue {
		if v == 1 {
			positive++
		}
	}
	if positive == 0 || positive == len(yTrue) {
		return 0, false
	}

	// stat.ROC wants scores in ascending order with aligned class flags.
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	sorted := make([]float64, len(scores))
	classes := make([]bool, len(scores))
	for i, j := range idx {
		sorted[i] = scores[j]
		classes[i] = yTrue[j] == 1
	}

	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), true
}

func formatLabel(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
