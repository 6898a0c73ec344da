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
	"fmt"
	"strconv"

	"github.com/netsentry/netsentry/services/pipeline/mlmetrics"
	"github.com/netsentry/netsentry/services/pipeline/models"
)

// candidate is one hyperparameter combination inside a family's grid.
type candidate struct {
	params map[string]string
	build  func() models.Classifier
}

// family is one model type plus its hyperparameter grid. Declaration
// order matters: ties in selection go to the earlier family.
type family struct {
	name       string
	candidates []candidate
}

// defaultRoster is the classifier lineup the trainer searches over.
func defaultRoster(seed int64) []family {
	logistic := family{name: "Logistic Regression"}
	for _, lr := range []float64{0.05, 0.1} {
		rate := lr
		logistic.candidates = append(logistic.candidates, candidate{
			params: map[string]string{"learning_rate": strconv.FormatFloat(rate, 'g', -1, 64)},
			build: func() models.Classifier {
				m := models.NewLogisticRegression()
				m.LearningRate = rate
				return m
			},
		})
	}

	tree := family{name: "Decision Tree"}
	for _, criterion := range []string{models.CriterionGini, models.CriterionEntropy} {
		crit := criterion
		tree.candidates = append(tree.candidates, candidate{
			params: map[string]string{"criterion": crit},
			build: func() models.Classifier {
				m := models.NewDecisionTree()
				m.Criterion = crit
				return m
			},
		})
	}

	forest := family{name: "Random Forest"}
	for _, n := range []int{16, 32, 64} {
		trees := n
		forest.candidates = append(forest.candidates, candidate{
			params: map[string]string{"n_estimators": strconv.Itoa(trees)},
			build: func() models.Classifier {
				m := models.NewRandomForest()
				m.NumTrees = trees
				m.Seed = seed
				return m
			},
		})
	}

	return []family{logistic, tree, forest}
}

// crossValidate returns mean accuracy over k contiguous folds.
func crossValidate(x [][]float64, y []float64, folds int, build func() models.Classifier) (float64, error) {
	n := len(x)
	if folds < 2 {
		return 0, fmt.Errorf("cross-validation needs at least 2 folds, got %d", folds)
	}
	if n < folds {
		return 0, fmt.Errorf("cannot split %d rows into %d folds", n, folds)
	}

	var total float64
	for k := 0; k < folds; k++ {
		lo := k * n / folds
		hi := (k + 1) * n / folds

		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]float64, 0, n-(hi-lo))
		trainX = append(trainX, x[:lo]...)
		trainX = append(trainX, x[hi:]...)
		trainY = append(trainY, y[:lo]...)
		trainY = append(trainY, y[hi:]...)

		clf := build()
		if err := clf.Fit(trainX, trainY); err != nil {
			return 0, fmt.Errorf("fold %d fit: %w", k, err)
		}
		preds, err := clf.Predict(x[lo:hi])
		if err != nil {
			return 0, fmt.Errorf("fold %d predict: %w", k, err)
		}
		acc, err := mlmetrics.Accuracy(y[lo:hi], preds)
		if err != nil {
			return 0, fmt.Errorf("fold %d scoring: %w", k, err)
		}
		total += acc
	}
	return total / float64(folds), nil
}

// searchResult is one family's outcome after grid search and refit.
type searchResult struct {
	familyName string
	params     map[string]string
	model      models.Classifier
	cvScore    float64
	testScore  float64
}

// gridSearch picks the best candidate per family by CV accuracy on the
// train split, refits it on the whole train split, and scores it on the
// held-out test split. Ties keep the earlier candidate.
func gridSearch(fam family, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, folds int) (searchResult, error) {
	best := searchResult{familyName: fam.name, cvScore: -1}
	var bestBuild func() models.Classifier

	for _, cand := range fam.candidates {
		score, err := crossValidate(trainX, trainY, folds, cand.build)
		if err != nil {
			return searchResult{}, fmt.Errorf("%s %v: %w", fam.name, cand.params, err)
		}
		if score > best.cvScore {
			best.cvScore = score
			best.params = cand.params
			bestBuild = cand.build
		}
	}
	if bestBuild == nil {
		return searchResult{}, fmt.Errorf("family %s has no candidates", fam.name)
	}

	best.model = bestBuild()
	if err := best.model.Fit(trainX, trainY); err != nil {
		return searchResult{}, fmt.Errorf("refitting %s: %w", fam.name, err)
	}
	preds, err := best.model.Predict(testX)
	if err != nil {
		return searchResult{}, fmt.Errorf("scoring %s on test split: %w", fam.name, err)
	}
	best.testScore, err = mlmetrics.Accuracy(testY, preds)
	if err != nil {
		return searchResult{}, err
	}
	return best, nil
}
