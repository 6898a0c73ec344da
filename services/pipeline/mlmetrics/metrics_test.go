// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mlmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]float64{1, 0, 1, 1}, []float64{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy([]float64{1}, []float64{1, 0})
	assert.Error(t, err)

	_, err = Accuracy(nil, nil)
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1, 1}
	yPred := []float64{0, 1, 1, 1, 0}

	cm, labels, err := ConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, labels)
	assert.Equal(t, [][]int{{1, 1}, {1, 2}}, cm)
}

func TestScoreWeightedAverages(t *testing.T) {
	// 0: support 2, precision 1/2, recall 1/2
	// 1: support 3, precision 2/3, recall 2/3
	yTrue := []float64{0, 0, 1, 1, 1}
	yPred := []float64{0, 1, 1, 1, 0}

	s, err := Score(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, s.Accuracy, 1e-12)
	assert.InDelta(t, 0.4*0.5+0.6*(2.0/3.0), s.Precision, 1e-12)
	assert.InDelta(t, 0.4*0.5+0.6*(2.0/3.0), s.Recall, 1e-12)

	require.Contains(t, s.Report, "0")
	require.Contains(t, s.Report, "1")
	assert.Equal(t, 2, s.Report["0"].Support)
	assert.Equal(t, 3, s.Report["1"].Support)
}

func TestScorePerfect(t *testing.T) {
	y := []float64{0, 1, 1, 0}
	s, err := Score(y, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Accuracy)
	assert.Equal(t, 1.0, s.Precision)
	assert.Equal(t, 1.0, s.Recall)
	assert.Equal(t, 1.0, s.F1)
}

func TestROCAUC(t *testing.T) {
	t.Run("perfect separation", func(t *testing.T) {
		auc, ok := ROCAUC([]float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
		require.True(t, ok)
		assert.InDelta(t, 1.0, auc, 1e-12)
	})

	t.Run("inverted separation", func(t *testing.T) {
		auc, ok := ROCAUC([]float64{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9})
		require.True(t, ok)
		assert.InDelta(t, 0.0, auc, 1e-12)
	})

	t.Run("single class is undefined", func(t *testing.T) {
		_, ok := ROCAUC([]float64{1, 1, 1}, []float64{0.5, 0.6, 0.7})
		assert.False(t, ok)
	})

	t.Run("length mismatch is undefined", func(t *testing.T) {
		_, ok := ROCAUC([]float64{1, 0}, []float64{0.5})
		assert.False(t, ok)
	})
}
