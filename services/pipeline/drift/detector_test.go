// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"encoding/gob"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
	"github.com/netsentry/netsentry/services/pipeline/models"
	"github.com/netsentry/netsentry/services/pipeline/trainer"
	"github.com/netsentry/netsentry/services/pipeline/transform"
)

func testRun(t *testing.T) artifacts.Run {
	t.Helper()
	dir := t.TempDir()
	return artifacts.NewRun(filepath.Join(dir, "Artifacts"), filepath.Join(dir, "final_model"), time.Now())
}

func clusteredMatrix(n int, seed int64) *transform.Matrix {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		if i%2 == 0 {
			rows[i] = []float64{rng.NormFloat64() - 3, rng.NormFloat64() - 3, 0}
		} else {
			rows[i] = []float64{rng.NormFloat64() + 3, rng.NormFloat64() + 3, 1}
		}
	}
	return &transform.Matrix{Columns: []string{"f1", "f2", "Result"}, Rows: rows}
}

func fitBundle(t *testing.T, m *transform.Matrix, name string) *trainer.Bundle {
	t.Helper()
	clf := models.NewDecisionTree()
	require.NoError(t, clf.Fit(m.Features(), m.Labels()))
	imp := transform.NewKNNImputer(3, transform.WeightsUniform)
	require.NoError(t, imp.Fit(m.Features()))
	return &trainer.Bundle{
		FeatureColumns: m.FeatureColumns(),
		ModelName:      name,
		Preprocessor:   imp,
		Model:          clf,
	}
}

// brokenModel predicts the same label for everything and exposes no
// probabilities.
type brokenModel struct{ Label float64 }

func init() { gob.Register(&brokenModel{}) }

func (b *brokenModel) Name() string                  { return "Constant" }
func (b *brokenModel) Fit([][]float64, []float64) error { return nil }
func (b *brokenModel) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = b.Label
	}
	return out, nil
}

func setup(t *testing.T, run artifacts.Run, current *trainer.Bundle, test *transform.Matrix) (artifacts.Trainer, artifacts.Transformation) {
	t.Helper()
	require.NoError(t, trainer.SaveBundle(run.TrainedModelPath(), current))
	require.NoError(t, transform.SaveMatrix(run.TransformedTestPath(), test))
	trained := artifacts.Trainer{ModelPath: run.TrainedModelPath(), ModelName: current.ModelName}
	trans := artifacts.Transformation{TestMatrixPath: run.TransformedTestPath()}
	return trained, trans
}

func TestDetectorBootstrapsBaseline(t *testing.T) {
	run := testRun(t)
	m := clusteredMatrix(60, 1)
	trained, trans := setup(t, run, fitBundle(t, m, "Decision Tree"), m)

	d := NewDetector(config.Drift{Threshold: 0.05}, nil)
	rec, err := d.Run(run, trained, trans)
	require.NoError(t, err)

	assert.False(t, rec.DriftDetected)
	assert.Equal(t, "baseline created", rec.Message)
	assert.FileExists(t, run.BaselineModelPath())
	assert.FileExists(t, rec.JSONReportPath)
	assert.FileExists(t, rec.TextReportPath)

	var report Report
	data, err := os.ReadFile(rec.JSONReportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.BaselineCreated)
}

func TestDetectorNoDriftForIdenticalModels(t *testing.T) {
	run := testRun(t)
	m := clusteredMatrix(60, 2)
	bundle := fitBundle(t, m, "Decision Tree")
	trained, trans := setup(t, run, bundle, m)
	require.NoError(t, trainer.SaveBundle(run.BaselineModelPath(), bundle))

	d := NewDetector(config.Drift{Threshold: 0.05}, nil)
	rec, err := d.Run(run, trained, trans)
	require.NoError(t, err)

	assert.False(t, rec.DriftDetected)
	assert.Equal(t, "no model drift detected", rec.Message)

	var report Report
	data, err := os.ReadFile(rec.JSONReportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	for _, c := range report.Comparisons {
		assert.Equal(t, StatusStable, c.Status, c.Metric)
		assert.Zero(t, c.Difference, c.Metric)
	}
	assert.Contains(t, report.Comparisons[len(report.Comparisons)-1].Metric, "auc",
		"both models expose probabilities, so AUC joins the table")
	require.NotNil(t, report.BaselineMetrics)
	require.NotNil(t, report.CurrentMetrics)
	assert.Equal(t, report.BaselineMetrics.Accuracy, report.CurrentMetrics.Accuracy)
}

func TestDetectorFlagsDegradedModel(t *testing.T) {
	run := testRun(t)
	m := clusteredMatrix(60, 3)

	good := fitBundle(t, m, "Decision Tree")
	require.NoError(t, trainer.SaveBundle(run.BaselineModelPath(), good))

	bad := fitBundle(t, m, "Constant")
	bad.Model = &brokenModel{Label: 1}
	trained, trans := setup(t, run, bad, m)

	d := NewDetector(config.Drift{Threshold: 0.05}, nil)
	rec, err := d.Run(run, trained, trans)
	require.NoError(t, err)

	assert.True(t, rec.DriftDetected)
	assert.Equal(t, "model drift detected", rec.Message)

	var report Report
	data, err := os.ReadFile(rec.JSONReportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))

	byMetric := map[string]MetricComparison{}
	for _, c := range report.Comparisons {
		byMetric[c.Metric] = c
	}
	acc := byMetric["accuracy"]
	assert.Equal(t, StatusDegraded, acc.Status)
	assert.True(t, acc.Significant)
	assert.True(t, acc.Degradation)
	assert.NotContains(t, byMetric, "auc", "degraded model has no probability output")

	text, err := os.ReadFile(rec.TextReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "MODEL DRIFT DETECTED")
	assert.Contains(t, string(text), "RECOMMENDATIONS")
}

func TestDetectorImprovementIsNotDrift(t *testing.T) {
	run := testRun(t)
	m := clusteredMatrix(60, 4)

	bad := fitBundle(t, m, "Constant")
	bad.Model = &brokenModel{Label: 1}
	require.NoError(t, trainer.SaveBundle(run.BaselineModelPath(), bad))

	good := fitBundle(t, m, "Decision Tree")
	trained, trans := setup(t, run, good, m)

	d := NewDetector(config.Drift{Threshold: 0.05}, nil)
	rec, err := d.Run(run, trained, trans)
	require.NoError(t, err)
	assert.False(t, rec.DriftDetected, "a significant improvement is not drift")
}

func TestDetectorRendersCharts(t *testing.T) {
	run := testRun(t)
	m := clusteredMatrix(60, 5)
	bundle := fitBundle(t, m, "Decision Tree")
	trained, trans := setup(t, run, bundle, m)
	require.NoError(t, trainer.SaveBundle(run.BaselineModelPath(), bundle))

	d := NewDetector(config.Drift{Threshold: 0.05, RenderCharts: true}, nil)
	rec, err := d.Run(run, trained, trans)
	require.NoError(t, err)
	require.Len(t, rec.ChartPaths, 4)
	for _, path := range rec.ChartPaths {
		assert.FileExists(t, path)
	}
}

func TestCompareThresholdBoundary(t *testing.T) {
	d := NewDetector(config.Drift{Threshold: 0.05}, nil)

	exact := d.compare("accuracy", 0.95, 0.90)
	assert.False(t, exact.Significant, "a difference equal to the threshold is not significant")
	assert.Equal(t, StatusStable, exact.Status)

	over := d.compare("accuracy", 0.95, 0.899)
	assert.True(t, over.Significant)
	assert.Equal(t, StatusDegraded, over.Status)
}

func TestCompareStatusVocabulary(t *testing.T) {
	d := NewDetector(config.Drift{Threshold: 0.05}, nil)

	degraded := d.compare("accuracy", 0.92, 0.85)
	assert.Equal(t, StatusDegraded, degraded.Status)
	assert.True(t, degraded.Significant)
	assert.True(t, degraded.Degradation)

	improved := d.compare("accuracy", 0.85, 0.92)
	assert.Equal(t, StatusImproved, improved.Status)
	assert.True(t, improved.Significant)
	assert.False(t, improved.Degradation)

	stable := d.compare("accuracy", 0.90, 0.90)
	assert.Equal(t, StatusStable, stable.Status)
	assert.False(t, stable.Significant)
}
