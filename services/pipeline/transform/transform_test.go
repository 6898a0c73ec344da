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
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

func TestKNNImputerUniform(t *testing.T) {
	imp := NewKNNImputer(2, WeightsUniform)
	x := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{2, math.NaN()},
	}
	out, err := imp.FitTransform(x)
	require.NoError(t, err)

	// Nearest rows to {2, NaN} by first coordinate are {2,20} and then
	// {1,10} or {3,30} at equal distance; either gives a mean within
	// [15, 25].
	assert.False(t, math.IsNaN(out[3][1]))
	assert.GreaterOrEqual(t, out[3][1], 15.0)
	assert.LessOrEqual(t, out[3][1], 25.0)

	// Input is untouched.
	assert.True(t, math.IsNaN(x[3][1]))
}

func TestKNNImputerExactMatchDominatesDistanceWeighting(t *testing.T) {
	imp := NewKNNImputer(3, WeightsDistance)
	x := [][]float64{
		{5, 100},
		{5, 100},
		{9, 900},
		{5, math.NaN()},
	}
	out, err := imp.FitTransform(x)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out[3][1])
}

func TestKNNImputerColumnMeanFallback(t *testing.T) {
	imp := NewKNNImputer(2, WeightsUniform)
	require.NoError(t, imp.Fit([][]float64{{1, 4}, {3, 8}}))

	// Both coordinates missing: no mutually observed coordinate exists
	// against any reference row, so the column mean applies.
	out, err := imp.Transform([][]float64{{math.NaN(), math.NaN()}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0][0])
	assert.Equal(t, 6.0, out[0][1])
}

func TestKNNImputerRejectsBadConfig(t *testing.T) {
	assert.Error(t, NewKNNImputer(0, WeightsUniform).Fit([][]float64{{1}}))
	assert.Error(t, NewKNNImputer(1, "kernel").Fit([][]float64{{1}}))
	assert.Error(t, NewKNNImputer(1, WeightsUniform).Fit(nil))

	_, err := NewKNNImputer(1, WeightsUniform).Transform([][]float64{{1}})
	assert.Error(t, err, "transform before fit")
}

func TestMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "train.gob")
	m := &Matrix{
		Columns: []string{"a", "b", "Result"},
		Rows:    [][]float64{{1, 2, 1}, {3, 4, 0}},
	}
	require.NoError(t, SaveMatrix(path, m))

	got, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, m.Columns, got.Columns)
	assert.Equal(t, m.Rows, got.Rows)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, got.Features())
	assert.Equal(t, []float64{1, 0}, got.Labels())
	assert.Equal(t, []string{"a", "b"}, got.FeatureColumns())
}

func TestPreprocessorRoundTrip(t *testing.T) {
	imp := NewKNNImputer(2, WeightsUniform)
	require.NoError(t, imp.Fit([][]float64{{1, 2}, {3, 4}, {5, 6}}))

	path := filepath.Join(t.TempDir(), "preprocessor.gob")
	require.NoError(t, SavePreprocessor(path, imp))

	got, err := LoadPreprocessor(path)
	require.NoError(t, err)

	in := [][]float64{{1, math.NaN()}}
	want, err := imp.Transform(in)
	require.NoError(t, err)
	have, err := got.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func testSchema(t *testing.T) *config.Schema {
	t.Helper()
	schema, err := config.ParseSchema([]byte(`
columns:
  - duration: int64
  - src_bytes: float64
  - Result: int64
target_column: Result
`))
	require.NoError(t, err)
	return schema
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
}

func TestTransformerRun(t *testing.T) {
	dir := t.TempDir()
	run := artifacts.NewRun(filepath.Join(dir, "Artifacts"), filepath.Join(dir, "final_model"), time.Now())
	val := artifacts.Validation{
		TrainPath: run.ValidTrainPath(),
		TestPath:  run.ValidTestPath(),
	}
	writeCSV(t, val.TrainPath, "duration,src_bytes,Result\n1,10,1\n2,,-1\n3,30,1\n")
	writeCSV(t, val.TestPath, "duration,src_bytes,Result\n2,20,-1\n")

	tr := NewTransformer(testSchema(t), config.Transformation{ImputerNeighbors: 2, ImputerWeights: WeightsUniform}, nil)
	rec, err := tr.Run(run, val)
	require.NoError(t, err)

	train, err := LoadMatrix(rec.TrainMatrixPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"duration", "src_bytes", "Result"}, train.Columns)
	assert.Equal(t, []float64{1, 0, 1}, train.Labels(), "-1 labels remap to 0")
	for _, row := range train.Rows {
		for _, v := range row {
			assert.False(t, math.IsNaN(v), "no NaN survives imputation")
		}
	}

	test, err := LoadMatrix(rec.TestMatrixPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, test.Labels())

	assert.FileExists(t, rec.PreprocessorPath)
	assert.FileExists(t, run.ProductionPreprocessorPath())
}

func TestTransformerIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	run := artifacts.NewRun(filepath.Join(dir, "Artifacts"), filepath.Join(dir, "final_model"), time.Now())
	val := artifacts.Validation{
		TrainPath: run.ValidTrainPath(),
		TestPath:  run.ValidTestPath(),
	}
	writeCSV(t, val.TrainPath, "duration,src_bytes,Result\n1,10,1\n2,,-1\n3,30,1\n4,40,-1\n")
	writeCSV(t, val.TestPath, "duration,src_bytes,Result\n2,20,-1\n3,,1\n")

	tr := NewTransformer(testSchema(t), config.Transformation{ImputerNeighbors: 2, ImputerWeights: WeightsUniform}, nil)
	rec, err := tr.Run(run, val)
	require.NoError(t, err)

	firstTrain, err := os.ReadFile(rec.TrainMatrixPath)
	require.NoError(t, err)
	firstTest, err := os.ReadFile(rec.TestMatrixPath)
	require.NoError(t, err)
	firstPre, err := os.ReadFile(rec.PreprocessorPath)
	require.NoError(t, err)

	rec2, err := tr.Run(run, val)
	require.NoError(t, err)

	secondTrain, err := os.ReadFile(rec2.TrainMatrixPath)
	require.NoError(t, err)
	secondTest, err := os.ReadFile(rec2.TestMatrixPath)
	require.NoError(t, err)
	secondPre, err := os.ReadFile(rec2.PreprocessorPath)
	require.NoError(t, err)

	assert.Equal(t, firstTrain, secondTrain, "train matrix bytes differ between identical runs")
	assert.Equal(t, firstTest, secondTest, "test matrix bytes differ between identical runs")
	assert.Equal(t, firstPre, secondPre, "preprocessor bytes differ between identical runs")
}

func TestTransformerMissingTargetIsDataTypeError(t *testing.T) {
	dir := t.TempDir()
	run := artifacts.NewRun(filepath.Join(dir, "Artifacts"), filepath.Join(dir, "final_model"), time.Now())
	val := artifacts.Validation{
		TrainPath: run.ValidTrainPath(),
		TestPath:  run.ValidTestPath(),
	}
	writeCSV(t, val.TrainPath, "duration,src_bytes,Result\n1,10,\n")
	writeCSV(t, val.TestPath, "duration,src_bytes,Result\n1,10,1\n")

	tr := NewTransformer(testSchema(t), config.Transformation{ImputerNeighbors: 2, ImputerWeights: WeightsUniform}, nil)
	_, err := tr.Run(run, val)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindDataType))
}
