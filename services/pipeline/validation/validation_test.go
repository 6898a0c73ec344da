// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

func TestKolmogorovSmirnovSameDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := make([]float64, 500)
	b := make([]float64, 500)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
	}
	res, err := KolmogorovSmirnov(a, b)
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.05, "same distribution should not look drifted")
}

func TestKolmogorovSmirnovShiftedDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := make([]float64, 500)
	b := make([]float64, 500)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64() + 3
	}
	res, err := KolmogorovSmirnov(a, b)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 1e-6)
	assert.Greater(t, res.Statistic, 0.5)
}

func TestKolmogorovSmirnovIdenticalSamples(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	res, err := KolmogorovSmirnov(a, a)
	require.NoError(t, err)
	assert.Zero(t, res.Statistic)
	assert.Equal(t, 1.0, res.PValue)
}

func TestKolmogorovSmirnovRejectsEmpty(t *testing.T) {
	_, err := KolmogorovSmirnov(nil, []float64{1})
	assert.Error(t, err)
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

func testRun(t *testing.T) artifacts.Run {
	t.Helper()
	dir := t.TempDir()
	return artifacts.NewRun(filepath.Join(dir, "Artifacts"), filepath.Join(dir, "final_model"), time.Now())
}

func TestValidatorHappyPath(t *testing.T) {
	run := testRun(t)
	ing := artifacts.Ingestion{
		TrainPath: run.IngestedTrainPath(),
		TestPath:  run.IngestedTestPath(),
	}
	writeCSV(t, ing.TrainPath, "duration,src_bytes,Result\n1,10.5,1\n2,11.0,0\n3,9.5,1\n4,10.0,0\n")
	writeCSV(t, ing.TestPath, "duration,src_bytes,Result\n2,10.1,1\n3,10.9,0\n1,9.9,1\n")

	v := NewValidator(testSchema(t), config.Validation{DriftPValue: 0.05}, nil)
	rec, err := v.Run(run, ing)
	require.NoError(t, err)

	assert.True(t, rec.Status)
	assert.FileExists(t, rec.TrainPath)
	assert.FileExists(t, rec.TestPath)
	assert.FileExists(t, rec.DriftReportPath)

	data, err := os.ReadFile(rec.DriftReportPath)
	require.NoError(t, err)
	var report map[string]ColumnDrift
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Len(t, report, 3)
	for col, entry := range report {
		assert.False(t, entry.DriftStatus, col)
	}
}

func TestValidatorMissingColumnIsSchemaViolation(t *testing.T) {
	run := testRun(t)
	ing := artifacts.Ingestion{
		TrainPath: run.IngestedTrainPath(),
		TestPath:  run.IngestedTestPath(),
	}
	writeCSV(t, ing.TrainPath, "duration,Result\n1,1\n2,0\n")
	writeCSV(t, ing.TestPath, "duration,Result\n1,1\n")

	v := NewValidator(testSchema(t), config.Validation{DriftPValue: 0.05}, nil)
	_, err := v.Run(run, ing)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindSchemaViolation))
}

func TestValidatorDropsUndeclaredColumns(t *testing.T) {
	run := testRun(t)
	ing := artifacts.Ingestion{
		TrainPath: run.IngestedTrainPath(),
		TestPath:  run.IngestedTestPath(),
	}
	writeCSV(t, ing.TrainPath, "duration,src_bytes,Result,extra\n1,10.5,1,x\n2,11.0,0,y\n")
	writeCSV(t, ing.TestPath, "duration,src_bytes,Result,extra\n2,10.1,1,z\n")

	v := NewValidator(testSchema(t), config.Validation{DriftPValue: 0.05}, nil)
	rec, err := v.Run(run, ing)
	require.NoError(t, err)

	frame, err := os.ReadFile(rec.TrainPath)
	require.NoError(t, err)
	assert.NotContains(t, string(frame), "extra")
}

func TestValidatorBadCellIsSchemaViolation(t *testing.T) {
	run := testRun(t)
	ing := artifacts.Ingestion{
		TrainPath: run.IngestedTrainPath(),
		TestPath:  run.IngestedTestPath(),
	}
	writeCSV(t, ing.TrainPath, "duration,src_bytes,Result\n1,not_a_number,1\n")
	writeCSV(t, ing.TestPath, "duration,src_bytes,Result\n1,1.0,1\n")

	v := NewValidator(testSchema(t), config.Validation{DriftPValue: 0.05}, nil)
	_, err := v.Run(run, ing)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindSchemaViolation))
	assert.Contains(t, err.Error(), "src_bytes")
	assert.Contains(t, err.Error(), "float64", "the message names the declared type")
}

func TestValidatorFlagsShiftedColumn(t *testing.T) {
	run := testRun(t)
	ing := artifacts.Ingestion{
		TrainPath: run.IngestedTrainPath(),
		TestPath:  run.IngestedTestPath(),
	}

	rng := rand.New(rand.NewSource(3))
	trainCSV := "duration,src_bytes,Result\n"
	testCSV := "duration,src_bytes,Result\n"
	for i := 0; i < 200; i++ {
		trainCSV += "1," + floatCell(rng.NormFloat64()) + ",1\n"
		testCSV += "1," + floatCell(rng.NormFloat64()+5) + ",1\n"
	}
	writeCSV(t, ing.TrainPath, trainCSV)
	writeCSV(t, ing.TestPath, testCSV)

	v := NewValidator(testSchema(t), config.Validation{DriftPValue: 0.05}, nil)
	rec, err := v.Run(run, ing)
	require.NoError(t, err)
	assert.False(t, rec.Status, "shifted src_bytes should flag dataset drift")

	data, err := os.ReadFile(rec.DriftReportPath)
	require.NoError(t, err)
	var report map[string]ColumnDrift
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.True(t, report["src_bytes"].DriftStatus)
	assert.False(t, report["duration"].DriftStatus)
}

func floatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
