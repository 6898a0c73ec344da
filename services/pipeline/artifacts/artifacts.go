// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifacts defines the timestamped directory layout of a pipeline
// run and the immutable records each stage hands to the next.
//
// Every path is derived from a single run timestamp, so re-runs never
// collide and a run's whole output tree can be synced or deleted as a
// unit. Artifact structs carry no behavior: each stage consumes the prior
// stage's artifact by value and returns a new one.
package artifacts

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the directory-name layout for run timestamps.
const TimestampLayout = "01_02_2006_15_04_05"

// File names inside a run directory. Fixed so downstream tooling can
// locate outputs without consulting the run record.
const (
	FeatureStoreFile = "network_data.csv"
	TrainFile        = "train.csv"
	TestFile         = "test.csv"
	TrainMatrixFile  = "train.gob"
	TestMatrixFile   = "test.gob"
	PreprocessorFile = "preprocessor.gob"
	ModelFile        = "model.gob"
	DriftReportFile  = "report.yaml"
)

// Run identifies one pipeline execution and owns its directory layout.
type Run struct {
	// ID is a unique run identifier, independent of the timestamp.
	ID string

	// Timestamp is the single instant every path derives from.
	Timestamp time.Time

	// Stamp is Timestamp rendered with TimestampLayout.
	Stamp string

	// Dir is the run's artifact directory: <artifact root>/<stamp>.
	Dir string

	// ModelDir is the fixed production model directory shared by all
	// runs. Last writer wins; concurrent runs racing on it is an
	// accepted, documented hazard.
	ModelDir string
}

// NewRun creates a Run rooted at artifactRoot with the given timestamp.
func NewRun(artifactRoot, modelDir string, ts time.Time) Run {
	stamp := ts.Format(TimestampLayout)
	return Run{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Stamp:     stamp,
		Dir:       filepath.Join(artifactRoot, stamp),
		ModelDir:  modelDir,
	}
}

// Stage directories within the run.

func (r Run) IngestionDir() string      { return filepath.Join(r.Dir, "data_ingestion") }
func (r Run) ValidationDir() string     { return filepath.Join(r.Dir, "data_validation") }
func (r Run) TransformationDir() string { return filepath.Join(r.Dir, "data_transformation") }
func (r Run) TrainerDir() string        { return filepath.Join(r.Dir, "model_trainer") }
func (r Run) DriftDir() string          { return filepath.Join(r.Dir, "model_drift") }

// Ingestion outputs.

func (r Run) FeatureStorePath() string {
	return filepath.Join(r.IngestionDir(), "feature_store", FeatureStoreFile)
}
func (r Run) IngestedTrainPath() string {
	return filepath.Join(r.IngestionDir(), "ingested", TrainFile)
}
func (r Run) IngestedTestPath() string {
	return filepath.Join(r.IngestionDir(), "ingested", TestFile)
}

// Validation outputs.

func (r Run) ValidTrainPath() string { return filepath.Join(r.ValidationDir(), TrainFile) }
func (r Run) ValidTestPath() string  { return filepath.Join(r.ValidationDir(), TestFile) }
func (r Run) DatasetDriftReportPath() string {
	return filepath.Join(r.ValidationDir(), "drift_report", DriftReportFile)
}

// Transformation outputs.

func (r Run) TransformedTrainPath() string {
	return filepath.Join(r.TransformationDir(), "transformed", TrainMatrixFile)
}
func (r Run) TransformedTestPath() string {
	return filepath.Join(r.TransformationDir(), "transformed", TestMatrixFile)
}
func (r Run) PreprocessorPath() string {
	return filepath.Join(r.TransformationDir(), "transformed_object", PreprocessorFile)
}

// Trainer outputs.

func (r Run) TrainedModelPath() string {
	return filepath.Join(r.TrainerDir(), "trained_model", ModelFile)
}

// Drift outputs.

func (r Run) DriftReportDir() string { return filepath.Join(r.DriftDir(), "reports") }
func (r Run) DriftChartDir() string  { return filepath.Join(r.DriftDir(), "charts") }

// Production paths, shared across runs.

func (r Run) ProductionModelPath() string {
	return filepath.Join(r.ModelDir, ModelFile)
}
func (r Run) ProductionPreprocessorPath() string {
	return filepath.Join(r.ModelDir, PreprocessorFile)
}

// BaselineModelPath is the drift baseline. It is the production model
// path: the first run's model freezes the baseline until replaced.
func (r Run) BaselineModelPath() string { return r.ProductionModelPath() }

// ClassificationMetrics is the per-split scoring record produced by the
// trainer.
type ClassificationMetrics struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
}

// Ingestion is the record emitted by the data ingestion stage.
type Ingestion struct {
	FeatureStorePath string
	TrainPath        string
	TestPath         string
	RowCount         int
}

// Validation is the record emitted by the data validation stage. Status
// is the dataset-drift verdict: true means no drift. The validated CSVs
// exist regardless of Status.
type Validation struct {
	Status          bool
	TrainPath       string
	TestPath        string
	DriftReportPath string
}

// Transformation is the record emitted by the data transformation stage.
type Transformation struct {
	TrainMatrixPath  string
	TestMatrixPath   string
	PreprocessorPath string
}

// Trainer is the record emitted by the model training stage.
type Trainer struct {
	ModelPath    string
	ModelName    string
	TrainMetrics ClassificationMetrics
	TestMetrics  ClassificationMetrics
}

// Drift is the record emitted by the model drift stage.
type Drift struct {
	DriftDetected  bool
	JSONReportPath string
	TextReportPath string
	ChartPaths     []string
	Message        string
}
