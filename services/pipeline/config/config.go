// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the typed configuration for the training pipeline.
//
// Everything that was a free-floating constant or nested dict in earlier
// revisions lives here as a validated struct: drift thresholds, imputer
// hyperparameters, store coordinates, sync targets. Configuration is loaded
// once per process from YAML and validated at load time; stages receive the
// struct, never the file.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Pipeline is the root configuration for a training pipeline process.
type Pipeline struct {
	// ArtifactDir is the root under which each run creates its
	// timestamped directory.
	ArtifactDir string `yaml:"artifact_dir" validate:"required"`

	// ModelDir is the fixed "current production" directory. The baseline
	// model for drift detection lives here too.
	ModelDir string `yaml:"model_dir" validate:"required"`

	// SchemaPath points at the dataset schema YAML.
	SchemaPath string `yaml:"schema_path" validate:"required"`

	Ingestion      Ingestion      `yaml:"ingestion"`
	Validation     Validation     `yaml:"validation"`
	Transformation Transformation `yaml:"transformation"`
	Training       Training       `yaml:"training"`
	Drift          Drift          `yaml:"drift"`
	Sync           Sync           `yaml:"sync"`
	Tracking       Tracking       `yaml:"tracking"`
	Insights       Insights       `yaml:"insights"`
}

// Ingestion configures the document-store read and the train/test split.
type Ingestion struct {
	MongoURI   string  `yaml:"mongo_uri"`
	Database   string  `yaml:"database" validate:"required"`
	Collection string  `yaml:"collection" validate:"required"`
	TestRatio  float64 `yaml:"test_ratio" validate:"gt=0,lt=1"`
	// SplitSeed makes the shuffle deterministic for a fixed dataset.
	SplitSeed int64 `yaml:"split_seed"`
}

// Validation configures the schema check and dataset drift test.
type Validation struct {
	// DriftPValue is the KS-test p-value threshold. A column with
	// p < DriftPValue counts as drifted regardless of direction.
	DriftPValue float64 `yaml:"drift_p_value" validate:"gt=0,lt=1"`
}

// Transformation configures the preprocessing pipeline. The imputer
// hyperparameters are deliberately configuration, not inline literals.
type Transformation struct {
	ImputerNeighbors int    `yaml:"imputer_neighbors" validate:"min=1"`
	ImputerWeights   string `yaml:"imputer_weights" validate:"oneof=uniform distance"`
}

// Training configures grid search and acceptance.
type Training struct {
	CVFolds          int     `yaml:"cv_folds" validate:"min=2"`
	ExpectedAccuracy float64 `yaml:"expected_accuracy" validate:"gte=0,lte=1"`
}

// Drift configures model drift detection.
type Drift struct {
	// Threshold is the absolute metric-difference cutoff for
	// significance. Default 0.05.
	Threshold float64 `yaml:"threshold" validate:"gt=0,lt=1"`

	// RenderCharts enables comparison chart output. Chart failures are
	// never fatal.
	RenderCharts bool `yaml:"render_charts"`
}

// Sync configures the external artifact sink (bucket/prefix).
type Sync struct {
	// Bucket empty disables sync.
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Tracking configures the experiment-tracking collaborator.
type Tracking struct {
	// URI empty disables tracking.
	URI        string `yaml:"uri"`
	Experiment string `yaml:"experiment"`
}

// Insights configures the downstream insight generator and its vector
// store. The pipeline never depends on these for correctness.
type Insights struct {
	Enabled      bool   `yaml:"enabled"`
	WeaviateHost string `yaml:"weaviate_host"`
	OpenAIModel  string `yaml:"openai_model"`
}

// Default returns the configuration used when no file is present, matching
// the documented pipeline defaults.
func Default() Pipeline {
	return Pipeline{
		ArtifactDir: "Artifacts",
		ModelDir:    "final_model",
		SchemaPath:  "data_schema/schema.yaml",
		Ingestion: Ingestion{
			MongoURI:   "mongodb://localhost:27017",
			Database:   "netsentry",
			Collection: "NetworkData",
			TestRatio:  0.2,
			SplitSeed:  42,
		},
		Validation:     Validation{DriftPValue: 0.05},
		Transformation: Transformation{ImputerNeighbors: 3, ImputerWeights: "uniform"},
		Training:       Training{CVFolds: 3, ExpectedAccuracy: 0.6},
		Drift:          Drift{Threshold: 0.05, RenderCharts: true},
		Tracking:       Tracking{Experiment: "netsentry-training"},
		Insights:       Insights{OpenAIModel: "gpt-4o-mini"},
	}
}

// Load reads and validates a Pipeline config from a YAML file. Fields the
// file omits keep their defaults.
func Load(path string) (Pipeline, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the struct tags. Called by Load; exported so callers
// constructing configs in code can check them too.
func (p Pipeline) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return nil
}
