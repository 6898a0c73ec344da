// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifacts

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRun_DeterministicPaths(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	run := NewRun("Artifacts", "final_model", ts)

	if run.Stamp != "08_30_2026_14_05_09" {
		t.Errorf("Stamp = %q, want 08_30_2026_14_05_09", run.Stamp)
	}
	if run.Dir != filepath.Join("Artifacts", "08_30_2026_14_05_09") {
		t.Errorf("Dir = %q", run.Dir)
	}

	// every stage path lives under the run dir
	stagePaths := []string{
		run.FeatureStorePath(),
		run.IngestedTrainPath(),
		run.ValidTrainPath(),
		run.ValidTestPath(),
		run.DatasetDriftReportPath(),
		run.TransformedTrainPath(),
		run.TransformedTestPath(),
		run.PreprocessorPath(),
		run.TrainedModelPath(),
		run.DriftReportDir(),
		run.DriftChartDir(),
	}
	for _, p := range stagePaths {
		if !strings.HasPrefix(p, run.Dir) {
			t.Errorf("path %q not under run dir %q", p, run.Dir)
		}
	}

	// production paths live outside the run dir
	if strings.HasPrefix(run.ProductionModelPath(), run.Dir) {
		t.Errorf("production model path %q should not be run-scoped", run.ProductionModelPath())
	}
	if run.BaselineModelPath() != run.ProductionModelPath() {
		t.Error("baseline path should equal production model path")
	}
}

func TestNewRun_UniqueIDs(t *testing.T) {
	ts := time.Now()
	a := NewRun("Artifacts", "final_model", ts)
	b := NewRun("Artifacts", "final_model", ts)
	if a.ID == b.ID {
		t.Error("two runs share an ID")
	}
	// two runs with the same timestamp share a directory
	if a.Dir != b.Dir {
		t.Error("same timestamp should map to same dir")
	}
}
