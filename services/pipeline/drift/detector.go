// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drift compares the freshly trained model against the deployed
// baseline on the current test split.
//
// A metric drifts when its absolute change exceeds the configured
// threshold AND the change is a degradation. The first pipeline run has
// no baseline; the detector promotes the current model to baseline and
// reports that instead of failing.
package drift

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
	"github.com/netsentry/netsentry/services/pipeline/mlmetrics"
	"github.com/netsentry/netsentry/services/pipeline/models"
	"github.com/netsentry/netsentry/services/pipeline/trainer"
	"github.com/netsentry/netsentry/services/pipeline/transform"
)

// Per-metric statuses. A metric is degraded or improved only when the
// change clears the significance threshold; everything else is stable.
const (
	StatusDegraded = "degraded"
	StatusImproved = "improved"
	StatusStable   = "stable"
)

// MetricComparison is one metric's baseline/current pairing in the
// drift report.
type MetricComparison struct {
	Metric      string  `json:"metric"`
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	Difference  float64 `json:"difference"`
	Significant bool    `json:"is_significant"`
	Degradation bool    `json:"is_degradation"`
	Status      string  `json:"status"`
}

// Report is the full drift verdict persisted as JSON.
type Report struct {
	GeneratedAt     string             `json:"generated_at"`
	BaselineModel   string             `json:"baseline_model"`
	CurrentModel    string             `json:"current_model"`
	Threshold       float64            `json:"threshold"`
	DriftDetected   bool               `json:"drift_detected"`
	BaselineCreated bool               `json:"baseline_created"`
	BaselineMetrics *mlmetrics.Summary `json:"baseline_metrics,omitempty"`
	CurrentMetrics  *mlmetrics.Summary `json:"current_metrics,omitempty"`
	Comparisons     []MetricComparison `json:"comparisons"`
	Recommendations []string           `json:"recommendations"`
}

// Detector runs the model drift stage.
type Detector struct {
	cfg config.Drift
	log *logging.Logger

	// now is swappable for tests; reports embed a fresh timestamp.
	now func() time.Time
}

// NewDetector wires the stage. A nil logger falls back to the process
// default.
func NewDetector(cfg config.Drift, log *logging.Logger) *Detector {
	if log == nil {
		log = logging.Default()
	}
	return &Detector{cfg: cfg, log: log.With("component", "model_drift"), now: time.Now}
}

// Run evaluates the run's model against the baseline. Chart rendering
// failures are logged, never fatal; metric computation failures are.
func (d *Detector) Run(run artifacts.Run, trained artifacts.Trainer, trans artifacts.Transformation) (artifacts.Drift, error) {
	current, err := trainer.LoadBundle(trained.ModelPath)
	if err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "loading current model")
	}

	baselinePath := run.BaselineModelPath()
	if _, err := os.Stat(baselinePath); os.IsNotExist(err) {
		return d.bootstrapBaseline(run, trained)
	}

	baseline, err := trainer.LoadBundle(baselinePath)
	if err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "loading baseline model")
	}

	test, err := transform.LoadMatrix(trans.TestMatrixPath)
	if err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "loading test matrix")
	}
	x, y := test.Features(), test.Labels()

	baseSummary, baseAUC, err := evaluate(baseline.Model, x, y)
	if err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "evaluating baseline model")
	}
	curSummary, curAUC, err := evaluate(current.Model, x, y)
	if err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "evaluating current model")
	}

	report := d.buildReport(baseline.ModelName, current.ModelName, baseSummary, curSummary, baseAUC, curAUC)

	stamp := d.now().Format(artifacts.TimestampLayout)
	jsonPath := filepath.Join(run.DriftReportDir(), "drift_report_"+stamp+".json")
	textPath := filepath.Join(run.DriftReportDir(), "drift_report_"+stamp+".txt")
	if err := writeJSONReport(jsonPath, report); err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "writing json report")
	}
	if err := writeTextReport(textPath, report); err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "writing text report")
	}

	var charts []string
	if d.cfg.RenderCharts {
		comparisonPath := filepath.Join(run.DriftChartDir(), "metrics_comparison_"+stamp+".png")
		if err := renderComparisonChart(comparisonPath, report.Comparisons); err != nil {
			d.log.Warn("chart rendering failed", "chart", "metrics_comparison", "error", err)
		} else {
			charts = append(charts, comparisonPath)
		}

		differencePath := filepath.Join(run.DriftChartDir(), "metrics_difference_"+stamp+".png")
		if err := renderDifferenceChart(differencePath, report.Comparisons); err != nil {
			d.log.Warn("chart rendering failed", "chart", "metrics_difference", "error", err)
		} else {
			charts = append(charts, differencePath)
		}

		baseHeatmapPath := filepath.Join(run.DriftChartDir(), "confusion_matrix_baseline_"+stamp+".png")
		if err := renderConfusionHeatmap(baseHeatmapPath, "Baseline Model Confusion Matrix", baseSummary.ConfusionMatrix, baseSummary.Labels); err != nil {
			d.log.Warn("chart rendering failed", "chart", "confusion_matrix_baseline", "error", err)
		} else {
			charts = append(charts, baseHeatmapPath)
		}

		curHeatmapPath := filepath.Join(run.DriftChartDir(), "confusion_matrix_current_"+stamp+".png")
		if err := renderConfusionHeatmap(curHeatmapPath, "Current Model Confusion Matrix", curSummary.ConfusionMatrix, curSummary.Labels); err != nil {
			d.log.Warn("chart rendering failed", "chart", "confusion_matrix_current", "error", err)
		} else {
			charts = append(charts, curHeatmapPath)
		}
	}

	message := "no model drift detected"
	if report.DriftDetected {
		message = "model drift detected"
		d.log.Warn(message, "baseline", baseline.ModelName, "current", current.ModelName)
	} else {
		d.log.Info(message)
	}

	return artifacts.Drift{
		DriftDetected:  report.DriftDetected,
		JSONReportPath: jsonPath,
		TextReportPath: textPath,
		ChartPaths:     charts,
		Message:        message,
	}, nil
}

// bootstrapBaseline copies the current model into the baseline slot and
// reports the promotion.
func (d *Detector) bootstrapBaseline(run artifacts.Run, trained artifacts.Trainer) (artifacts.Drift, error) {
	if err := copyFile(trained.ModelPath, run.BaselineModelPath()); err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "promoting first model to baseline")
	}

	report := Report{
		GeneratedAt:     d.now().Format(time.RFC3339),
		CurrentModel:    trained.ModelName,
		Threshold:       d.cfg.Threshold,
		BaselineCreated: true,
		Recommendations: []string{"Baseline created from the current model; drift detection starts on the next run."},
	}

	stamp := d.now().Format(artifacts.TimestampLayout)
	jsonPath := filepath.Join(run.DriftReportDir(), "drift_report_"+stamp+".json")
	textPath := filepath.Join(run.DriftReportDir(), "drift_report_"+stamp+".txt")
	if err := writeJSONReport(jsonPath, report); err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "writing json report")
	}
	if err := writeTextReport(textPath, report); err != nil {
		return artifacts.Drift{}, faults.Wrap(faults.KindDriftComputation, err, "writing text report")
	}

	d.log.Info("baseline created", "model", trained.ModelName, "path", run.BaselineModelPath())
	return artifacts.Drift{
		JSONReportPath: jsonPath,
		TextReportPath: textPath,
		Message:        "baseline created",
	}, nil
}

// evaluate scores a classifier on the split; the AUC pointer is nil when
// the model exposes no probabilities or AUC is undefined.
func evaluate(clf models.Classifier, x [][]float64, y []float64) (mlmetrics.Summary, *float64, error) {
	preds, err := clf.Predict(x)
	if err != nil {
		return mlmetrics.Summary{}, nil, err
	}
	summary, err := mlmetrics.Score(y, preds)
	if err != nil {
		return mlmetrics.Summary{}, nil, err
	}

	var auc *float64
	if pe, ok := clf.(models.ProbabilityEstimator); ok {
		probs, err := pe.PredictProba(x)
		if err != nil {
			return mlmetrics.Summary{}, nil, err
		}
		if v, ok := mlmetrics.ROCAUC(y, probs); ok {
			auc = &v
			summary.AUC = v
			summary.AUCValid = true
		}
	}
	return summary, auc, nil
}

func (d *Detector) buildReport(baseName, curName string, base, cur mlmetrics.Summary, baseAUC, curAUC *float64) Report {
	comparisons := []MetricComparison{
		d.compare("accuracy", base.Accuracy, cur.Accuracy),
		d.compare("precision", base.Precision, cur.Precision),
		d.compare("recall", base.Recall, cur.Recall),
		d.compare("f1_score", base.F1, cur.F1),
	}
	// AUC joins the table only when both sides have it.
	if baseAUC != nil && curAUC != nil {
		comparisons = append(comparisons, d.compare("auc", *baseAUC, *curAUC))
	}

	drift := false
	for _, c := range comparisons {
		if c.Status == StatusDegraded {
			drift = true
			break
		}
	}

	return Report{
		GeneratedAt:     d.now().Format(time.RFC3339),
		BaselineModel:   baseName,
		CurrentModel:    curName,
		Threshold:       d.cfg.Threshold,
		DriftDetected:   drift,
		BaselineMetrics: &base,
		CurrentMetrics:  &cur,
		Comparisons:     comparisons,
		Recommendations: recommendations(drift, comparisons),
	}
}

func (d *Detector) compare(metric string, baseline, current float64) MetricComparison {
	diff := current - baseline
	significant := diff > d.cfg.Threshold || diff < -d.cfg.Threshold
	degradation := current < baseline

	status := StatusStable
	switch {
	case significant && degradation:
		status = StatusDegraded
	case significant:
		status = StatusImproved
	}
	return MetricComparison{
		Metric:      metric,
		Baseline:    baseline,
		Current:     current,
		Difference:  diff,
		Significant: significant,
		Degradation: degradation,
		Status:      status,
	}
}

func recommendations(drift bool, comparisons []MetricComparison) []string {
	if !drift {
		return []string{"Model performance is stable; no action required."}
	}
	recs := []string{
		"Investigate recent changes in the traffic feeding the feature store.",
		"Consider retraining on a fresher window of labeled flows.",
	}
	for _, c := range comparisons {
		if c.Status == StatusDegraded {
			recs = append(recs, "Review the "+c.Metric+" degradation before promoting this model.")
		}
	}
	return recs
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
