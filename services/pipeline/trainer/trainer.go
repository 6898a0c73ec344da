// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trainer selects and fits the intrusion classifier. Each model
// family runs a k-fold grid search on the train split; the winner per
// family is refit and scored on the held-out test split, and the family
// with the best test accuracy wins. Ties go to the family declared
// first in the roster.
package trainer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/config"
	"github.com/netsentry/netsentry/services/pipeline/mlmetrics"
	"github.com/netsentry/netsentry/services/pipeline/tracking"
	"github.com/netsentry/netsentry/services/pipeline/transform"
)

// Trainer runs the model training stage.
type Trainer struct {
	cfg     config.Training
	tracker tracking.Tracker
	log     *logging.Logger
}

// NewTrainer wires the stage. A nil tracker disables experiment logging;
// a nil logger falls back to the process default.
func NewTrainer(cfg config.Training, tracker tracking.Tracker, log *logging.Logger) *Trainer {
	if tracker == nil {
		tracker = tracking.Noop{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Trainer{cfg: cfg, tracker: tracker, log: log.With("component", "model_trainer")}
}

// Run trains the roster, persists the winning bundle into the run
// directory, and logs the run to the tracker. Tracking failures are
// logged and swallowed.
func (t *Trainer) Run(ctx context.Context, run artifacts.Run, trans artifacts.Transformation) (artifacts.Trainer, error) {
	train, err := transform.LoadMatrix(trans.TrainMatrixPath)
	if err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "loading train matrix")
	}
	test, err := transform.LoadMatrix(trans.TestMatrixPath)
	if err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "loading test matrix")
	}
	preprocessor, err := transform.LoadPreprocessor(trans.PreprocessorPath)
	if err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "loading preprocessor")
	}

	trainX, trainY := train.Features(), train.Labels()
	testX, testY := test.Features(), test.Labels()

	var best *searchResult
	for _, fam := range defaultRoster(42) {
		res, err := gridSearch(fam, trainX, trainY, testX, testY, t.cfg.CVFolds)
		if err != nil {
			return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "grid search failed for %s", fam.name)
		}
		t.log.Info("family evaluated",
			"model", res.familyName,
			"cv_accuracy", res.cvScore,
			"test_accuracy", res.testScore,
			"params", fmt.Sprintf("%v", res.params))

		// Strict greater-than keeps the first-declared family on ties.
		if best == nil || res.testScore > best.testScore {
			r := res
			best = &r
		}
	}

	if best.testScore < t.cfg.ExpectedAccuracy {
		return artifacts.Trainer{}, faults.New(faults.KindTraining,
			"best model %s scored %.4f on the test split, below the expected accuracy %.4f",
			best.familyName, best.testScore, t.cfg.ExpectedAccuracy)
	}

	trainMetrics, err := scoreSplit(best, trainX, trainY)
	if err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "scoring train split")
	}
	testMetrics, err := scoreSplit(best, testX, testY)
	if err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "scoring test split")
	}

	bundle := &Bundle{
		FeatureColumns: train.FeatureColumns(),
		ModelName:      best.familyName,
		Preprocessor:   preprocessor,
		Model:          best.model,
	}
	if err := SaveBundle(run.TrainedModelPath(), bundle); err != nil {
		return artifacts.Trainer{}, faults.Wrap(faults.KindTraining, err, "persisting model bundle")
	}

	t.logToTracker(ctx, run, best, trainMetrics, testMetrics)

	t.log.Info("training complete",
		"model", best.familyName,
		"test_accuracy", testMetrics.Accuracy,
		"test_f1", testMetrics.F1)

	return artifacts.Trainer{
		ModelPath:    run.TrainedModelPath(),
		ModelName:    best.familyName,
		TrainMetrics: trainMetrics,
		TestMetrics:  testMetrics,
	}, nil
}

func scoreSplit(res *searchResult, x [][]float64, y []float64) (artifacts.ClassificationMetrics, error) {
	preds, err := res.model.Predict(x)
	if err != nil {
		return artifacts.ClassificationMetrics{}, err
	}
	s, err := mlmetrics.Score(y, preds)
	if err != nil {
		return artifacts.ClassificationMetrics{}, err
	}
	return artifacts.ClassificationMetrics{
		Accuracy:  s.Accuracy,
		Precision: s.Precision,
		Recall:    s.Recall,
		F1:        s.F1,
	}, nil
}

// logToTracker records the run; failures never fail the stage.
func (t *Trainer) logToTracker(ctx context.Context, run artifacts.Run, best *searchResult, trainM, testM artifacts.ClassificationMetrics) {
	params := map[string]string{"model": best.familyName}
	for k, v := range best.params {
		params[k] = v
	}
	params["cv_accuracy"] = strconv.FormatFloat(best.cvScore, 'g', 6, 64)

	rec := tracking.RunRecord{
		RunName:   run.Stamp,
		ModelName: best.familyName,
		Params:    params,
		Metrics: map[string]float64{
			"train_accuracy":  trainM.Accuracy,
			"train_f1_score":  trainM.F1,
			"train_precision": trainM.Precision,
			"train_recall":    trainM.Recall,
			"test_accuracy":   testM.Accuracy,
			"test_f1_score":   testM.F1,
			"test_precision":  testM.Precision,
			"test_recall":     testM.Recall,
		},
		Artifacts: map[string]string{
			"preprocessor": run.PreprocessorPath(),
			"model":        run.TrainedModelPath(),
		},
		StartedAt: run.Timestamp,
	}
	if err := t.tracker.LogRun(ctx, rec); err != nil {
		tf := faults.Wrap(faults.KindTracking, err, "experiment tracking failed")
		t.log.Warn("continuing without tracking", "error", tf.Error())
	}
}
