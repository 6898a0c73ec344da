// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator sequences the training pipeline end to end:
// ingestion, validation, transformation, training, drift detection,
// then promotion of the new model to production.
//
// Stage faults abort the run. Cloud sync, run-history writes, and
// insight generation are side channels: their failures are logged and
// the run still succeeds.
package orchestrator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/netsentry/netsentry/pkg/faults"
	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/cloudsync"
	"github.com/netsentry/netsentry/services/pipeline/config"
	"github.com/netsentry/netsentry/services/pipeline/drift"
	"github.com/netsentry/netsentry/services/pipeline/ingestion"
	"github.com/netsentry/netsentry/services/pipeline/runstore"
	"github.com/netsentry/netsentry/services/pipeline/tracking"
	"github.com/netsentry/netsentry/services/pipeline/trainer"
	"github.com/netsentry/netsentry/services/pipeline/transform"
	"github.com/netsentry/netsentry/services/pipeline/validation"
)

// InsightNotifier receives the drift verdict after a successful run.
type InsightNotifier interface {
	NotifyDrift(ctx context.Context, runStamp string, report *drift.Report) error
}

// Result bundles every stage record of one completed run. DriftErr is
// set when drift detection failed but the run still produced a model.
type Result struct {
	Run            artifacts.Run
	Ingestion      artifacts.Ingestion
	Validation     artifacts.Validation
	Transformation artifacts.Transformation
	Trainer        artifacts.Trainer
	Drift          artifacts.Drift
	DriftErr       error
}

// Orchestrator owns the collaborators one pipeline run needs. Optional
// fields (Syncer, History, Insights) may be nil.
type Orchestrator struct {
	cfg    *config.Pipeline
	schema *config.Schema
	store  ingestion.DocumentStore

	tracker  tracking.Tracker
	syncer   cloudsync.Syncer
	history  *runstore.Store
	insights InsightNotifier

	log *logging.Logger
	now func() time.Time
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithSyncer enables best-effort artifact sync.
func WithSyncer(s cloudsync.Syncer) Option { return func(o *Orchestrator) { o.syncer = s } }

// WithHistory enables the local run history.
func WithHistory(h *runstore.Store) Option { return func(o *Orchestrator) { o.history = h } }

// WithInsights enables post-run drift analysis.
func WithInsights(n InsightNotifier) Option { return func(o *Orchestrator) { o.insights = n } }

// WithTracker sets the experiment tracker. Defaults to a no-op.
func WithTracker(t tracking.Tracker) Option { return func(o *Orchestrator) { o.tracker = t } }

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New builds an orchestrator. cfg, schema, and store are required.
func New(cfg *config.Pipeline, schema *config.Schema, store ingestion.DocumentStore, log *logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Default()
	}
	o := &Orchestrator{
		cfg:     cfg,
		schema:  schema,
		store:   store,
		tracker: tracking.Noop{},
		log:     log.With("component", "orchestrator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunPipeline executes one full training run.
func (o *Orchestrator) RunPipeline(ctx context.Context) (Result, error) {
	run := artifacts.NewRun(o.cfg.ArtifactDir, o.cfg.ModelDir, o.now())
	o.log.Info("pipeline run starting", "run_id", run.ID, "dir", run.Dir)

	result, err := o.runStages(ctx, run)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		o.recordHistory(run, result, err)
		return result, err
	}
	runsTotal.WithLabelValues("succeeded").Inc()
	lastTestAccuracy.Set(result.Trainer.TestMetrics.Accuracy)
	if result.Drift.DriftDetected {
		driftDetected.Set(1)
	} else {
		driftDetected.Set(0)
	}

	o.recordHistory(run, result, nil)
	o.syncArtifacts(ctx, run)
	o.notifyInsights(ctx, run, result.Drift)

	o.log.Info("pipeline run complete",
		"run_id", run.ID,
		"model", result.Trainer.ModelName,
		"test_accuracy", result.Trainer.TestMetrics.Accuracy,
		"drift_detected", result.Drift.DriftDetected)
	return result, nil
}

func (o *Orchestrator) runStages(ctx context.Context, run artifacts.Run) (Result, error) {
	result := Result{Run: run}
	var err error

	result.Ingestion, err = timeStage("data_ingestion", func() (artifacts.Ingestion, error) {
		return ingestion.NewIngestor(o.store, o.cfg.Ingestion, o.log).Run(ctx, run)
	})
	if err != nil {
		return result, err
	}

	result.Validation, err = timeStage("data_validation", func() (artifacts.Validation, error) {
		return validation.NewValidator(o.schema, o.cfg.Validation, o.log).Run(run, result.Ingestion)
	})
	if err != nil {
		return result, err
	}

	result.Transformation, err = timeStage("data_transformation", func() (artifacts.Transformation, error) {
		return transform.NewTransformer(o.schema, o.cfg.Transformation, o.log).Run(run, result.Validation)
	})
	if err != nil {
		return result, err
	}

	result.Trainer, err = timeStage("model_trainer", func() (artifacts.Trainer, error) {
		return trainer.NewTrainer(o.cfg.Training, o.tracker, o.log).Run(ctx, run, result.Transformation)
	})
	if err != nil {
		return result, err
	}

	// Drift detection is isolated: a trained model still ships when
	// the comparison itself fails.
	result.Drift, err = timeStage("model_drift", func() (artifacts.Drift, error) {
		detector := drift.NewDetector(o.cfg.Drift, o.log)
		return detector.Run(run, result.Trainer, result.Transformation)
	})
	if err != nil {
		result.DriftErr = err
		result.Drift = artifacts.Drift{Message: "drift detection failed: " + err.Error()}
		o.log.Warn("continuing without drift detection", "error", err)
	}

	if err := o.promote(run, result); err != nil {
		return result, err
	}
	return result, nil
}

// promote copies the run's model into the production slot. A drifted
// model still ships, matching the always-overwrite deployment model,
// but loudly.
func (o *Orchestrator) promote(run artifacts.Run, result Result) error {
	if result.Drift.DriftDetected {
		o.log.Warn("promoting model despite detected drift", "model", result.Trainer.ModelName)
	}
	if err := copyFile(result.Trainer.ModelPath, run.ProductionModelPath()); err != nil {
		return faults.Wrap(faults.KindInternal, err, "promoting model to production")
	}
	return nil
}

func timeStage[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return out, err
}

// recordHistory writes the run outcome. Best-effort.
func (o *Orchestrator) recordHistory(run artifacts.Run, result Result, runErr error) {
	if o.history == nil {
		return
	}
	rec := runstore.Record{
		ID:             run.ID,
		Stamp:          run.Stamp,
		StartedAt:      run.Timestamp,
		Status:         runstore.StatusSucceeded,
		ModelName:      result.Trainer.ModelName,
		TestAccuracy:   result.Trainer.TestMetrics.Accuracy,
		DriftDetected:  result.Drift.DriftDetected,
		DriftReportTxt: result.Drift.TextReportPath,
	}
	if runErr != nil {
		rec.Status = runstore.StatusFailed
		rec.Error = runErr.Error()
	} else if result.DriftErr != nil {
		// Succeeded run, but the drift comparison itself broke.
		rec.Error = result.DriftErr.Error()
	}
	if err := o.history.Put(rec); err != nil {
		o.log.Warn("run history write failed", "error", err)
	}
}

// syncArtifacts mirrors the run directory and the production model.
// Best-effort.
func (o *Orchestrator) syncArtifacts(ctx context.Context, run artifacts.Run) {
	if o.syncer == nil {
		return
	}
	if err := o.syncer.SyncDir(ctx, run.Dir, filepath.Join("artifacts", run.Stamp)); err != nil {
		sf := faults.Wrap(faults.KindSync, err, "syncing run artifacts")
		o.log.Warn("continuing without artifact sync", "error", sf.Error())
	}
	if err := o.syncer.SyncDir(ctx, run.ModelDir, "final_model"); err != nil {
		sf := faults.Wrap(faults.KindSync, err, "syncing production model")
		o.log.Warn("continuing without model sync", "error", sf.Error())
	}
}

// notifyInsights feeds the drift report to the insight sink. Best-effort.
func (o *Orchestrator) notifyInsights(ctx context.Context, run artifacts.Run, rec artifacts.Drift) {
	if o.insights == nil || rec.JSONReportPath == "" {
		return
	}
	report, err := drift.LoadReport(rec.JSONReportPath)
	if err != nil {
		o.log.Warn("insight skipped, unreadable drift report", "error", err)
		return
	}
	if err := o.insights.NotifyDrift(ctx, run.Stamp, report); err != nil {
		o.log.Warn("insight generation failed", "error", err)
	}
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
