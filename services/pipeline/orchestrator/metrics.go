// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsentry_pipeline_runs_total",
		Help: "Pipeline runs by terminal status.",
	}, []string{"status"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netsentry_pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration per pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"stage"})

	driftDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netsentry_model_drift_detected",
		Help: "1 when the most recent run detected model drift.",
	})

	lastTestAccuracy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netsentry_model_test_accuracy",
		Help: "Test-split accuracy of the most recently trained model.",
	})
)
