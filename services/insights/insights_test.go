// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insights

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsentry/netsentry/services/pipeline/drift"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	var e HashEmbedder
	a := e.Embed("accuracy degraded beyond threshold")
	b := e.Embed("accuracy degraded beyond threshold")
	assert.Equal(t, a, b)
	assert.Len(t, a, EmbedDim)
}

func TestHashEmbedderNormalized(t *testing.T) {
	var e HashEmbedder
	vec := e.Embed("recall drift on the current model")
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderSimilarTextsAreCloser(t *testing.T) {
	var e HashEmbedder
	a := e.Embed("accuracy dropped below the drift threshold")
	b := e.Embed("accuracy fell under the drift threshold")
	c := e.Embed("weaviate schema bootstrap completed quickly today")

	cos := func(x, y []float32) float64 {
		var dot float64
		for i := range x {
			dot += float64(x[i]) * float64(y[i])
		}
		return dot
	}
	assert.Greater(t, cos(a, b), cos(a, c))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	var e HashEmbedder
	vec := e.Embed("")
	for _, v := range vec {
		assert.False(t, math.IsNaN(float64(v)))
		assert.Zero(t, v)
	}
}

func TestRuleBasedInsightBaseline(t *testing.T) {
	g := NewGenerator("", "")
	insight, err := g.Generate(context.Background(), &drift.Report{BaselineCreated: true})
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, insight.Severity)
	assert.Contains(t, insight.Explanation, "baseline")
}

func TestRuleBasedInsightNoDrift(t *testing.T) {
	g := NewGenerator("", "")
	report := &drift.Report{
		Threshold: 0.05,
		Comparisons: []drift.MetricComparison{
			{Metric: "accuracy", Status: drift.StatusStable},
			{Metric: "f1_score", Status: drift.StatusStable},
		},
	}
	insight, err := g.Generate(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, insight.Severity)
}

func TestRuleBasedInsightSeverityScalesWithDegradedMetrics(t *testing.T) {
	g := NewGenerator("", "")

	one := &drift.Report{
		DriftDetected: true,
		BaselineModel: "Random Forest",
		Threshold:     0.05,
		Comparisons: []drift.MetricComparison{
			{Metric: "accuracy", Baseline: 0.95, Current: 0.80, Status: drift.StatusDegraded},
			{Metric: "f1_score", Status: drift.StatusStable},
		},
	}
	insight, err := g.Generate(context.Background(), one)
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, insight.Severity)
	assert.NotEmpty(t, insight.Recommendations)
	assert.Contains(t, insight.TechnicalDetails, "accuracy")

	two := &drift.Report{
		DriftDetected: true,
		Threshold:     0.05,
		Comparisons: []drift.MetricComparison{
			{Metric: "accuracy", Status: drift.StatusDegraded},
			{Metric: "recall", Status: drift.StatusDegraded},
		},
	}
	insight, err = g.Generate(context.Background(), two)
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, insight.Severity)
}

func TestGenerateRejectsNilReport(t *testing.T) {
	g := NewGenerator("", "")
	_, err := g.Generate(context.Background(), nil)
	assert.Error(t, err)
}
