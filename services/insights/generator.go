// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package insights turns drift reports into operator-facing analysis
// and keeps a searchable history of past incidents in Weaviate.
//
// Everything here is best-effort from the pipeline's point of view: the
// orchestrator logs insight failures and finishes the run regardless.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/netsentry/netsentry/services/pipeline/drift"
)

// Severity levels for an insight.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Insight is the operator-facing analysis of one drift report.
type Insight struct {
	Explanation      string   `json:"explanation"`
	Severity         string   `json:"severity"`
	Recommendations  []string `json:"recommendations"`
	TechnicalDetails string   `json:"technical_details"`
}

const systemPrompt = `You are an analyst for a network intrusion detection pipeline.
Given a model drift report, explain what changed and what the operator should do.
Respond with a single JSON object with keys: explanation (string), severity
(one of "info", "warning", "critical"), recommendations (array of strings),
technical_details (string). No other text.`

// Generator produces insights from drift reports. With a nil chat
// client it degrades to a deterministic rule-based analysis, so the
// pipeline never depends on API availability.
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator builds a generator. Pass an empty apiKey to disable the
// LLM path entirely.
func NewGenerator(apiKey, model string) *Generator {
	g := &Generator{model: model}
	if model == "" {
		g.model = openai.GPT4oMini
	}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	return g
}

// Generate analyses a drift report. LLM failures fall back to the
// rule-based insight; the error return is reserved for a nil report.
func (g *Generator) Generate(ctx context.Context, report *drift.Report) (Insight, error) {
	if report == nil {
		return Insight{}, fmt.Errorf("nil drift report")
	}
	if g.client == nil {
		return ruleBasedInsight(report), nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return ruleBasedInsight(report), nil
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: 0.2,
	})
	if err != nil || len(resp.Choices) == 0 {
		return ruleBasedInsight(report), nil
	}

	var insight Insight
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &insight); err != nil || insight.Explanation == "" {
		return ruleBasedInsight(report), nil
	}
	if !validSeverity(insight.Severity) {
		insight.Severity = severityFor(report)
	}
	return insight, nil
}

func validSeverity(s string) bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// ruleBasedInsight is the deterministic fallback.
func ruleBasedInsight(report *drift.Report) Insight {
	if report.BaselineCreated {
		return Insight{
			Explanation:      "First pipeline run: the trained model was promoted to baseline. Drift detection begins on the next run.",
			Severity:         SeverityInfo,
			Recommendations:  []string{"No action required."},
			TechnicalDetails: "baseline_created=true",
		}
	}

	var degraded []string
	for _, c := range report.Comparisons {
		if c.Status == drift.StatusDegraded {
			degraded = append(degraded, fmt.Sprintf("%s %.4f -> %.4f", c.Metric, c.Baseline, c.Current))
		}
	}

	if len(degraded) == 0 {
		return Insight{
			Explanation:      "Model performance is within the configured drift threshold of the baseline.",
			Severity:         SeverityInfo,
			Recommendations:  []string{"No action required."},
			TechnicalDetails: fmt.Sprintf("threshold=%.4f, metrics_compared=%d", report.Threshold, len(report.Comparisons)),
		}
	}

	severity := SeverityWarning
	if len(degraded) >= 2 {
		severity = SeverityCritical
	}
	return Insight{
		Explanation: fmt.Sprintf("Model drift detected: %d metric(s) degraded beyond the %.2f threshold against baseline %s.",
			len(degraded), report.Threshold, report.BaselineModel),
		Severity: severity,
		Recommendations: []string{
			"Inspect the drift report for the degraded metrics.",
			"Check whether the traffic mix feeding the feature store has shifted.",
			"Retrain on a fresher labeled window before promoting this model.",
		},
		TechnicalDetails: strings.Join(degraded, "; "),
	}
}

func severityFor(report *drift.Report) string {
	if report.DriftDetected {
		return SeverityWarning
	}
	return SeverityInfo
}
