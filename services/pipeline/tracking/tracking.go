// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracking records training runs against an MLflow-compatible
// tracking server. Tracking is best-effort everywhere: callers log
// failures and keep going.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RunRecord is one experiment run's worth of logged data. Artifacts
// maps an artifact name (e.g. "preprocessor") to its stored path; the
// paths are recorded on the run as tags.
type RunRecord struct {
	RunName   string
	ModelName string
	Params    map[string]string
	Metrics   map[string]float64
	Artifacts map[string]string
	StartedAt time.Time
}

// Tracker logs experiment runs.
type Tracker interface {
	LogRun(ctx context.Context, rec RunRecord) error
}

// Noop discards every record.
type Noop struct{}

func (Noop) LogRun(context.Context, RunRecord) error { return nil }

// MLflowClient talks to the MLflow REST API (api/2.0/mlflow). Only the
// calls the pipeline needs are implemented: experiment lookup/creation,
// run creation, metric and parameter logging, run termination.
type MLflowClient struct {
	baseURL    string
	experiment string
	httpClient *http.Client

	experimentID string
}

// NewMLflowClient points at a tracking server, e.g. "http://127.0.0.1:5000".
func NewMLflowClient(baseURL, experiment string) *MLflowClient {
	return &MLflowClient{
		baseURL:    baseURL,
		experiment: experiment,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// LogRun creates a run under the configured experiment, logs every param
// and metric, and marks the run FINISHED.
func (c *MLflowClient) LogRun(ctx context.Context, rec RunRecord) error {
	expID, err := c.ensureExperiment(ctx)
	if err != nil {
		return fmt.Errorf("resolving experiment %q: %w", c.experiment, err)
	}

	var created struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	err = c.post(ctx, "runs/create", map[string]any{
		"experiment_id": expID,
		"run_name":      rec.RunName,
		"start_time":    rec.StartedAt.UnixMilli(),
	}, &created)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	runID := created.Run.Info.RunID

	for k, v := range rec.Params {
		if err := c.post(ctx, "runs/log-parameter", map[string]any{
			"run_id": runID, "key": k, "value": v,
		}, nil); err != nil {
			return fmt.Errorf("logging param %q: %w", k, err)
		}
	}
	now := time.Now().UnixMilli()
	for k, v := range rec.Metrics {
		if err := c.post(ctx, "runs/log-metric", map[string]any{
			"run_id": runID, "key": k, "value": v, "timestamp": now,
		}, nil); err != nil {
			return fmt.Errorf("logging metric %q: %w", k, err)
		}
	}
	for name, path := range rec.Artifacts {
		if err := c.post(ctx, "runs/set-tag", map[string]any{
			"run_id": runID, "key": "artifact." + name, "value": path,
		}, nil); err != nil {
			return fmt.Errorf("logging artifact %q: %w", name, err)
		}
	}

	return c.post(ctx, "runs/update", map[string]any{
		"run_id": runID, "status": "FINISHED", "end_time": time.Now().UnixMilli(),
	}, nil)
}

// ensureExperiment resolves the experiment ID, creating the experiment
// on first use.
func (c *MLflowClient) ensureExperiment(ctx context.Context) (string, error) {
	if c.experimentID != "" {
		return c.experimentID, nil
	}

	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := c.get(ctx, "experiments/get-by-name?experiment_name="+c.experiment, &got)
	if err == nil && got.Experiment.ExperimentID != "" {
		c.experimentID = got.Experiment.ExperimentID
		return c.experimentID, nil
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.post(ctx, "experiments/create", map[string]any{"name": c.experiment}, &created); err != nil {
		return "", err
	}
	c.experimentID = created.ExperimentID
	return c.experimentID, nil
}

func (c *MLflowClient) post(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/2.0/mlflow/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *MLflowClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/2.0/mlflow/"+endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *MLflowClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tracking server returned %s for %s", resp.Status, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
