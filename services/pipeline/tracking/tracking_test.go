// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopTracker(t *testing.T) {
	assert.NoError(t, Noop{}.LogRun(context.Background(), RunRecord{}))
}

func TestMLflowClientLogRun(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	params := map[string]string{}
	metrics := map[string]float64{}
	tags := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.URL.Path)

		switch r.URL.Path {
		case "/api/2.0/mlflow/experiments/get-by-name":
			http.Error(w, `{"error_code":"RESOURCE_DOES_NOT_EXIST"}`, http.StatusNotFound)
		case "/api/2.0/mlflow/experiments/create":
			json.NewEncoder(w).Encode(map[string]string{"experiment_id": "7"})
		case "/api/2.0/mlflow/runs/create":
			json.NewEncoder(w).Encode(map[string]any{
				"run": map[string]any{"info": map[string]any{"run_id": "run-1"}},
			})
		case "/api/2.0/mlflow/runs/log-parameter":
			var body struct{ Key, Value string }
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			params[body.Key] = body.Value
			w.Write([]byte("{}"))
		case "/api/2.0/mlflow/runs/log-metric":
			var body struct {
				Key   string
				Value float64
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			metrics[body.Key] = body.Value
			w.Write([]byte("{}"))
		case "/api/2.0/mlflow/runs/set-tag":
			var body struct{ Key, Value string }
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			tags[body.Key] = body.Value
			w.Write([]byte("{}"))
		case "/api/2.0/mlflow/runs/update":
			w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewMLflowClient(srv.URL, "netsentry")
	err := c.LogRun(context.Background(), RunRecord{
		RunName:   "08_31_2026_10_00_00",
		ModelName: "Random Forest",
		Params:    map[string]string{"model": "Random Forest"},
		Metrics:   map[string]float64{"f1_score": 0.91},
		Artifacts: map[string]string{"preprocessor": "/artifacts/run/preprocessor.gob"},
		StartedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Random Forest", params["model"])
	assert.Equal(t, 0.91, metrics["f1_score"])
	assert.Equal(t, "/artifacts/run/preprocessor.gob", tags["artifact.preprocessor"])
	assert.Contains(t, calls, "/api/2.0/mlflow/experiments/create")
	assert.Contains(t, calls, "/api/2.0/mlflow/runs/update")
}

func TestMLflowClientCachesExperimentID(t *testing.T) {
	lookups := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/2.0/mlflow/experiments/get-by-name":
			lookups++
			json.NewEncoder(w).Encode(map[string]any{
				"experiment": map[string]any{"experiment_id": "3"},
			})
		case "/api/2.0/mlflow/runs/create":
			json.NewEncoder(w).Encode(map[string]any{
				"run": map[string]any{"info": map[string]any{"run_id": "r"}},
			})
		default:
			w.Write([]byte("{}"))
		}
	}))
	defer srv.Close()

	c := NewMLflowClient(srv.URL, "netsentry")
	ctx := context.Background()
	require.NoError(t, c.LogRun(ctx, RunRecord{}))
	require.NoError(t, c.LogRun(ctx, RunRecord{}))
	assert.Equal(t, 1, lookups)
}

func TestMLflowClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewMLflowClient(srv.URL, "netsentry")
	err := c.LogRun(context.Background(), RunRecord{})
	assert.Error(t, err)
}
