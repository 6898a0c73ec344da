// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/netsentry/netsentry/services/insights"
	"github.com/netsentry/netsentry/services/pipeline/cloudsync"
	"github.com/netsentry/netsentry/services/pipeline/ingestion"
	"github.com/netsentry/netsentry/services/pipeline/orchestrator"
	"github.com/netsentry/netsentry/services/pipeline/runstore"
	"github.com/netsentry/netsentry/services/pipeline/tracking"
)

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				appLogger.Warn("metrics listener stopped", "error", err)
			}
		}()
		appLogger.Info("serving metrics", "addr", metricsAddr)
	}

	store, err := ingestion.NewMongoStore(ctx, cfg.Ingestion.MongoURI, cfg.Ingestion.Database, cfg.Ingestion.Collection)
	if err != nil {
		return fmt.Errorf("connecting to the document store: %w", err)
	}
	defer store.Close(ctx)

	var opts []orchestrator.Option

	if cfg.Tracking.URI != "" {
		opts = append(opts, orchestrator.WithTracker(
			tracking.NewMLflowClient(cfg.Tracking.URI, cfg.Tracking.Experiment)))
	}

	if cfg.Sync.Bucket != "" {
		syncer, err := cloudsync.NewGCSSyncer(ctx, cfg.Sync.Bucket, cfg.Sync.Prefix, cfg.Sync.CredentialsFile)
		if err != nil {
			// Sync is best-effort even at construction time.
			appLogger.Warn("artifact sync disabled", "error", err)
		} else {
			defer syncer.Close()
			opts = append(opts, orchestrator.WithSyncer(syncer))
		}
	}

	history, err := runstore.Open(filepath.Join(cfg.ArtifactDir, ".history"))
	if err != nil {
		appLogger.Warn("run history disabled", "error", err)
	} else {
		defer history.Close()
		opts = append(opts, orchestrator.WithHistory(history))
	}

	if cfg.Insights.Enabled {
		gen := insights.NewGenerator(os.Getenv("OPENAI_API_KEY"), cfg.Insights.OpenAIModel)
		var kb *insights.KnowledgeBase
		if cfg.Insights.WeaviateHost != "" {
			kb, err = insights.NewKnowledgeBase(cfg.Insights.WeaviateHost)
			if err != nil {
				appLogger.Warn("insight knowledge base disabled", "error", err)
				kb = nil
			}
		}
		opts = append(opts, orchestrator.WithInsights(insights.NewService(gen, kb, appLogger)))
	}

	o := orchestrator.New(&cfg, schema, store, appLogger, opts...)
	result, err := o.RunPipeline(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished.\n", result.Run.Stamp)
	fmt.Printf("  model:          %s\n", result.Trainer.ModelName)
	fmt.Printf("  test accuracy:  %.4f\n", result.Trainer.TestMetrics.Accuracy)
	fmt.Printf("  test F1:        %.4f\n", result.Trainer.TestMetrics.F1)
	fmt.Printf("  drift:          %s\n", result.Drift.Message)
	fmt.Printf("  artifacts:      %s\n", result.Run.Dir)
	return nil
}
