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

	"github.com/spf13/cobra"

	"github.com/netsentry/netsentry/pkg/logging"
	"github.com/netsentry/netsentry/services/pipeline/config"
)

var (
	cfg       config.Pipeline
	schema    *config.Schema
	appLogger *logging.Logger

	configPath  string
	schemaPath  string
	verbose     bool
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:   "netsentry",
		Short: "Network intrusion detection training pipeline",
		Long: `netsentry trains and monitors the network intrusion detection model:
it ingests labeled flow records, validates them against the declared
schema, trains a classifier, and tracks model drift across runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config %s: %w", configPath, err)
			}
			if schemaPath != "" {
				cfg.SchemaPath = schemaPath
			}
			schema, err = config.LoadSchema(cfg.SchemaPath)
			if err != nil {
				return fmt.Errorf("loading schema %s: %w", cfg.SchemaPath, err)
			}

			level := logging.LevelInfo
			if verbose {
				level = logging.LevelDebug
			}
			appLogger = logging.New(logging.Config{Level: level, Service: "netsentry"})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLogger != nil {
				_ = appLogger.Close()
			}
		},
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Run the full training pipeline once",
		RunE:  runTrain,
	}

	driftReportCmd = &cobra.Command{
		Use:   "drift-report",
		Short: "Print the most recent model drift report",
		RunE:  runDriftReport,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List past pipeline runs",
		RunE:  runHistory,
	}

	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "Score a CSV of flow records with the production model",
		RunE:  runPredict,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "pipeline configuration file")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "override the schema file from the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	trainCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while training (e.g. :9290)")

	predictCmd.Flags().String("input", "", "CSV of flow records to score (required)")
	predictCmd.Flags().String("output", "", "where to write the scored CSV (default: stdout summary only)")
	predictCmd.Flags().String("model", "", "model bundle to use (default: the production model)")
	_ = predictCmd.MarkFlagRequired("input")

	driftReportCmd.Flags().String("run", "", "run stamp to show instead of the latest")

	rootCmd.AddCommand(trainCmd, driftReportCmd, historyCmd, predictCmd)
}
