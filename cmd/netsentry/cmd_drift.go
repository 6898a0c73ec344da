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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netsentry/netsentry/services/pipeline/runstore"
)

func openHistory() (*runstore.Store, error) {
	return runstore.Open(filepath.Join(cfg.ArtifactDir, ".history"))
}

func runDriftReport(cmd *cobra.Command, args []string) error {
	history, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer history.Close()

	stamp, _ := cmd.Flags().GetString("run")

	var reportPath string
	if stamp != "" {
		rec, err := history.Get(stamp)
		if err != nil {
			if errors.Is(err, runstore.ErrNotFound) {
				return fmt.Errorf("no run with stamp %s", stamp)
			}
			return err
		}
		if rec.DriftReportTxt == "" {
			return fmt.Errorf("run %s produced no drift report", stamp)
		}
		reportPath = rec.DriftReportTxt
	} else {
		reportPath, err = history.LatestDriftReport()
		if errors.Is(err, runstore.ErrNotFound) {
			return fmt.Errorf("no drift reports yet; run `netsentry train` first")
		}
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("reading drift report %s: %w", reportPath, err)
	}
	fmt.Print(string(data))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer history.Close()

	records, err := history.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-20s %10s %7s\n", "RUN", "STATUS", "MODEL", "ACCURACY", "DRIFT")
	for _, rec := range records {
		drift := "no"
		if rec.DriftDetected {
			drift = "YES"
		}
		model := rec.ModelName
		if model == "" {
			model = "-"
		}
		fmt.Printf("%-20s %-10s %-20s %10.4f %7s\n", rec.Stamp, rec.Status, model, rec.TestAccuracy, drift)
	}
	return nil
}
