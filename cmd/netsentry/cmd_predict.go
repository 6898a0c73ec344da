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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netsentry/netsentry/pkg/tabular"
	"github.com/netsentry/netsentry/services/pipeline/artifacts"
	"github.com/netsentry/netsentry/services/pipeline/trainer"
)

func runPredict(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	modelPath, _ := cmd.Flags().GetString("model")
	if modelPath == "" {
		modelPath = filepath.Join(cfg.ModelDir, artifacts.ModelFile)
	}

	bundle, err := trainer.LoadBundle(modelPath)
	if err != nil {
		return fmt.Errorf("loading model bundle %s: %w", modelPath, err)
	}

	frame, err := tabular.ReadCSV(inputPath)
	if err != nil {
		return fmt.Errorf("reading input %s: %w", inputPath, err)
	}

	preds, err := bundle.Predict(frame)
	if err != nil {
		return fmt.Errorf("scoring input: %w", err)
	}

	attacks := 0
	labels := make([]string, len(preds))
	for i, p := range preds {
		labels[i] = tabular.FormatCell(p, "int64")
		if p == 0 {
			attacks++
		}
	}

	fmt.Printf("Scored %d records with %s: %d flagged as attacks.\n",
		len(preds), bundle.ModelName, attacks)

	if outputPath == "" {
		return nil
	}
	out, err := frame.WithColumn("predicted_result", labels)
	if err != nil {
		return err
	}
	if err := out.WriteCSV(outputPath); err != nil {
		return fmt.Errorf("writing scored output %s: %w", outputPath, err)
	}
	fmt.Printf("Wrote scored records to %s\n", outputPath)
	return nil
}
