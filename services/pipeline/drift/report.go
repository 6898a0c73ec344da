// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadReport reads a JSON drift report back from disk.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding drift report %s: %w", path, err)
	}
	return &report, nil
}

func writeJSONReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

// writeTextReport renders the human-readable companion to the JSON
// report: header, metric table, summary, recommendations.
func writeTextReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("MODEL DRIFT REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "Generated:      %s\n", report.GeneratedAt)
	fmt.Fprintf(&b, "Baseline model: %s\n", orDash(report.BaselineModel))
	fmt.Fprintf(&b, "Current model:  %s\n", orDash(report.CurrentModel))
	fmt.Fprintf(&b, "Threshold:      %.4f\n\n", report.Threshold)

	if report.BaselineCreated {
		b.WriteString("No baseline model was available. The current model has been\n")
		b.WriteString("promoted to baseline; comparisons begin on the next run.\n\n")
	} else {
		fmt.Fprintf(&b, "%-12s %10s %10s %12s %8s\n", "METRIC", "BASELINE", "CURRENT", "DIFFERENCE", "STATUS")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, c := range report.Comparisons {
			fmt.Fprintf(&b, "%-12s %10.4f %10.4f %+12.4f %8s\n",
				c.Metric, c.Baseline, c.Current, c.Difference, strings.ToUpper(c.Status))
		}
		b.WriteString("\n")

		if report.DriftDetected {
			b.WriteString("SUMMARY: MODEL DRIFT DETECTED\n\n")
		} else {
			b.WriteString("SUMMARY: no drift detected\n\n")
		}
	}

	b.WriteString("RECOMMENDATIONS\n")
	for _, rec := range report.Recommendations {
		b.WriteString("  - " + rec + "\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0640)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
