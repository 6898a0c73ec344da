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
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// renderComparisonChart draws grouped baseline/current bars, one group
// per metric.
func renderComparisonChart(path string, comparisons []MetricComparison) error {
	if len(comparisons) == 0 {
		return fmt.Errorf("nothing to chart")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	baseline := make(plotter.Values, len(comparisons))
	current := make(plotter.Values, len(comparisons))
	labels := make([]string, len(comparisons))
	for i, c := range comparisons {
		baseline[i] = c.Baseline
		current[i] = c.Current
		labels[i] = c.Metric
	}

	p := plot.New()
	p.Title.Text = "Baseline vs Current Model Metrics"
	p.Y.Label.Text = "score"
	p.Y.Min = 0
	p.Y.Max = 1.05

	width := vg.Points(18)
	baseBars, err := plotter.NewBarChart(baseline, width)
	if err != nil {
		return err
	}
	baseBars.Offset = -width / 2
	baseBars.Color = plotutil.Color(0)

	curBars, err := plotter.NewBarChart(current, width)
	if err != nil {
		return err
	}
	curBars.Offset = width / 2
	curBars.Color = plotutil.Color(1)

	p.Add(baseBars, curBars)
	p.Legend.Add("baseline", baseBars)
	p.Legend.Add("current", curBars)
	p.Legend.Top = true
	p.NominalX(labels...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// renderDifferenceChart draws one bar per metric showing current minus
// baseline. Negative bars point at the degradations.
func renderDifferenceChart(path string, comparisons []MetricComparison) error {
	if len(comparisons) == 0 {
		return fmt.Errorf("nothing to chart")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	diffs := make(plotter.Values, len(comparisons))
	labels := make([]string, len(comparisons))
	for i, c := range comparisons {
		diffs[i] = c.Difference
		labels[i] = c.Metric
	}

	p := plot.New()
	p.Title.Text = "Metric Change (current - baseline)"
	p.Y.Label.Text = "difference"

	bars, err := plotter.NewBarChart(diffs, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(2)

	p.Add(bars, plotter.NewGrid())
	p.NominalX(labels...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Rows are
// actual classes, columns predicted.
type confusionGrid struct {
	m [][]int
}

func (g confusionGrid) Dims() (int, int)   { return len(g.m[0]), len(g.m) }
func (g confusionGrid) Z(c, r int) float64 { return float64(g.m[r][c]) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// renderConfusionHeatmap draws one model's confusion matrix.
func renderConfusionHeatmap(path, title string, matrix [][]int, classes []float64) error {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return fmt.Errorf("empty confusion matrix")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	labels := make([]string, len(classes))
	for i, c := range classes {
		labels[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "actual"

	pal := moreland.SmoothBlueRed().Palette(255)
	p.Add(plotter.NewHeatMap(confusionGrid{m: matrix}, pal))
	p.NominalX(labels...)
	p.NominalY(labels...)

	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}
