// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"fmt"
	"math"
	"sort"
)

// KSResult holds the two-sample Kolmogorov-Smirnov statistic and its
// asymptotic p-value.
type KSResult struct {
	Statistic float64
	PValue    float64
}

// KolmogorovSmirnov runs the two-sample KS test. NaN values are skipped;
// both samples must keep at least one finite value.
func KolmogorovSmirnov(a, b []float64) (KSResult, error) {
	x := finite(a)
	y := finite(b)
	if len(x) == 0 || len(y) == 0 {
		return KSResult{}, fmt.Errorf("ks test needs non-empty samples, got %d and %d finite values", len(x), len(y))
	}
	sort.Float64s(x)
	sort.Float64s(y)

	// Largest ECDF gap, walking both sorted samples in one pass.
	var d float64
	var i, j int
	n1, n2 := float64(len(x)), float64(len(y))
	for i < len(x) && j < len(y) {
		v := math.Min(x[i], y[j])
		for i < len(x) && x[i] <= v {
			i++
		}
		for j < len(y) && y[j] <= v {
			j++
		}
		gap := math.Abs(float64(i)/n1 - float64(j)/n2)
		if gap > d {
			d = gap
		}
	}

	en := math.Sqrt(n1 * n2 / (n1 + n2))
	lambda := (en + 0.12 + 0.11/en) * d
	return KSResult{Statistic: d, PValue: ksProbability(lambda)}, nil
}

// ksProbability is the asymptotic Q_KS survival function,
// Q(lambda) = 2 * sum_{j>=1} (-1)^{j-1} exp(-2 j^2 lambda^2).
func ksProbability(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	const (
		maxTerms = 100
		epsAbs   = 1e-12
		epsRel   = 1e-10
	)
	exponent := -2 * lambda * lambda
	sign := 1.0
	var sum, prev float64
	for j := 1; j <= maxTerms; j++ {
		term := sign * math.Exp(exponent*float64(j)*float64(j))
		sum += term
		if math.Abs(term) <= epsAbs || math.Abs(term) <= epsRel*prev {
			return clampProbability(2 * sum)
		}
		prev = math.Abs(term)
		sign = -sign
	}
	// Series failed to converge; the distributions are identical for any
	// practical purpose.
	return 1
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
