//
// Copyright 2024 The autodp Go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package disttest provides sampling-based statistical helpers for
// cross-checking analytical privacy curves.
//
// This package is not optimized for performance or speed and is only
// intended to be used in tests.
package disttest

import (
	"math"
	"sort"

	"github.com/grd/stat"

	"github.com/erchiw/autodp/convert"
)

// SampleMean returns the mean of a slice.
func SampleMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(stat.Float64Slice(values))
}

// SampleVariance returns the unbiased sample variance of a slice.
func SampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.Variance(stat.Float64Slice(values))
}

// SampleStdDev returns the unbiased sample standard deviation of a slice.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.Sd(stat.Float64Slice(values))
}

// EmpiricalCDF builds the empirical distribution function of the samples.
// The returned curve reports the fraction of samples at or below its
// argument.
func EmpiricalCDF(samples []float64) convert.CDF {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return func(x float64) float64 {
		if len(sorted) == 0 {
			return 0
		}
		// First index with sorted[i] > x.
		idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
		return float64(idx) / float64(len(sorted))
	}
}

// EmpiricalApproxDelta estimates δ(ε) from samples of the privacy loss
// random variable under the first distribution of the dominating pair,
// through the hockey-stick representation δ = E[(1 − e^(ε−L))₊].
func EmpiricalApproxDelta(losses []float64, eps float64) float64 {
	if len(losses) == 0 {
		return 0
	}
	var sum float64
	for _, l := range losses {
		if l > eps {
			sum += -math.Expm1(eps - l)
		}
	}
	return sum / float64(len(losses))
}

// GaussianLosses maps outputs of the Gaussian mechanism on the first of
// two neighboring datasets to their privacy losses. The outputs are
// draws from N(0, σ²); the neighboring dataset shifts the mean by the
// unit sensitivity.
func GaussianLosses(outputs []float64, sigma float64) []float64 {
	losses := make([]float64, len(outputs))
	for i, x := range outputs {
		losses[i] = (1 - 2*x) / (2 * sigma * sigma)
	}
	return losses
}
