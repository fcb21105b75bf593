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

// Package stablemath provides overflow-safe log-space arithmetic.
//
// Privacy curves are routinely evaluated at points where e^a would overflow
// a float64 (a beyond roughly 700). All helpers in this package therefore
// work on logarithms directly and never exponentiate values of unbounded
// magnitude.
package stablemath

import (
	"math"
)

// LogSumExpTwo returns log(e^a + e^b) without computing e^a or e^b.
func LogSumExpTwo(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		// Both terms are zero.
		return math.Inf(-1)
	}
	if math.IsInf(a, 1) {
		return math.Inf(1)
	}
	return a + math.Log1p(math.Exp(b-a))
}

// LogSumExp returns log(Σ e^xᵢ) without computing any e^xᵢ directly.
// An empty slice yields -∞, the log of an empty sum.
func LogSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, x := range xs {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return math.Inf(-1)
	}
	if math.IsInf(max, 1) {
		return math.Inf(1)
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

// LogDiffExp returns the sign and the logarithm of the magnitude of
// e^a - e^b, i.e. sign ∈ {+1, -1} and mag = log|e^a - e^b|.
//
// When a == b the magnitude is -∞ and the sign is reported as +1; the sign
// is meaningless in that case since exp(-∞) = 0 downstream.
func LogDiffExp(a, b float64) (sign int, mag float64) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 1, math.NaN()
	}
	if a == b {
		return 1, math.Inf(-1)
	}
	sign = 1
	if a < b {
		sign = -1
		a, b = b, a
	}
	if math.IsInf(a, 1) {
		return sign, math.Inf(1)
	}
	// log(e^a - e^b) = a + log(1 - e^(b-a)) with b-a < 0.
	return sign, a + Log1MinusExp(b-a)
}

// Log1MinusExp returns log(1 - e^x) for x <= 0.
//
// The two-branch evaluation follows Mächler's "Accurately computing
// log(1 - exp(-|a|))": for x close to 0 the expm1 form is accurate, for
// strongly negative x the log1p form is.
func Log1MinusExp(x float64) float64 {
	if x > 0 {
		return math.NaN()
	}
	if x == 0 {
		return math.Inf(-1)
	}
	if x > -math.Ln2 {
		return math.Log(-math.Expm1(x))
	}
	return math.Log1p(-math.Exp(x))
}

// LogSinh returns log(sinh(x)) for x >= 0.
//
// For any positive x the identity log(sinh x) = x + log(1 - e^(-2x)) - log 2
// avoids evaluating sinh(x), which overflows for x beyond ~710.
func LogSinh(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return math.NaN()
	}
	if x == 0 {
		return math.Inf(-1)
	}
	if math.IsInf(x, 1) {
		return math.Inf(1)
	}
	return x + Log1MinusExp(-2*x) - math.Ln2
}
