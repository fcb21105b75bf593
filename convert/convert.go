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

// Package convert implements conversions between the supported privacy
// representations: Rényi DP curves, (ε,δ) approximate-DP curves, trade-off
// (f-DP) functions, and characteristic functions (phi-functions) / CDFs of
// the privacy-loss random variable.
//
// Each conversion is a pure function: it captures its parameters and
// returns a fresh evaluator. Evaluators re-solve their optimization,
// root-finding or quadrature problem on every call and hold no mutable
// state, so concurrent queries are safe.
//
// Infeasible budgets are reported in-band as +∞, never as an error: for
// some mechanisms certain δ targets simply admit no finite ε. Errors are
// reserved for domain violations and for the searches that have no safe
// fallback value (the tangent-line search and the mesh-based inversions).
package convert

import (
	"math"

	"github.com/erchiw/autodp/solver"
)

// RDP is a Rényi differential privacy curve: the order α ∈ (0, ∞] is
// mapped to a bound on the Rényi divergence of that order. The value at
// α = +∞ is the pure-DP epsilon when finite.
type RDP func(alpha float64) float64

// ApproxDP maps a failure probability δ ∈ [0, 1] to the smallest ε for
// which the mechanism is (ε,δ)-DP. +∞ means the budget is infeasible at
// that δ.
type ApproxDP func(delta float64) (float64, error)

// ApproxDelta is the inverse direction: ε ≥ 0 to the smallest achievable δ.
type ApproxDelta func(eps float64) (float64, error)

// Tradeoff is an f-DP trade-off function: false-positive rate ∈ [0, 1] to
// the minimal achievable false-negative rate.
type Tradeoff func(fpr float64) float64

// LogTradeoff evaluates log(1 - f(x)) as a function of log(x), which keeps
// precision near both endpoints of the trade-off curve.
type LogTradeoff func(logx float64) float64

// LogTradeoffGrad evaluates log(-∂f(x)) as a function of log(x). The
// result is an interval: at a kink of the trade-off curve the subgradient
// is a range rather than a point.
type LogTradeoffGrad func(logx float64) (gradLo, gradHi float64)

// LogPhi is the logarithm of a characteristic function of the privacy-loss
// random variable.
type LogPhi func(t float64) complex128

// CDF evaluates the cumulative distribution function of the privacy-loss
// random variable at a point.
type CDF func(x float64) float64

// CDFGrid produces a precomputed array of CDF values over a symmetric
// window [-window, window] with a uniform mesh, for use by the FFT-based
// inversions.
type CDFGrid func(window float64) []float64

// ApproxRDP maps a Rényi order and a failure probability to an approximate
// RDP bound.
type ApproxRDP func(alpha, delta float64) float64

// PointwiseMin returns the pointwise minimum of two curves.
func PointwiseMin(f1, f2 func(float64) float64) func(float64) float64 {
	return func(x float64) float64 {
		return math.Min(f1(x), f2(x))
	}
}

// PointwiseMax returns the pointwise maximum of two curves.
func PointwiseMax(f1, f2 func(float64) float64) func(float64) float64 {
	return func(x float64) float64 {
		return math.Max(f1(x), f2(x))
	}
}

// minimizeOverOrders minimizes fun over the admissible order range
// (lower, alphaMax], starting from the bracket (lower, bracketHi). fun must
// return +∞ outside its domain.
//
// The bracketing minimizer inherited its fixed starting bracket from the
// fast path; for some curves the global minimum lies far outside it or the
// expansion stalls on a flat +∞ region. When that happens, a coarse
// log-spaced grid scan locates the basin and a bounded search polishes it.
func minimizeOverOrders(fun func(float64) float64, lower, bracketHi, alphaMax float64) solver.Result {
	if alphaMax <= lower {
		return solver.Result{X: math.NaN(), F: math.Inf(1)}
	}
	res := solver.MinimizeBracket(fun, lower, bracketHi, &solver.Options{XTol: 1e-10})
	if res.Converged && res.X > lower && res.X <= alphaMax && !math.IsNaN(res.F) && !math.IsInf(res.F, 0) {
		return res
	}

	// Grid fallback: log-spaced offsets above lower up to alphaMax.
	hi := math.Min(alphaMax, 1e6)
	const gridPoints = 120
	logLo, logHi := -4.0, math.Log10(hi-lower)
	step := (logHi - logLo) / gridPoints
	bestIdx, bestF := -1, math.Inf(1)
	xs := make([]float64, 0, gridPoints+1)
	for i := 0; i <= gridPoints; i++ {
		x := lower + math.Pow(10, logLo+float64(i)*step)
		xs = append(xs, x)
		if f := fun(x); f < bestF {
			bestIdx, bestF = i, f
		}
	}
	if bestIdx < 0 || math.IsInf(bestF, 1) {
		return solver.Result{X: math.NaN(), F: math.Inf(1)}
	}
	polishLo := lower
	if bestIdx > 0 {
		polishLo = xs[bestIdx-1]
	}
	polishHi := hi
	if bestIdx < len(xs)-1 {
		polishHi = xs[bestIdx+1]
	}
	polished := solver.MinimizeBounded(fun, polishLo, polishHi, &solver.Options{XTol: 1e-10})
	if polished.Converged && polished.F <= bestF {
		return polished
	}
	return solver.Result{X: xs[bestIdx], F: bestF, Converged: true}
}
