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

package solver

import (
	"math"
)

// NumericalInverse inverts a scalar monotone function f. The returned
// closure maps a target y back to an x with f(x) ≈ y, up to the relative
// argument tolerance tol.
//
// lo and hi bound the codomain: queries outside [lo, hi] report not found
// rather than extrapolating. The domain, assumed nonnegative, is searched
// starting from start by doubling/halving until the target is bracketed,
// then bisected. A failure
// to bracket or to converge reports ok=false; callers decide whether that
// is fatal.
func NumericalInverse(f func(float64) float64, lo, hi, start, tol float64) func(y float64) (x float64, ok bool) {
	const maxExpand = 200
	const maxBisect = 200
	return func(y float64) (float64, bool) {
		if math.IsNaN(y) || y < lo || y > hi {
			return 0, false
		}

		// Establish the monotone direction around the starting point.
		a := start
		fa := f(a)
		increasing := f(a*2+1) >= fa

		// Expand until [a, b] brackets y.
		b := a
		fb := fa
		for i := 0; ; i++ {
			if i >= maxExpand {
				return 0, false
			}
			if increasing && fb >= y || !increasing && fb <= y {
				break
			}
			b = b*2 + 1e-10
			fb = f(b)
		}
		for i := 0; ; i++ {
			if i >= maxExpand {
				return 0, false
			}
			if increasing && fa <= y || !increasing && fa >= y {
				break
			}
			a /= 2
			fa = f(a)
		}

		// Bisect. The interval halves each step, so the relative tolerance
		// on x is met in a logarithmic number of iterations.
		for i := 0; i < maxBisect; i++ {
			if b-a <= tol*math.Max(1, math.Abs(a)) {
				return 0.5 * (a + b), true
			}
			mid := 0.5 * (a + b)
			fm := f(mid)
			if math.IsNaN(fm) {
				return 0, false
			}
			if increasing == (fm < y) {
				a = mid
			} else {
				b = mid
			}
		}
		return 0, false
	}
}

// Conjugate numerically evaluates the convex conjugate
// f*(x) = sup_{y∈[0,1]} (x·y - f(y)) of a convex f: [0,1] → [0,1] by
// bounded maximization. A tol-sized margin is subtracted from the supremum
// so optimizer imprecision stays on the safe side of the bound. Optimizer
// failure reports ok=false.
func Conjugate(f func(float64) float64, tol float64) func(x float64) (v float64, ok bool) {
	if tol == 0 {
		tol = 1e-10
	}
	return func(x float64) (float64, bool) {
		obj := func(y float64) float64 {
			return f(y) - y*x
		}
		res := MinimizeBounded(obj, 0, 1, &Options{XTol: tol})
		if !res.Converged {
			return 0, false
		}
		return -(res.F + tol), true
	}
}
