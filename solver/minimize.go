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

// Package solver implements the scalar optimization and inversion kernel
// used by the representation converters.
//
// Everything here is pure and stateless: each call re-solves from scratch,
// so results are deterministic given identical floating-point inputs.
// Iteration caps bound worst-case latency; hitting a cap is reported as
// non-convergence, never as a partial answer silently presented as exact.
package solver

import (
	"math"
)

// Result holds the outcome of a scalar minimization.
type Result struct {
	// X is the best argument found.
	X float64
	// F is the objective value at X.
	F float64
	// Converged reports whether the optimizer met its tolerance within the
	// iteration cap. When false, X and F hold the best point seen so far.
	Converged bool
}

// Options configures the scalar minimizers. The zero value selects the
// defaults below.
type Options struct {
	// XTol is the absolute tolerance on the argument. Defaults to 1e-8.
	XTol float64
	// MaxIter caps the number of objective evaluations. Defaults to 500.
	MaxIter int
}

func (o *Options) xtol() float64 {
	if o == nil || o.XTol == 0 {
		return 1e-8
	}
	return o.XTol
}

func (o *Options) maxIter() int {
	if o == nil || o.MaxIter == 0 {
		return 500
	}
	return o.MaxIter
}

const (
	goldenMean  = 0.3819660112501051 // (3 - sqrt 5)/2
	goldenRatio = 1.618034
	growLimit   = 110.0
)

var sqrtEps = math.Sqrt(2.2e-16)

// MinimizeBounded minimizes f over the closed interval [lo, hi] using
// golden-section search with successive parabolic interpolation (Brent's
// bounded method). f is never evaluated outside [lo, hi].
func MinimizeBounded(f func(float64) float64, lo, hi float64, opts *Options) Result {
	xatol := opts.xtol()
	maxIter := opts.maxIter()

	if lo > hi || math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Result{X: math.NaN(), F: math.NaN()}
	}
	if lo == hi {
		return Result{X: lo, F: f(lo), Converged: true}
	}

	a, b := lo, hi
	fulc := a + goldenMean*(b-a)
	nfc, xf := fulc, fulc
	rat, e := 0.0, 0.0
	x := xf
	fx := f(x)
	num := 1
	ffulc, fnfc := fx, fx
	xm := 0.5 * (a + b)
	tol1 := sqrtEps*math.Abs(xf) + xatol/3.0
	tol2 := 2.0 * tol1

	for math.Abs(xf-xm) > tol2-0.5*(b-a) {
		golden := true
		// Parabolic fit when the last step was long enough.
		if math.Abs(e) > tol1 {
			r := (xf - nfc) * (fx - ffulc)
			q := (xf - fulc) * (fx - fnfc)
			p := (xf-fulc)*q - (xf-nfc)*r
			q = 2.0 * (q - r)
			if q > 0.0 {
				p = -p
			}
			q = math.Abs(q)
			r = e
			e = rat
			if math.Abs(p) < math.Abs(0.5*q*r) && p > q*(a-xf) && p < q*(b-xf) {
				rat = p / q
				x = xf + rat
				golden = false
				if x-a < tol2 || b-x < tol2 {
					si := signOrOne(xm - xf)
					rat = tol1 * si
				}
			}
		}
		if golden {
			if xf >= xm {
				e = a - xf
			} else {
				e = b - xf
			}
			rat = goldenMean * e
		}

		si := signOrOne(rat)
		x = xf + si*math.Max(math.Abs(rat), tol1)
		fu := f(x)
		num++

		if fu <= fx {
			if x >= xf {
				a = xf
			} else {
				b = xf
			}
			fulc, ffulc = nfc, fnfc
			nfc, fnfc = xf, fx
			xf, fx = x, fu
		} else {
			if x < xf {
				a = x
			} else {
				b = x
			}
			if fu <= fnfc || nfc == xf {
				fulc, ffulc = nfc, fnfc
				nfc, fnfc = x, fu
			} else if fu <= ffulc || fulc == xf || fulc == nfc {
				fulc, ffulc = x, fu
			}
		}

		xm = 0.5 * (a + b)
		tol1 = sqrtEps*math.Abs(xf) + xatol/3.0
		tol2 = 2.0 * tol1

		if num >= maxIter {
			return Result{X: xf, F: fx, Converged: false}
		}
	}

	if math.IsNaN(xf) || math.IsNaN(fx) {
		return Result{X: xf, F: fx, Converged: false}
	}
	return Result{X: xf, F: fx, Converged: true}
}

// MinimizeBracket minimizes f starting from the initial bracket (xa, xb)
// using downhill bracket expansion followed by Brent's method. The search
// is unbounded: the expansion may walk arbitrarily far from the initial
// bracket, so objectives must return +∞ outside their domain.
func MinimizeBracket(f func(float64) float64, xa, xb float64, opts *Options) Result {
	xtol := opts.xtol()
	maxIter := opts.maxIter()

	a, b, c, fa, fb, fc, ok := bracket(f, xa, xb, maxIter)
	if !ok {
		// Could not bracket a minimum; report the best endpoint seen.
		x, fx := a, fa
		if fb < fx {
			x, fx = b, fb
		}
		if fc < fx {
			x, fx = c, fc
		}
		return Result{X: x, F: fx, Converged: false}
	}
	return brent(f, a, b, c, fb, xtol, maxIter)
}

// bracket expands (xa, xb) downhill until fa >= fb <= fc, following the
// golden-ratio expansion with parabolic extrapolation steps.
func bracket(f func(float64) float64, xa, xb float64, maxIter int) (a, b, c, fa, fb, fc float64, ok bool) {
	const tiny = 1e-21
	fa, fb = f(xa), f(xb)
	if fa < fb {
		xa, xb = xb, xa
		fa, fb = fb, fa
	}
	xc := xb + goldenRatio*(xb-xa)
	fc = f(xc)
	iter := 0

	for fb > fc {
		tmp1 := (xb - xa) * (fb - fc)
		tmp2 := (xb - xc) * (fb - fa)
		val := tmp2 - tmp1
		denom := 2.0 * tiny
		if math.Abs(val) >= tiny {
			denom = 2.0 * val
		}
		w := xb - ((xb-xc)*tmp2-(xb-xa)*tmp1)/denom
		wlim := xb + growLimit*(xc-xb)
		if iter > maxIter {
			return xa, xb, xc, fa, fb, fc, false
		}
		iter++
		var fw float64
		switch {
		case (w-xc)*(xb-w) > 0.0:
			fw = f(w)
			if fw < fc {
				xa, xb = xb, w
				fa, fb = fb, fw
				return xa, xb, xc, fa, fb, fc, true
			}
			if fw > fb {
				xc, fc = w, fw
				return xa, xb, xc, fa, fb, fc, true
			}
			w = xc + goldenRatio*(xc-xb)
			fw = f(w)
		case (w-wlim)*(wlim-xc) >= 0.0:
			w = wlim
			fw = f(w)
		case (w-wlim)*(xc-w) > 0.0:
			fw = f(w)
			if fw < fc {
				xb, xc, w = xc, w, xc+goldenRatio*(xc-xb)
				fb, fc, fw = fc, fw, f(w)
			}
		default:
			w = xc + goldenRatio*(xc-xb)
			fw = f(w)
		}
		xa, xb, xc = xb, xc, w
		fa, fb, fc = fb, fc, fw
	}
	return xa, xb, xc, fa, fb, fc, true
}

// brent runs Brent's minimization given a valid bracket a < b < c (in
// either orientation) with f(b) below both endpoints.
func brent(f func(float64) float64, xa, xb, xc, fb, xtol float64, maxIter int) Result {
	const cg = goldenMean
	a, b := math.Min(xa, xc), math.Max(xa, xc)
	x, w, v := xb, xb, xb
	fx, fw, fv := fb, fb, fb
	deltax := 0.0
	rat := 0.0

	for iter := 0; iter < maxIter; iter++ {
		tol1 := xtol*math.Abs(x) + tinyTol
		tol2 := 2.0 * tol1
		xmid := 0.5 * (a + b)
		if math.Abs(x-xmid) < tol2-0.5*(b-a) {
			return Result{X: x, F: fx, Converged: true}
		}
		if math.Abs(deltax) <= tol1 {
			// Golden-section step.
			if x >= xmid {
				deltax = a - x
			} else {
				deltax = b - x
			}
			rat = cg * deltax
		} else {
			// Parabolic step.
			tmp1 := (x - w) * (fx - fv)
			tmp2 := (x - v) * (fx - fw)
			p := (x-v)*tmp2 - (x-w)*tmp1
			tmp2 = 2.0 * (tmp2 - tmp1)
			if tmp2 > 0.0 {
				p = -p
			}
			tmp2 = math.Abs(tmp2)
			dxTemp := deltax
			deltax = rat
			if p > tmp2*(a-x) && p < tmp2*(b-x) && math.Abs(p) < math.Abs(0.5*tmp2*dxTemp) {
				rat = p / tmp2
				u := x + rat
				if u-a < tol2 || b-u < tol2 {
					rat = tol1 * signOrOne(xmid-x)
				}
			} else {
				if x >= xmid {
					deltax = a - x
				} else {
					deltax = b - x
				}
				rat = cg * deltax
			}
		}

		var u float64
		if math.Abs(rat) < tol1 {
			u = x + tol1*signOrOne(rat)
		} else {
			u = x + rat
		}
		fu := f(u)

		if fu > fx {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, w = w, u
				fv, fw = fw, fu
			} else if fu <= fv || v == x || v == w {
				v, fv = u, fu
			}
		} else {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
		}
	}
	return Result{X: x, F: fx, Converged: false}
}

const tinyTol = 1e-11

func signOrOne(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
