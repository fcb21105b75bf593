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

package convert

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/integrate/quad"
)

// DefaultQuadratureNodes is the Gauss-Legendre rule size used by the
// quadrature-based phi conversions when the caller does not specify one.
// Rules above roughly 700 nodes give no further accuracy in float64.
const DefaultQuadratureNodes = 700

// DefaultFFTPoints is the half-count N for the FFT-based CDF inversion,
// which transforms 2N-1 samples of the phi-function.
const DefaultFFTPoints = 1 << 20

// PDFToPhi computes the log phi-function of the privacy loss log(p/q)
// under p, evaluated at t, from the densities of a dominating pair. The
// integral over the real line is compactified through o = y/(1-y²) and
// evaluated with Gauss-Legendre quadrature.
func PDFToPhi(p, q func(float64) float64, t float64) complex128 {
	logRatio := func(o float64) float64 {
		return math.Log(p(o) / q(o))
	}
	return LogRatioToPhi(logRatio, p, t)
}

// LogRatioToPhi is PDFToPhi with the privacy loss supplied directly,
// which avoids the unstable density ratio when log p - log q is available
// in closed form. density is the distribution the expectation runs over.
func LogRatioToPhi(logRatio, density func(float64) float64, t float64) complex128 {
	integrand := func(y float64) complex128 {
		o := y / (1 - y*y)
		// In far tails the density underflows to 0 and the ratio turns
		// into NaN; the true contribution there is 0.
		v := cmplx.Exp(complex(0, logRatio(o)*t)) * complex(density(o), 0)
		jac := (1 + y*y) / ((1 - y*y) * (1 - y*y))
		v *= complex(jac, 0)
		if cmplx.IsNaN(v) {
			return 0
		}
		return v
	}
	re := quad.Fixed(func(y float64) float64 { return real(integrand(y)) }, -1, 1, DefaultQuadratureNodes, nil, 0)
	im := quad.Fixed(func(y float64) float64 { return imag(integrand(y)) }, -1, 1, DefaultQuadratureNodes, nil, 0)
	return cmplx.Log(complex(re, im))
}

// PhiToCDF evaluates the CDF of the privacy-loss random variable at ell by
// Lévy inversion of its log phi-function, using an n-point Gauss-Legendre
// rule over the compactified frequency axis. n ≤ 0 selects the default
// rule size.
func PhiToCDF(logPhi LogPhi, ell float64, n int) float64 {
	if n <= 0 {
		n = DefaultQuadratureNodes
	}
	if n%2 == 1 {
		// An odd rule places a node at t = 0 where the integrand has a
		// removable singularity.
		n++
	}
	integrand := func(y float64) float64 {
		t := y / (1 - y*y)
		v := complex(0, 1) / complex(t, 0) *
			cmplx.Exp(complex(0, -t*ell)) *
			cmplx.Exp(logPhi(t))
		jac := (1 + y*y) / ((1 - y*y) * (1 - y*y))
		r := real(v) * jac
		if math.IsNaN(r) {
			return 0
		}
		return r
	}
	res := quad.Fixed(integrand, -1, 1, n, nil, 0)
	return res/(2*math.Pi) + 0.5
}

// PhiToCDFFunc wraps PhiToCDF into a reusable CDF evaluator.
func PhiToCDFFunc(logPhi LogPhi, n int) CDF {
	return func(ell float64) float64 {
		return PhiToCDF(logPhi, ell, n)
	}
}

// CDFApproxFFT inverts a log phi-function into CDF samples of the
// privacy-loss random variable on a uniform grid over [-window, window],
// following Bohman's trigonometric-sum inversion with the smoothing window
// c_ν. The transform runs over 2n-1 phi samples; n ≤ 0 selects
// DefaultFFTPoints. Unlike the quadrature path there is no truncation
// error inside the window, so the result is reliable far into the tails.
func CDFApproxFFT(logPhi LogPhi, window float64, n int) []float64 {
	if n <= 0 {
		n = DefaultFFTPoints
	}
	eta := math.Pi / window
	b := -window
	m := 2*n - 1
	lam := 2 * math.Pi / (eta * float64(m))

	cNu := func(t float64) float64 {
		return (1-t)*math.Cos(math.Pi*t) + math.Sin(math.Pi*t)/math.Pi
	}

	// Sample index j carries frequency l = j+1-n.
	samples := make([]complex128, m)
	for j := 0; j < m; j++ {
		l := j + 1 - n
		if l == 0 {
			continue
		}
		nu := float64(l) / float64(n)
		ct := cNu(math.Abs(nu))
		samples[j] = complex(ct, 0) *
			cmplx.Exp(logPhi(float64(l)*eta)-complex(0, eta*b*float64(l))) /
			complex(float64(l), 0)
	}
	// The l = 0 term has the finite limit i*eta*mean, where mean is the
	// expectation of the loss variable, read off the derivative of
	// Im(logPhi) at zero. Leaving the slot empty shifts every CDF sample
	// by mean/(2*window).
	h := math.Min(eta, 1e-3)
	mean := (imag(logPhi(h)) - imag(logPhi(-h))) / (2 * h)
	if !math.IsNaN(mean) && !math.IsInf(mean, 0) {
		samples[n-1] = complex(0, mean*eta)
	}

	fft := fourier.NewCmplxFFT(m)
	coeffs := fft.Coefficients(nil, samples)

	cdf := make([]float64, m)
	for j := 0; j < m; j++ {
		phase := cmplx.Exp(complex(0, float64(n-1)*2/float64(m)*float64(j)*math.Pi))
		norm := coeffs[j] * phase
		z := b + lam*float64(j)
		v := complex(0.5+eta*z/(2*math.Pi), 0) - norm/complex(0, 2*math.Pi)
		cdf[j] = real(v)
	}
	return cdf
}

// PhiToCDFGrid wraps CDFApproxFFT into a CDFGrid for the grid-based
// inversions.
func PhiToCDFGrid(logPhi LogPhi, n int) CDFGrid {
	return func(window float64) []float64 {
		return CDFApproxFFT(logPhi, window, n)
	}
}
