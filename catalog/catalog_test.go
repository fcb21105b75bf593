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

package catalog

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/erchiw/autodp/convert"
)

func TestRDPGaussianLine(t *testing.T) {
	rdp := RDPGaussian(2)
	for _, alpha := range []float64{1, 2, 10} {
		want := alpha / 8
		if got := rdp(alpha); math.Abs(got-want) > 1e-15 {
			t.Errorf("rdp(%v) = %v, want %v", alpha, got, want)
		}
	}
}

func TestDeltaGaussianKnownValues(t *testing.T) {
	// At sigma=1, eps=0 the tight delta is 2*Phi(1/2) - 1.
	got := DeltaGaussian(1, 0)
	want := 0.38292492254802624
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("DeltaGaussian(1, 0) = %v, want %v", got, want)
	}
	if DeltaGaussian(1, 1) >= got {
		t.Error("delta did not decrease with eps")
	}
	if DeltaGaussian(2, 1) >= DeltaGaussian(1, 1) {
		t.Error("delta did not decrease with sigma")
	}
}

func TestEpsGaussianInvertsDelta(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 3} {
		for _, delta := range []float64{1e-3, 1e-6} {
			eps := EpsGaussian(sigma, delta)
			back := DeltaGaussian(sigma, eps)
			if back > delta {
				t.Errorf("sigma=%v: DeltaGaussian(eps(%v)) = %v exceeds the target", sigma, delta, back)
			}
			if eps > 0 {
				looser := DeltaGaussian(sigma, eps*(1-10*gaussianSigmaTol))
				if looser <= delta {
					t.Errorf("sigma=%v delta=%v: eps=%v is not close to tight", sigma, delta, eps)
				}
			}
		}
	}
}

func TestSigmaGaussianCalibration(t *testing.T) {
	for _, tc := range []struct {
		eps, delta float64
	}{
		{1, 1e-5},
		{0.1, 1e-6},
		{5, 1e-3},
	} {
		sigma, err := SigmaGaussian(tc.eps, tc.delta)
		if err != nil {
			t.Fatalf("SigmaGaussian(%v, %v): %v", tc.eps, tc.delta, err)
		}
		if got := DeltaGaussian(sigma, tc.eps); got > tc.delta {
			t.Errorf("eps=%v delta=%v: calibrated sigma=%v gives delta=%v", tc.eps, tc.delta, sigma, got)
		}
		// A noticeably smaller sigma must break the budget.
		if got := DeltaGaussian(sigma*(1-10*gaussianSigmaTol), tc.eps); got <= tc.delta {
			t.Errorf("eps=%v delta=%v: sigma=%v is not tight", tc.eps, tc.delta, sigma)
		}
	}
}

func TestSigmaGaussianRejectsDegenerateTargets(t *testing.T) {
	// No finite multiplier meets these targets; the calibration must
	// report an error instead of looping on the doubling search.
	for _, tc := range []struct {
		eps, delta float64
	}{
		{0, 1e-5},
		{-1, 1e-5},
		{math.Inf(1), 1e-5},
		{math.NaN(), 1e-5},
		{1, 0},
		{1, 1},
		{1, math.NaN()},
	} {
		if _, err := SigmaGaussian(tc.eps, tc.delta); err == nil {
			t.Errorf("SigmaGaussian(%v, %v) succeeded, want error", tc.eps, tc.delta)
		}
	}
}

func TestLogPhiGaussianMatchesQuadrature(t *testing.T) {
	// The closed form must agree with integrating the loss against the
	// output distribution.
	const sigma = 1.5
	closed := LogPhiGaussian(sigma)
	p := func(o float64) float64 {
		return math.Exp(-(o-1)*(o-1)/(2*sigma*sigma)) / (sigma * math.Sqrt(2*math.Pi))
	}
	q := func(o float64) float64 {
		return math.Exp(-o*o/(2*sigma*sigma)) / (sigma * math.Sqrt(2*math.Pi))
	}
	for _, tv := range []float64{0.3, 1, 2.5} {
		got := convert.PDFToPhi(p, q, tv)
		want := closed(tv)
		if cmplx.Abs(cmplx.Exp(got)-cmplx.Exp(want)) > 1e-6 {
			t.Errorf("t=%v: quadrature phi %v, closed form %v", tv, got, want)
		}
	}
}

func TestRDPLaplaceLimits(t *testing.T) {
	const b = 2.0
	rdp := RDPLaplace(b)
	if got, want := rdp(math.Inf(1)), 1/b; got != want {
		t.Errorf("rdp(inf) = %v, want %v", got, want)
	}
	if got, want := rdp(1), 1/b+math.Exp(-1/b)-1; math.Abs(got-want) > 1e-15 {
		t.Errorf("rdp(1) = %v, want %v", got, want)
	}
	prev := 0.0
	for _, alpha := range []float64{1, 2, 5, 50, math.Inf(1)} {
		cur := rdp(alpha)
		if cur < prev-1e-12 {
			t.Fatalf("rdp(%v) = %v decreased below %v", alpha, cur, prev)
		}
		prev = cur
	}
}

func TestRDPRandResponse(t *testing.T) {
	const p = 0.8
	rdp := RDPRandResponse(p)
	wantInf := math.Log(p / (1 - p))
	if got := rdp(math.Inf(1)); math.Abs(got-wantInf) > 1e-15 {
		t.Errorf("rdp(inf) = %v, want %v", got, wantInf)
	}
	// Direct two-point computation at alpha = 2.
	want := math.Log(p*p/(1-p) + (1-p)*(1-p)/p)
	if got := rdp(2); math.Abs(got-want) > 1e-12 {
		t.Errorf("rdp(2) = %v, want %v", got, want)
	}
}

func TestLogPhiRandResponseUnitAtZero(t *testing.T) {
	phi := LogPhiRandResponse(0.75)
	if got := cmplx.Abs(cmplx.Exp(phi(0)) - 1); got > 1e-15 {
		t.Errorf("|phi(0) - 1| = %v, want 0", got)
	}
	// |phi(t)| <= 1 for any characteristic function.
	for _, tv := range []float64{0.5, 3, 10} {
		if got := cmplx.Abs(cmplx.Exp(phi(tv))); got > 1+1e-12 {
			t.Errorf("|phi(%v)| = %v exceeds 1", tv, got)
		}
	}
}

func TestSubsampleGaussianPhiReducesToGaussian(t *testing.T) {
	// With sampling probability 1 the mechanism is the plain Gaussian.
	const sigma = 1.0
	phi := LogPhiSubsampleGaussianP(sigma, 1, PhiBoundNone)
	closed := LogPhiGaussian(sigma)
	for _, tv := range []float64{0.5, 1.5} {
		got := cmplx.Exp(phi(tv))
		want := cmplx.Exp(closed(tv))
		if cmplx.Abs(got-want) > 1e-4 {
			t.Errorf("t=%v: phi %v, want %v", tv, got, want)
		}
	}
}

func TestSubsampleGaussianPhiBounds(t *testing.T) {
	const sigma, gamma = 1.0, 0.1
	lower := LogPhiSubsampleGaussianP(sigma, gamma, PhiBoundLower)
	upper := LogPhiSubsampleGaussianP(sigma, gamma, PhiBoundUpper)
	// Both are characteristic functions of proper distributions.
	for _, phi := range []convert.LogPhi{lower, upper} {
		if got := cmplx.Abs(cmplx.Exp(phi(0)) - 1); got > 1e-10 {
			t.Errorf("|phi(0) - 1| = %v, want 0", got)
		}
		if got := cmplx.Abs(cmplx.Exp(phi(2))); got > 1+1e-10 {
			t.Errorf("|phi(2)| = %v exceeds 1", got)
		}
	}
	// The discretized deltas must straddle each other: at any eps the
	// lower-bound curve reports no more than the upper-bound curve.
	lowerQ := LogPhiSubsampleGaussianQ(sigma, gamma, PhiBoundLower)
	upperQ := LogPhiSubsampleGaussianQ(sigma, gamma, PhiBoundUpper)
	dLower := convert.CDFToApproxDelta(convert.PhiToCDFFunc(lower, 0), convert.PhiToCDFFunc(lowerQ, 0))
	dUpper := convert.CDFToApproxDelta(convert.PhiToCDFFunc(upper, 0), convert.PhiToCDFFunc(upperQ, 0))
	lo, err := dLower(1)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := dUpper(1)
	if err != nil {
		t.Fatal(err)
	}
	if lo > hi+1e-6 {
		t.Errorf("lower-bound delta %v exceeds upper-bound delta %v", lo, hi)
	}
}
