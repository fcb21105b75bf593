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

package transform

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/erchiw/autodp/accounting"
	"github.com/erchiw/autodp/catalog"
	"github.com/erchiw/autodp/mechanisms"
)

var rdpOrders = []float64{1.5, 2, 5, 20, 100}

func TestComposeSingleMechanismIsIdentity(t *testing.T) {
	base, err := mechanisms.Gaussian(2.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	composed, err := Compose([]*accounting.Mechanism{base}, []float64{1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, alpha := range rdpOrders {
		got, err := composed.RenyiDP(alpha)
		if err != nil {
			t.Fatal(err)
		}
		want, err := base.RenyiDP(alpha)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want) > 1e-8 {
			t.Errorf("composed RenyiDP(%v) = %v, want %v", alpha, got, want)
		}
	}
}

func TestComposeRDPIsAdditive(t *testing.T) {
	g, err := mechanisms.Gaussian(1.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	l, err := mechanisms.Laplace(2.0, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	composed, err := Compose([]*accounting.Mechanism{g, l}, []float64{3, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]float64, len(rdpOrders))
	want := make([]float64, len(rdpOrders))
	for i, alpha := range rdpOrders {
		got[i], err = composed.RenyiDP(alpha)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = 3*catalog.RDPGaussian(1.5)(alpha) + 2*catalog.RDPLaplace(2.0)(alpha)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-8)); diff != "" {
		t.Errorf("composed RDP curve mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(composed.Name, "Compose:{") {
		t.Errorf("composed name = %q, want Compose:{...}", composed.Name)
	}
	if _, ok := composed.Params["Gaussian:sigma"]; !ok {
		t.Errorf("composed params %v missing Gaussian:sigma", composed.Params)
	}
}

func TestComposePureDPIsExact(t *testing.T) {
	base, err := mechanisms.PureDP(1.0)
	if err != nil {
		t.Fatal(err)
	}
	mechs := make([]*accounting.Mechanism, 10)
	coeffs := make([]float64, 10)
	for i := range mechs {
		mechs[i] = base
		coeffs[i] = 1
	}
	composed, err := Compose(mechs, coeffs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if eps, ok := composed.PureDP(); !ok || eps != 10.0 {
		t.Errorf("composed PureDP() = %v, %v, want 10, true", eps, ok)
	}
	if got, err := composed.RenyiDP(math.Inf(1)); err != nil || got != 10.0 {
		t.Errorf("composed RenyiDP(inf) = %v, %v, want 10", got, err)
	}
	if got, err := composed.ApproxDP(0); err != nil || got != 10.0 {
		t.Errorf("composed ApproxDP(0) = %v, %v, want 10", got, err)
	}
}

func TestComposeArgumentChecks(t *testing.T) {
	base, err := mechanisms.PureDP(1.0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compose(nil, nil, nil); err == nil {
		t.Error("Compose of no mechanisms succeeded, want error")
	}
	if _, err := Compose([]*accounting.Mechanism{base}, []float64{1, 2}, nil); err == nil {
		t.Error("Compose with mismatched coefficients succeeded, want error")
	}
	if _, err := Compose([]*accounting.Mechanism{base}, []float64{-1}, nil); err == nil {
		t.Error("Compose with negative coefficient succeeded, want error")
	}
}

func TestComposePhiMatchesGaussianComposition(t *testing.T) {
	opts := &accounting.Options{}
	a, err := mechanisms.Gaussian(1.0, &mechanisms.GaussianOptions{EnablePhi: true, Acct: opts})
	if err != nil {
		t.Fatal(err)
	}
	b, err := mechanisms.Gaussian(2.0, &mechanisms.GaussianOptions{EnablePhi: true, Acct: opts})
	if err != nil {
		t.Fatal(err)
	}
	composed, err := ComposePhi([]*accounting.Mechanism{a, b}, []float64{1, 1}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !composed.ExactPhi {
		t.Error("composition of exact phi-functions lost exactness")
	}
	// sigma of the equivalent single Gaussian.
	sigma := math.Sqrt(1 / (1/1.0 + 1/4.0))
	const eps = 1.0
	got, err := composed.ApproxDelta(eps)
	if err != nil {
		t.Fatal(err)
	}
	want := catalog.DeltaGaussian(sigma, eps)
	if math.Abs(got-want) > 1e-3*want {
		t.Errorf("composed ApproxDelta(%v) = %v, want about %v", eps, got, want)
	}
}

func TestComposePhiRejectsMixedDirections(t *testing.T) {
	opts := &accounting.Options{}
	lower, err := mechanisms.SubsampleGaussianPhi(3.0, 0.1, catalog.PhiBoundLower, opts)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := mechanisms.SubsampleGaussianPhi(3.0, 0.1, catalog.PhiBoundUpper, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ComposePhi([]*accounting.Mechanism{lower, upper}, []float64{1, 1}, opts); err == nil {
		t.Error("ComposePhi of mixed bound directions succeeded, want error")
	}
	// A one-sided bound composes with itself and with exact members.
	exact, err := mechanisms.Gaussian(1.0, &mechanisms.GaussianOptions{EnablePhi: true, Acct: opts})
	if err != nil {
		t.Fatal(err)
	}
	composed, err := ComposePhi([]*accounting.Mechanism{lower, exact}, []float64{1, 1}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if composed.ExactPhi {
		t.Error("composition with a lower-bound member claims exactness")
	}
}

func TestComposePhiRejectsMissingPhi(t *testing.T) {
	noPhi, err := mechanisms.Gaussian(1.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ComposePhi([]*accounting.Mechanism{noPhi}, []float64{1}, nil); err == nil {
		t.Error("ComposePhi without phi-functions succeeded, want error")
	}
}

func TestComposeGaussianSigma(t *testing.T) {
	composed, err := ComposedGaussian([]float64{1.0, 2.0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	// Precision adds: sigma = (1/1 + 1/4)^(-1/2).
	for _, alpha := range rdpOrders {
		got, err := composed.RenyiDP(alpha)
		if err != nil {
			t.Fatal(err)
		}
		want := catalog.RDPGaussian(1.0)(alpha) + catalog.RDPGaussian(2.0)(alpha)
		if math.Abs(got-want) > 1e-10 {
			t.Errorf("composed RenyiDP(%v) = %v, want %v", alpha, got, want)
		}
	}
	if composed.Family != accounting.FamilyGaussian {
		t.Errorf("composed family = %q, want %q", composed.Family, accounting.FamilyGaussian)
	}
}

func TestComposeGaussianRejectsNonGaussian(t *testing.T) {
	g, err := mechanisms.ExactGaussian(1.0)
	if err != nil {
		t.Fatal(err)
	}
	l, err := mechanisms.Laplace(1.0, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ComposeGaussian([]*accounting.Mechanism{g, l}, []float64{1, 1}); err == nil {
		t.Error("ComposeGaussian with a Laplace member succeeded, want error")
	}
}

func TestAmplifyBySamplingSchemeChecks(t *testing.T) {
	addRemove, err := mechanisms.Gaussian(1.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AmplifyBySampling(addRemove, 0.1, FixedSizeSampling, false); err == nil {
		t.Error("fixed-size sampling of an add-or-remove-one mechanism succeeded, want error")
	}
	replaceOne, err := mechanisms.Gaussian(1.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	replaceOne.ReplaceOne = true
	if _, err := AmplifyBySampling(replaceOne, 0.1, PoissonSampling, false); err == nil {
		t.Error("Poisson sampling of a replace-one mechanism succeeded, want error")
	}
	if _, err := AmplifyBySampling(addRemove, 1.5, PoissonSampling, false); err == nil {
		t.Error("sampling probability above one accepted, want error")
	}
}

func TestAmplifyBySamplingZeroProbability(t *testing.T) {
	base, err := mechanisms.Gaussian(1.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	amplified, err := AmplifyBySampling(base, 0, PoissonSampling, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, delta := range []float64{0, 1e-8, 0.5} {
		eps, err := amplified.ApproxDP(delta)
		if err != nil {
			t.Fatal(err)
		}
		if eps != 0 {
			t.Errorf("ApproxDP(%v) = %v after sampling nothing, want 0", delta, eps)
		}
	}
	if rho, err := amplified.RenyiDP(10); err != nil || rho != 0 {
		t.Errorf("RenyiDP(10) = %v, %v after sampling nothing, want 0", rho, err)
	}
}

func TestSubsampledRDPBounds(t *testing.T) {
	const sigma, prob = 2.0, 0.02
	base := catalog.RDPGaussian(sigma)
	for _, improved := range []bool{false, true} {
		amplified := subsampledRDP(base, prob, true, improved)
		for _, alpha := range []float64{1, 1.5, 2, 3.7, 10, 64, 150, 500} {
			got := amplified(alpha)
			if got < 0 {
				t.Errorf("improved=%v: amplified RDP(%v) = %v, want nonnegative", improved, alpha, got)
			}
			if got > base(alpha)+1e-12 {
				t.Errorf("improved=%v: amplified RDP(%v) = %v exceeds unamplified %v", improved, alpha, got, base(alpha))
			}
		}
	}
}

func TestSubsampledRDPImprovedIsTighter(t *testing.T) {
	base := catalog.RDPGaussian(2.0)
	generic := subsampledRDP(base, 0.02, true, false)
	tight := subsampledRDP(base, 0.02, true, true)
	for _, alpha := range []float64{2, 5, 20, 100} {
		if tight(alpha) > generic(alpha)+1e-12 {
			t.Errorf("tight bound %v exceeds generic bound %v at order %v", tight(alpha), generic(alpha), alpha)
		}
	}
}

func TestSubsampledRDPFullSamplingIsIdentity(t *testing.T) {
	base := catalog.RDPGaussian(1.0)
	amplified := subsampledRDP(base, 1, true, true)
	for _, alpha := range []float64{2, 5, 50} {
		if got, want := amplified(alpha), base(alpha); math.Abs(got-want) > 1e-10 {
			t.Errorf("amplified RDP(%v) = %v at full sampling, want %v", alpha, got, want)
		}
	}
}

func TestAmplifiedApproxDP(t *testing.T) {
	base, err := mechanisms.Gaussian(1.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	const prob = 0.01
	amplified, err := AmplifyBySampling(base, prob, PoissonSampling, true)
	if err != nil {
		t.Fatal(err)
	}
	const delta = 1e-6
	epsAmp, err := amplified.ApproxDP(delta)
	if err != nil {
		t.Fatal(err)
	}
	epsBase, err := base.ApproxDP(delta / prob)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Log1p(prob * math.Expm1(epsBase))
	if epsAmp > want+1e-12 {
		t.Errorf("amplified ApproxDP(%v) = %v, want at most the direct bound %v", delta, epsAmp, want)
	}
	if epsAmp <= 0 || epsAmp >= epsBase {
		t.Errorf("amplified eps %v not inside (0, %v)", epsAmp, epsBase)
	}
	if !strings.HasPrefix(amplified.Name, "Poisson:") {
		t.Errorf("amplified name = %q, want Poisson: prefix", amplified.Name)
	}
	if got, ok := amplified.Params["prob"]; !ok || got != prob {
		t.Errorf("amplified params %v, want prob = %v", amplified.Params, prob)
	}
}

func TestSubsampledGaussianComposition(t *testing.T) {
	const sigma, prob, rounds = 2.0, 0.01, 100
	m, err := SubsampledGaussian(sigma, prob, rounds, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	eps, err := m.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if eps <= 0 || math.IsInf(eps, 1) {
		t.Fatalf("ApproxDP(1e-6) = %v, want finite positive", eps)
	}
	// Amplification must beat composing the unamplified mechanism.
	full, err := mechanisms.Gaussian(sigma, nil)
	if err != nil {
		t.Fatal(err)
	}
	composedFull, err := Compose([]*accounting.Mechanism{full}, []float64{rounds}, nil)
	if err != nil {
		t.Fatal(err)
	}
	epsFull, err := composedFull.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if eps >= epsFull {
		t.Errorf("subsampled composition eps %v not below unamplified %v", eps, epsFull)
	}
}
