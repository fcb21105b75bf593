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

package accounting

import (
	"math"
	"testing"

	"github.com/erchiw/autodp/convert"
)

func gaussianRDP(sigma float64) convert.RDP {
	return func(alpha float64) float64 {
		return alpha / (2 * sigma * sigma)
	}
}

func TestEmptyMechanismReportsVacuousAnswers(t *testing.T) {
	m := New("empty", nil)
	eps, err := m.ApproxDP(1e-5)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(eps, 1) {
		t.Errorf("ApproxDP = %v, want +Inf", eps)
	}
	rho, err := m.RenyiDP(2)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(rho, 1) {
		t.Errorf("RenyiDP = %v, want +Inf", rho)
	}
	delta, err := m.ApproxDelta(1)
	if err != nil {
		t.Fatal(err)
	}
	if delta != 1 {
		t.Errorf("ApproxDelta = %v, want 1", delta)
	}
	fnr, err := m.FDP(0.3)
	if err != nil {
		t.Fatal(err)
	}
	if fnr != 0 {
		t.Errorf("FDP = %v, want 0", fnr)
	}
}

func TestUpdateRDPPropagates(t *testing.T) {
	m := New("gaussian", nil)
	m.UpdateRDP(gaussianRDP(1))

	rho, err := m.RenyiDP(4)
	if err != nil {
		t.Fatal(err)
	}
	if rho != 2 {
		t.Errorf("RenyiDP(4) = %v, want 2", rho)
	}
	eps, err := m.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(eps, 1) || eps <= 0 {
		t.Errorf("ApproxDP(1e-6) = %v, want a finite positive epsilon", eps)
	}
	fnr, err := m.FDP(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if fnr <= 0 || fnr >= 1 {
		t.Errorf("FDP(0.1) = %v, want a value in (0, 1)", fnr)
	}
	if _, _, ok := m.LogFDPCurve(); !ok {
		t.Error("log trade-off curve was not derived")
	}
}

func TestDirectCurveNotOverwrittenByDerived(t *testing.T) {
	// Supply a direct approx-DP curve first, then an RDP curve; the
	// derived conversion must not displace the direct curve.
	direct := func(delta float64) (float64, error) { return 0.123, nil }

	m := New("gaussian", nil)
	m.UpdateApproxDPFunc(direct)
	m.UpdateRDP(gaussianRDP(1))

	eps, err := m.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if eps != 0.123 {
		t.Errorf("ApproxDP = %v, want the directly supplied 0.123", eps)
	}
	// The reverse order: the direct curve overwrites the derived one.
	m = New("gaussian", nil)
	m.UpdateRDP(gaussianRDP(1))
	m.UpdateApproxDPFunc(direct)
	eps, err = m.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if eps != 0.123 {
		t.Errorf("ApproxDP = %v, want the directly supplied 0.123", eps)
	}
}

func TestUpdatePureDP(t *testing.T) {
	m := New("pure", nil)
	if err := m.UpdatePureDP(1.5); err != nil {
		t.Fatal(err)
	}
	got, ok := m.PureDP()
	if !ok || got != 1.5 {
		t.Fatalf("PureDP = %v, %v, want 1.5, true", got, ok)
	}
	rho, err := m.RenyiDP(math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	if rho != 1.5 {
		t.Errorf("RenyiDP(inf) = %v, want 1.5", rho)
	}
	eps, err := m.ApproxDP(0)
	if err != nil {
		t.Fatal(err)
	}
	if eps != 1.5 {
		t.Errorf("ApproxDP(0) = %v, want 1.5", eps)
	}
	if err := m.UpdatePureDP(-1); err == nil {
		t.Error("UpdatePureDP(-1) succeeded, want error")
	}
}

func TestDelta0Gates(t *testing.T) {
	m := New("gated", nil)
	m.UpdateRDP(gaussianRDP(1))
	m.Delta0 = 1e-4
	eps, err := m.ApproxDP(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(eps, 1) {
		t.Errorf("ApproxDP below delta0 = %v, want +Inf", eps)
	}
	eps, err = m.ApproxDP(1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(eps, 1) {
		t.Error("ApproxDP above delta0 is infinite")
	}
}

func TestDomainErrors(t *testing.T) {
	m := New("gaussian", nil)
	m.UpdateRDP(gaussianRDP(1))
	if _, err := m.ApproxDP(-0.1); err == nil {
		t.Error("ApproxDP(-0.1) succeeded, want error")
	}
	if _, err := m.ApproxDP(1.1); err == nil {
		t.Error("ApproxDP(1.1) succeeded, want error")
	}
	if _, err := m.RenyiDP(-2); err == nil {
		t.Error("RenyiDP(-2) succeeded, want error")
	}
	if _, err := m.FDP(1.5); err == nil {
		t.Error("FDP(1.5) succeeded, want error")
	}
	if _, err := m.ApproxDelta(-1); err == nil {
		t.Error("ApproxDelta(-1) succeeded, want error")
	}
}

func TestUpdateFDPAndGradLogFillsLinearCurve(t *testing.T) {
	curve, grad := convert.RDPToFDPAndGradLog(gaussianRDP(1), 0)
	m := New("gdp", nil)
	m.UpdateFDPAndGradLog(curve, grad)
	fnr, err := m.FDP(0.2)
	if err != nil {
		t.Fatal(err)
	}
	if fnr <= 0 || fnr >= 1 {
		t.Errorf("FDP(0.2) = %v, want a value in (0, 1)", fnr)
	}
	eps, err := m.ApproxDP(1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(eps, 1) || eps <= 0 {
		t.Errorf("ApproxDP(1e-3) = %v, want a finite positive epsilon", eps)
	}
}

func TestBasicConversionIsLooser(t *testing.T) {
	tight := New("tight", nil)
	tight.UpdateRDP(gaussianRDP(2))
	loose := New("loose", &Options{BasicConversion: true})
	loose.UpdateRDP(gaussianRDP(2))

	const delta = 1e-5
	epsTight, err := tight.ApproxDP(delta)
	if err != nil {
		t.Fatal(err)
	}
	epsLoose, err := loose.ApproxDP(delta)
	if err != nil {
		t.Fatal(err)
	}
	if epsTight > epsLoose+1e-9 {
		t.Errorf("BBGHS eps %v exceeds basic eps %v", epsTight, epsLoose)
	}
}
