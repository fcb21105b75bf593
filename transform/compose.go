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

// Package transform builds new mechanisms out of existing ones:
// composition under several accounting regimes and privacy amplification
// by subsampling.
package transform

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/erchiw/autodp/accounting"
	"github.com/erchiw/autodp/catalog"
	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/convert"
	"github.com/erchiw/autodp/mechanisms"
)

// Compose composes the mechanisms under RDP accounting: the composed RDP
// curve is the coefficient-weighted sum of the member curves, and the
// usual conversions propagate it onward. Members that all carry a pure-DP
// guarantee additionally compose exactly in ε.
//
// coeffs[i] is the number of times mechanism i appears; fractional
// coefficients are accepted for group-privacy style bookkeeping.
func Compose(mechs []*accounting.Mechanism, coeffs []float64, opts *accounting.Options) (*accounting.Mechanism, error) {
	if err := checks.CheckCompositionArgs(len(mechs), coeffs); err != nil {
		return nil, err
	}

	composed := accounting.New(composedName(mechs, coeffs), opts)
	composed.Params = mergeParams(mechs)
	for _, m := range mechs {
		if m.Delta0 > composed.Delta0 {
			composed.Delta0 = m.Delta0
		}
	}

	// Exact pure-DP composition, available only when every member is
	// pure-DP. Recorded before the RDP curve so the tight ε(δ) at δ = 0
	// survives as the approx-DP description.
	allPure := true
	var epsSum float64
	for i, m := range mechs {
		eps, ok := m.PureDP()
		if !ok {
			allPure = false
			break
		}
		epsSum += coeffs[i] * eps
	}
	if allPure {
		if err := composed.UpdatePureDP(epsSum); err != nil {
			return nil, err
		}
	}

	curves := make([]convert.RDP, len(mechs))
	for i, m := range mechs {
		curve, ok := m.RDPCurve()
		if !ok {
			curve = func(alpha float64) float64 { return math.Inf(1) }
		}
		curves[i] = curve
	}
	cs := append([]float64(nil), coeffs...)
	composed.UpdateRDP(func(alpha float64) float64 {
		var sum float64
		for i, curve := range curves {
			sum += cs[i] * curve(alpha)
		}
		return sum
	})
	return composed, nil
}

// ComposePhi composes the mechanisms through their phi-functions, the
// analytical Fourier accountant: log phi-functions add under composition,
// so the composed pair is the coefficient-weighted sum. All members must
// carry phi-functions approximated from the same side; mixing a
// lower-bound member with an upper-bound member would make the composed
// curve neither.
func ComposePhi(mechs []*accounting.Mechanism, coeffs []float64, opts *accounting.Options) (*accounting.Mechanism, error) {
	if err := checks.CheckCompositionArgs(len(mechs), coeffs); err != nil {
		return nil, err
	}

	needLower, needUpper := false, false
	exact := true
	for _, m := range mechs {
		_, _, hasLower := m.PhiLowerPair()
		_, _, hasUpper := m.PhiUpperPair()
		if !hasLower && !hasUpper {
			return nil, fmt.Errorf("mechanism %q carries no phi-function", m.Name)
		}
		if !m.ExactPhi {
			exact = false
			if hasUpper {
				needUpper = true
			} else {
				needLower = true
			}
		}
	}
	if needLower && needUpper {
		return nil, fmt.Errorf("cannot compose lower-bound phi-functions with upper-bound phi-functions")
	}

	direction := accounting.PhiExact
	if !exact {
		if needUpper {
			direction = accounting.PhiUpper
		} else {
			direction = accounting.PhiLower
		}
	}

	phiPs := make([]convert.LogPhi, len(mechs))
	phiQs := make([]convert.LogPhi, len(mechs))
	for i, m := range mechs {
		var phiP, phiQ convert.LogPhi
		var ok bool
		if direction == accounting.PhiLower {
			phiP, phiQ, ok = m.PhiLowerPair()
		} else {
			phiP, phiQ, ok = m.PhiUpperPair()
		}
		if !ok {
			return nil, fmt.Errorf("mechanism %q carries no phi-function on the required side", m.Name)
		}
		phiPs[i], phiQs[i] = phiP, phiQ
	}

	cs := append([]float64(nil), coeffs...)
	sumPhi := func(phis []convert.LogPhi) convert.LogPhi {
		return func(t float64) complex128 {
			var sum complex128
			for i, phi := range phis {
				sum += complex(cs[i], 0) * phi(t)
			}
			return sum
		}
	}

	composed := accounting.New(composedName(mechs, coeffs), opts)
	composed.Params = mergeParams(mechs)
	for _, m := range mechs {
		if m.Delta0 > composed.Delta0 {
			composed.Delta0 = m.Delta0
		}
	}
	composed.UpdatePhiPair(sumPhi(phiPs), sumPhi(phiQs), direction)
	return composed, nil
}

// ComposeGaussian composes Gaussian mechanisms exactly: a sum of Gaussian
// privacy losses is again Gaussian, so the composition is the Gaussian
// mechanism with σ = (Σ cᵢ σᵢ⁻²)^(-1/2) and every representation stays
// tight. All members must be Gaussian mechanisms with a recorded sigma.
func ComposeGaussian(mechs []*accounting.Mechanism, coeffs []float64) (*accounting.Mechanism, error) {
	if err := checks.CheckCompositionArgs(len(mechs), coeffs); err != nil {
		return nil, err
	}
	var precision float64
	for i, m := range mechs {
		if m.Family != accounting.FamilyGaussian {
			return nil, fmt.Errorf("mechanism %q is not Gaussian", m.Name)
		}
		sigma, ok := m.Params["sigma"]
		if !ok {
			return nil, fmt.Errorf("mechanism %q has no sigma parameter", m.Name)
		}
		precision += coeffs[i] / (sigma * sigma)
	}

	composed, err := mechanisms.ExactGaussian(math.Sqrt(1 / precision))
	if err != nil {
		return nil, err
	}
	composed.Name = composedName(mechs, coeffs)
	composed.Params = mergeParams(mechs)
	return composed, nil
}

// ComposedGaussian is shorthand for building and exactly composing
// Gaussian mechanisms with the given noise multipliers.
func ComposedGaussian(sigmas, coeffs []float64) (*accounting.Mechanism, error) {
	mechs := make([]*accounting.Mechanism, len(sigmas))
	for i, sigma := range sigmas {
		m, err := mechanisms.ExactGaussian(sigma)
		if err != nil {
			return nil, err
		}
		mechs[i] = m
	}
	return ComposeGaussian(mechs, coeffs)
}

// SubsampledGaussian builds the Gaussian mechanism with noise multiplier
// sigma, amplifies it by Poisson sampling with probability prob, and
// composes the result coeff times under RDP accounting.
func SubsampledGaussian(sigma, prob float64, coeff float64, improved bool, opts *accounting.Options) (*accounting.Mechanism, error) {
	base, err := mechanisms.Gaussian(sigma, &mechanisms.GaussianOptions{Acct: opts})
	if err != nil {
		return nil, err
	}
	amplified, err := AmplifyBySampling(base, prob, PoissonSampling, improved)
	if err != nil {
		return nil, err
	}
	return Compose([]*accounting.Mechanism{amplified}, []float64{coeff}, opts)
}

// RDPSubsampledGaussian is a convenience for catalog users who only need
// the amplified RDP curve of the Poisson-subsampled Gaussian at a
// sampling rate, without mechanism bookkeeping.
func RDPSubsampledGaussian(sigma, prob float64, improved bool) convert.RDP {
	return subsampledRDP(catalog.RDPGaussian(sigma), prob, true, improved)
}

func composedName(mechs []*accounting.Mechanism, coeffs []float64) string {
	parts := make([]string, len(mechs))
	for i, m := range mechs {
		parts[i] = m.Name + ": " + strconv.FormatFloat(coeffs[i], 'g', -1, 64)
	}
	return "Compose:{" + strings.Join(parts, ", ") + "}"
}

// mergeParams flattens the member parameters under name-prefixed keys so
// a calibrator can still find them on the composed mechanism.
func mergeParams(mechs []*accounting.Mechanism) map[string]float64 {
	merged := map[string]float64{}
	for _, m := range mechs {
		keys := make([]string, 0, len(m.Params))
		for k := range m.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			merged[m.Name+":"+k] = m.Params[k]
		}
	}
	return merged
}
