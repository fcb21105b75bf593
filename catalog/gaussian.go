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

// Package catalog collects the closed-form privacy descriptions of the
// standard mechanisms: RDP curves, phi-functions, trade-off curves and
// analytic (ε,δ) characterizations, each in the representation where the
// mechanism is cheapest to describe exactly.
package catalog

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/convert"
)

// gaussianSigmaTol is the relative accuracy of the noise-calibration
// binary searches.
const gaussianSigmaTol = 1e-4

// RDPGaussian returns the RDP curve α/(2σ²) of the Gaussian mechanism
// with noise multiplier sigma (noise standard deviation divided by the ℓ2
// sensitivity).
func RDPGaussian(sigma float64) convert.RDP {
	return func(alpha float64) float64 {
		return alpha / (2 * sigma * sigma)
	}
}

// DeltaGaussian computes the tight δ(ε) of the Gaussian mechanism:
//
//	δ = Φ(μ/2 - ε/μ) - e^ε Φ(-μ/2 - ε/μ),  μ = 1/σ.
func DeltaGaussian(sigma, eps float64) float64 {
	mu := 1 / sigma
	norm := distuv.UnitNormal
	return norm.CDF(mu/2-eps/mu) - math.Exp(eps)*norm.CDF(-mu/2-eps/mu)
}

// EpsGaussian computes the tight ε(δ) of the Gaussian mechanism by
// inverting DeltaGaussian, first doubling an upper bound into place and
// then bisecting. δ ≥ the δ at ε = 0 yields 0.
func EpsGaussian(sigma, delta float64) float64 {
	if delta >= DeltaGaussian(sigma, 0) {
		return 0
	}
	lo, hi := 0.0, 1.0
	for DeltaGaussian(sigma, hi) > delta {
		hi *= 2
		if math.IsInf(hi, 1) {
			return math.Inf(1)
		}
	}
	for hi-lo > gaussianSigmaTol*hi {
		mid := (lo + hi) / 2
		if DeltaGaussian(sigma, mid) > delta {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}

// SigmaGaussian calibrates the smallest noise multiplier that makes the
// Gaussian mechanism (ε,δ)-DP, by doubling and bisecting on the tight
// characterization. Both targets must be strictly interior: at δ = 0 or
// ε ∈ {0, ∞} no finite multiplier exists and the searches cannot
// terminate.
func SigmaGaussian(eps, delta float64) (float64, error) {
	if err := checks.CheckEpsilonStrict(eps); err != nil {
		return 0, err
	}
	if err := checks.CheckDeltaStrict(delta); err != nil {
		return 0, err
	}
	sigma := 1.0
	if DeltaGaussian(sigma, eps) > delta {
		for DeltaGaussian(sigma, eps) > delta {
			sigma *= 2
		}
		lo, hi := sigma/2, sigma
		for hi-lo > gaussianSigmaTol*hi {
			mid := (lo + hi) / 2
			if DeltaGaussian(mid, eps) > delta {
				lo = mid
			} else {
				hi = mid
			}
		}
		return hi, nil
	}
	for DeltaGaussian(sigma, eps) <= delta {
		sigma /= 2
	}
	lo, hi := sigma, sigma*2
	for hi-lo > gaussianSigmaTol*hi {
		mid := (lo + hi) / 2
		if DeltaGaussian(mid, eps) > delta {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// LogPhiGaussian returns the closed-form log phi-function of the Gaussian
// privacy loss, which is N(η/2, η) with η = 1/σ² under both orderings of
// the dominating pair.
func LogPhiGaussian(sigma float64) convert.LogPhi {
	eta := 1 / (sigma * sigma)
	return func(t float64) complex128 {
		return complex(-t*t*eta/2, t*eta/2)
	}
}

// FDPGaussian returns the exact trade-off curve of the Gaussian
// mechanism, Φ(Φ⁻¹(1-x) - 1/σ).
func FDPGaussian(sigma float64) convert.Tradeoff {
	mu := 1 / sigma
	norm := distuv.UnitNormal
	return func(fpr float64) float64 {
		if fpr == 0 {
			return 1
		}
		if fpr == 1 {
			return 0
		}
		return norm.CDF(norm.Quantile(1-fpr) - mu)
	}
}

// FDPGaussianLog returns the Gaussian trade-off curve and its subgradient
// in log coordinates. The slope has the closed form
//
//	log(-f'(x)) = μ Φ⁻¹(1-x) - μ²/2,
//
// so the tangent-line conversion needs no root finding on top of it.
func FDPGaussianLog(sigma float64) (convert.LogTradeoff, convert.LogTradeoffGrad) {
	mu := 1 / sigma
	norm := distuv.UnitNormal
	curve := func(logx float64) float64 {
		if math.IsInf(logx, -1) {
			return math.Inf(-1)
		}
		if logx == 0 {
			return 0
		}
		fnr := norm.CDF(norm.Quantile(1-math.Exp(logx)) - mu)
		return math.Log(1 - fnr)
	}
	grad := func(logx float64) (float64, float64) {
		if math.IsInf(logx, -1) {
			return math.Inf(1), math.Inf(1)
		}
		if logx == 0 {
			return math.Inf(-1), math.Inf(-1)
		}
		g := mu*norm.Quantile(1-math.Exp(logx)) - mu*mu/2
		return g, g
	}
	return curve, grad
}
