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
	"fmt"
	"math"
	"strconv"

	"github.com/erchiw/autodp/accounting"
	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/convert"
	"github.com/erchiw/autodp/stablemath"
)

// SamplingScheme selects how a minibatch is drawn from the dataset, which
// decides both the applicable amplification bound and the neighboring
// relation of the amplified mechanism.
type SamplingScheme int

const (
	// PoissonSampling includes each record independently with the given
	// probability. It requires the base mechanism to satisfy DP under the
	// add-or-remove-one relation and preserves that relation.
	PoissonSampling SamplingScheme = iota
	// FixedSizeSampling draws a subset of a fixed size uniformly at
	// random. It requires and preserves the replace-one relation.
	FixedSizeSampling
)

func (s SamplingScheme) String() string {
	switch s {
	case PoissonSampling:
		return "Poisson"
	case FixedSizeSampling:
		return "Subsample"
	}
	return fmt.Sprintf("SamplingScheme(%d)", int(s))
}

// maxSubsampleOrder bounds the integer moments precomputed by the
// amplified RDP curve; beyond it the curve extrapolates linearly in the
// CGF, which stays a valid upper bound.
const maxSubsampleOrder = 200

// AmplifyBySampling applies privacy amplification by subsampling to the
// mechanism. The amplified mechanism carries both an amplified
// approximate-DP curve, ε'(δ) = log(1 + γ(exp(ε(δ/γ)) − 1)), and an
// amplified RDP curve from the moment-accountant bounds. With improved
// set, Poisson sampling uses the tight integer-moment bound instead of
// the generic one.
func AmplifyBySampling(mech *accounting.Mechanism, prob float64, scheme SamplingScheme, improved bool) (*accounting.Mechanism, error) {
	if err := checks.CheckSamplingProbability(prob); err != nil {
		return nil, err
	}
	switch scheme {
	case PoissonSampling:
		if mech.ReplaceOne {
			return nil, fmt.Errorf("Poisson sampling amplifies add-or-remove-one DP, but mechanism %q satisfies replace-one DP", mech.Name)
		}
	case FixedSizeSampling:
		if !mech.ReplaceOne {
			return nil, fmt.Errorf("fixed-size sampling amplifies replace-one DP, but mechanism %q satisfies add-or-remove-one DP", mech.Name)
		}
	default:
		return nil, fmt.Errorf("unknown sampling scheme %v", scheme)
	}

	opts := mech.Opts()
	amplified := accounting.New(scheme.String()+":"+mech.Name, &opts)
	amplified.ReplaceOne = mech.ReplaceOne
	amplified.Delta0 = mech.Delta0 * prob
	amplified.Params = amplifiedParams(mech.Params, prob)

	if prob == 0 {
		// Sampling nobody releases nothing.
		amplified.UpdateApproxDPFunc(func(delta float64) (float64, error) {
			if err := checks.CheckDelta(delta); err != nil {
				return 0, err
			}
			return 0, nil
		})
		amplified.UpdateRDP(func(alpha float64) float64 { return 0 })
		return amplified, nil
	}

	// The direct approx-DP amplification is recorded first so the weaker
	// curve derived from the amplified RDP does not displace it.
	if baseApproxDP, ok := mech.ApproxDPCurve(); ok {
		amplified.UpdateApproxDPFunc(amplifiedApproxDP(baseApproxDP, prob))
	}
	if baseRDP, ok := mech.RDPCurve(); ok {
		amplified.UpdateRDP(subsampledRDP(baseRDP, prob, scheme == PoissonSampling, improved))
	}
	return amplified, nil
}

// amplifiedApproxDP is the classical amplification-by-subsampling bound
// for approximate DP, valid for both sampling schemes.
func amplifiedApproxDP(base convert.ApproxDP, prob float64) convert.ApproxDP {
	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		ratio := delta / prob
		if ratio > 1 {
			ratio = 1
		}
		eps, err := base(ratio)
		if err != nil {
			return 0, err
		}
		if math.IsInf(eps, 1) {
			return eps, nil
		}
		return math.Log1p(prob * math.Expm1(eps)), nil
	}
}

// subsampledRDP builds the amplified RDP curve from the moment-accountant
// bounds. Integer moments up to maxSubsampleOrder are precomputed; the
// curve at non-integer orders interpolates the CGF (α−1)·ρ(α) linearly
// between neighboring integers, which is valid because the CGF is convex.
// Every moment is additionally capped by the amplified ρ(∞).
func subsampledRDP(rdp convert.RDP, prob float64, poisson, improved bool) convert.RDP {
	rhoInfBase := rdp(math.Inf(1))
	rhoInf := math.Inf(1)
	if !math.IsInf(rhoInfBase, 1) {
		rhoInf = math.Log1p(prob * math.Expm1(rhoInfBase))
	}

	vals := make([]float64, maxSubsampleOrder+1)
	// The first moment is bounded through joint convexity of the KL
	// divergence in the mixture weight.
	vals[1] = prob * rdp(1)
	for m := 2; m <= maxSubsampleOrder; m++ {
		var v float64
		if poisson && improved {
			v = tightPoissonOrder(rdp, prob, m)
		} else {
			v = genericOrder(rdp, prob, m, rhoInfBase)
		}
		if v > rhoInf {
			v = rhoInf
		}
		if v < 0 {
			v = 0
		}
		vals[m] = v
	}

	cgfAt := func(m int) float64 { return float64(m-1) * vals[m] }

	return func(alpha float64) float64 {
		switch {
		case math.IsNaN(alpha) || alpha < 0:
			return math.Inf(1)
		case math.IsInf(alpha, 1):
			return rhoInf
		case alpha <= 1:
			return vals[1]
		case alpha >= maxSubsampleOrder:
			// Linear CGF extrapolation from the last precomputed order.
			cgf := cgfAt(maxSubsampleOrder) +
				(alpha-maxSubsampleOrder)*(cgfAt(maxSubsampleOrder)-cgfAt(maxSubsampleOrder-1))
			v := cgf / (alpha - 1)
			if v > rhoInf {
				v = rhoInf
			}
			return v
		}
		lo := int(math.Floor(alpha))
		hi := lo + 1
		var cgf float64
		if lo == 1 {
			// CGF vanishes at α = 1, so the segment starts at zero.
			cgf = (alpha - 1) * cgfAt(2)
		} else {
			frac := alpha - float64(lo)
			cgf = (1-frac)*cgfAt(lo) + frac*cgfAt(hi)
		}
		v := cgf / (alpha - 1)
		if v > rhoInf {
			v = rhoInf
		}
		return v
	}
}

// tightPoissonOrder evaluates the tight Poisson-subsampling bound at the
// integer moment m:
//
//	ρ'(m) = 1/(m−1) · log( (1−γ)^m + m·γ(1−γ)^(m−1)
//	          + Σ_{j=2}^{m} C(m,j) γ^j (1−γ)^(m−j) e^{(j−1)ρ(j)} ).
func tightPoissonOrder(rdp convert.RDP, prob float64, m int) float64 {
	if prob == 1 {
		return rdp(float64(m))
	}
	logProb := math.Log(prob)
	log1mProb := math.Log1p(-prob)

	terms := make([]float64, 0, m+1)
	terms = append(terms, float64(m)*log1mProb)
	terms = append(terms, math.Log(float64(m))+logProb+float64(m-1)*log1mProb)
	for j := 2; j <= m; j++ {
		t := logComb(m, j) + float64(j)*logProb + float64(m-j)*log1mProb +
			float64(j-1)*rdp(float64(j))
		terms = append(terms, t)
	}
	return stablemath.LogSumExp(terms) / float64(m-1)
}

// genericOrder evaluates the amplification bound of Wang, Balle and
// Kasiviswanathan at the integer moment m. It holds for Poisson sampling
// under add-or-remove-one DP and for fixed-size sampling under
// replace-one DP; the pure-DP cap through ε(∞) tightens it when the base
// mechanism has a finite worst-case loss.
func genericOrder(rdp convert.RDP, prob float64, m int, epsInf float64) float64 {
	if prob == 1 {
		return rdp(float64(m))
	}
	logProb := math.Log(prob)

	// Each term past the second is capped by min(log 2, j·(ε∞ +
	// log(1 − e^{−ε∞}))); with ε∞ = ∞ only the log 2 branch remains.
	capAt := func(j int) float64 {
		if math.IsInf(epsInf, 1) {
			return math.Ln2
		}
		return math.Min(math.Ln2, float64(j)*(epsInf+stablemath.Log1MinusExp(-epsInf)))
	}

	terms := make([]float64, 0, m)
	terms = append(terms, 0)

	rho2 := rdp(2)
	branchA := math.Log(4) + rho2 + stablemath.Log1MinusExp(-rho2)
	branchB := rho2 + capAt(2)
	term2 := logComb(m, 2) + 2*logProb + math.Min(branchA, branchB)
	terms = append(terms, term2)

	for j := 3; j <= m; j++ {
		t := logComb(m, j) + float64(j)*logProb + float64(j-1)*rdp(float64(j)) + capAt(j)
		terms = append(terms, t)
	}
	return stablemath.LogSumExp(terms) / float64(m-1)
}

// amplifiedParams copies the base parameters and records the sampling
// probability, suffixing the key if the base mechanism already uses it.
func amplifiedParams(base map[string]float64, prob float64) map[string]float64 {
	params := make(map[string]float64, len(base)+1)
	for k, v := range base {
		params[k] = v
	}
	key := "prob"
	for i := 1; ; i++ {
		if _, taken := params[key]; !taken {
			break
		}
		key = "prob" + strconv.Itoa(i)
	}
	params[key] = prob
	return params
}

// logComb is log C(n, k) through the log-gamma function.
func logComb(n, k int) float64 {
	ln, _ := math.Lgamma(float64(n) + 1)
	lk, _ := math.Lgamma(float64(k) + 1)
	lnk, _ := math.Lgamma(float64(n-k) + 1)
	return ln - lk - lnk
}
