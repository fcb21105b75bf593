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

	log "github.com/golang/glog"

	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/solver"
	"github.com/erchiw/autodp/stablemath"
)

// PureDPToRDP converts a pure-DP guarantee into the exact RDP curve of an
// ε-DP mechanism. The curve is tight: it is attained by randomized
// response with parameter ε.
func PureDPToRDP(eps float64) RDP {
	return func(alpha float64) float64 {
		if eps == 0 {
			return 0
		}
		switch {
		case math.IsInf(alpha, 1):
			return eps
		case alpha == 1:
			// KL divergence of the pair of extreme points,
			// ε(cosh ε - 1)/sinh ε written via tanh for stability.
			return eps * math.Tanh(eps/2)
		case alpha > 1:
			_, num := stablemath.LogDiffExp(stablemath.LogSinh(alpha*eps), stablemath.LogSinh((alpha-1)*eps))
			return (num - stablemath.LogSinh(eps)) / (alpha - 1)
		default:
			// For α < 1 fall back to the quadratic bound capped by the
			// KL value, which the Rényi divergence never exceeds there.
			return math.Min(alpha*eps*eps/2, eps*math.Tanh(eps/2))
		}
	}
}

// PureDPToApproxDP converts a pure-DP guarantee into the tight
// approximate-DP curve ε(δ) = log(e^ε - δ).
func PureDPToApproxDP(eps float64) ApproxDP {
	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		if math.IsInf(eps, 1) {
			return math.Inf(1), nil
		}
		_, mag := stablemath.LogDiffExp(eps, math.Log(delta))
		return mag, nil
	}
}

// RDPToApproxDP converts an RDP curve into an approximate-DP curve by
// minimizing the order-wise conversion bound over α > 1.
//
// With useBBGHS set, the tighter bound
//
//	ε(δ) = ρ(α) + log((α-1)/α) - (log δ + log α)/(α-1)
//
// is used; otherwise the naive bound ρ(α) + log(1/δ)/(α-1). alphaMax caps
// the orders the search may use; pass +∞ (or 0) for no cap, or a finite
// value when the curve is only trusted up to some order.
func RDPToApproxDP(rdp RDP, alphaMax float64, useBBGHS bool) ApproxDP {
	if alphaMax <= 0 {
		alphaMax = math.Inf(1)
	}
	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		if delta == 0 {
			return rdp(math.Inf(1)), nil
		}
		fun := func(alpha float64) float64 {
			if alpha <= 1 || alpha > alphaMax {
				return math.Inf(1)
			}
			if useBBGHS {
				bound := rdp(alpha) + math.Log((alpha-1)/alpha) - (math.Log(delta)+math.Log(alpha))/(alpha-1)
				return math.Max(bound, 0)
			}
			return math.Log(1/delta)/(alpha-1) + rdp(alpha)
		}
		res := minimizeOverOrders(fun, 1, 2, alphaMax)
		if !res.Converged || math.IsNaN(res.F) {
			return math.Inf(1), nil
		}
		return math.Max(res.F, 0), nil
	}
}

// RDPToApproxDelta converts an RDP curve into a δ(ε) curve by numerically
// inverting the order-optimized ε(δ) bound. For each candidate δ the inner
// problem takes the smaller of the BBGHS bound and the exact-moments
// bound
//
//	ε(δ) = log1p((e^{(α-1)ρ(α)} - 1)/(αδ)) / (α-1),
//
// then the outer search picks the δ ∈ [0, 0.1] whose ε matches the query.
// When no δ in range achieves the target, δ = 1 is returned.
func RDPToApproxDelta(rdp RDP) ApproxDelta {
	epsAt := func(delta float64) float64 {
		if delta == 0 {
			return rdp(math.Inf(1))
		}
		fun := func(alpha float64) float64 {
			if alpha <= 1 {
				return math.Inf(1)
			}
			bbghs := math.Max(rdp(alpha)+math.Log((alpha-1)/alpha)-(math.Log(delta)+math.Log(alpha))/(alpha-1), 0)
			_, expTerm := stablemath.LogDiffExp((alpha-1)*rdp(alpha), 0)
			moments := stablemath.LogSumExpTwo(expTerm-math.Log(alpha)-math.Log(delta), 0) / (alpha - 1)
			return math.Min(moments, bbghs)
		}
		res := minimizeOverOrders(fun, 1, 2, math.Inf(1))
		if !res.Converged {
			return math.Inf(1)
		}
		return res.F
	}
	return func(eps float64) (float64, error) {
		if err := checks.CheckEpsilon(eps); err != nil {
			return 0, err
		}
		fun := func(delta float64) float64 {
			cur := epsAt(delta)
			if math.IsInf(cur, 1) {
				return math.Inf(1)
			}
			return math.Abs(eps - cur)
		}
		res := solver.MinimizeBounded(fun, 0, 0.1, &solver.Options{XTol: 1e-14, MaxIter: 5000})
		if !res.Converged {
			log.Warningf("RDPToApproxDelta: search over delta did not converge at eps=%v, reporting delta=1", eps)
			return 1, nil
		}
		if math.IsInf(res.F, 1) {
			return 1, nil
		}
		return res.X, nil
	}
}

// ApproxDPToApproxRDP converts a single (ε,δ) point into an approximate
// RDP curve: for failure budgets at least δ the randomized-response RDP
// curve of parameter ε applies, below it nothing is guaranteed.
func ApproxDPToApproxRDP(eps, delta float64) ApproxRDP {
	curve := PureDPToRDP(eps)
	return func(alpha, deltaPrime float64) float64 {
		if deltaPrime >= delta {
			return curve(alpha)
		}
		return math.Inf(1)
	}
}

// ApproxDPFuncToApproxRDP converts a full approximate-DP curve into an
// approximate RDP curve by reading off ε at the queried failure budget.
func ApproxDPFuncToApproxRDP(f ApproxDP) ApproxRDP {
	return func(alpha, delta float64) float64 {
		eps, err := f(delta)
		if err != nil {
			return math.Inf(1)
		}
		return PureDPToRDP(eps)(alpha)
	}
}
