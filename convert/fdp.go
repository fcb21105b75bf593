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

// PureDPToFDP converts a pure-DP guarantee into its exact trade-off curve,
// the two-line envelope of an ε-DP test.
func PureDPToFDP(eps float64) Tradeoff {
	return func(fpr float64) float64 {
		return math.Max(0, math.Max(1-math.Exp(eps)*fpr, math.Exp(-eps)*(1-fpr)))
	}
}

// ApproxDPToFDP converts a single (ε,δ) guarantee into its trade-off
// curve.
func ApproxDPToFDP(eps, delta float64) Tradeoff {
	return func(fpr float64) float64 {
		if fpr == 0 {
			return 1 - delta
		}
		if math.IsInf(eps, 1) {
			return 0
		}
		return math.Max(0, math.Max(1-delta-math.Exp(eps)*fpr, math.Exp(-eps)*(1-delta-fpr)))
	}
}

// ApproxDPFuncToFDP converts a full ε(δ) curve into a trade-off curve by
// taking the upper envelope of the per-δ trade-off lines.
func ApproxDPFuncToFDP(f ApproxDP) Tradeoff {
	return func(fpr float64) float64 {
		if fpr == 1 {
			return 0
		}
		fun := func(delta float64) float64 {
			eps, err := f(delta)
			if err != nil {
				return math.Inf(1)
			}
			return -ApproxDPToFDP(eps, delta)(fpr)
		}
		res := solver.MinimizeBounded(fun, 0, 1-fpr, nil)
		if !res.Converged || math.IsInf(res.F, 0) {
			return 0
		}
		return -res.F
	}
}

// ApproxDeltaFuncToFDP converts a δ(ε) curve into a trade-off curve,
// taking the upper envelope over ε ≥ 0.
func ApproxDeltaFuncToFDP(f ApproxDelta) Tradeoff {
	return func(fpr float64) float64 {
		if fpr == 1 {
			return 0
		}
		fun := func(eps float64) float64 {
			if eps < 0 {
				return math.Inf(1)
			}
			delta, err := f(eps)
			if err != nil {
				return math.Inf(1)
			}
			return -ApproxDPToFDP(eps, delta)(fpr)
		}
		res := solver.MinimizeBracket(fun, 0, 1, nil)
		if !res.Converged || math.IsInf(res.F, 0) {
			return 0
		}
		return -res.F
	}
}

// klResidual1 and klResidual2 are the two KL-divergence constraints that
// pin down the order-1 trade-off curve: D(x‖1-y) ≤ ρ and D(y‖1-x) ≤ ρ for
// Bernoulli arguments.
func klResidual1(x, y, rho float64) float64 {
	return x*(math.Log(x)-math.Log(1-y)) + (1-x)*(math.Log(1-x)-math.Log(y)) - rho
}

func klResidual2(x, y, rho float64) float64 {
	return y*(math.Log(y)-math.Log(1-x)) + (1-y)*(math.Log(1-y)-math.Log(x)) - rho
}

// renyiResidual1 and renyiResidual2 are the analogous constraints for a
// general order α, written as (α-1)·(D_α - ρ) in log space.
func renyiResidual1(alpha, x, y, rho float64) float64 {
	return stablemath.LogSumExpTwo(
		alpha*math.Log(x)+(1-alpha)*math.Log(1-y),
		alpha*math.Log(1-x)+(1-alpha)*math.Log(y),
	) - rho*(alpha-1)
}

func renyiResidual2(alpha, x, y, rho float64) float64 {
	return stablemath.LogSumExpTwo(
		alpha*math.Log(y)+(1-alpha)*math.Log(1-x),
		alpha*math.Log(1-y)+(1-alpha)*math.Log(x),
	) - rho*(alpha-1)
}

// SingleRDPToFDP converts a single Rényi divergence bound ρ at order α
// into a trade-off lower bound. The curve is the largest false-negative
// rate consistent with both divergence constraints between the Bernoulli
// marginals of an optimal test, found by driving the active residual to
// zero over y ∈ [0, 1-x].
func SingleRDPToFDP(alpha, rho float64) Tradeoff {
	residual := func(x, y float64) float64 {
		switch {
		case y == 0:
			if x == 1 {
				return 0
			}
			return math.Inf(1)
		case y == 1:
			if x == 0 {
				return 0
			}
			return math.Inf(1)
		case alpha == 1:
			return math.Max(klResidual1(x, y, rho), klResidual2(x, y, rho))
		default:
			r1 := renyiResidual1(alpha, x, y, rho)
			r2 := renyiResidual2(alpha, x, y, rho)
			// For α < 1 the sign of (α-1) flips the binding direction.
			if alpha > 1 {
				return math.Max(r1, r2)
			}
			return math.Min(r1, r2)
		}
	}
	return func(fpr float64) float64 {
		if fpr < 0 || fpr > 1 {
			log.Fatalf("SingleRDPToFDP: false positive rate %v outside [0, 1]", fpr)
		}
		if fpr == 0 {
			return 1
		}
		if fpr == 1 {
			return 0
		}
		fun := func(y float64) float64 {
			return math.Abs(residual(fpr, y))
		}
		res := solver.MinimizeBounded(fun, 0, 1-fpr, &solver.Options{XTol: 1e-9 * (1 - fpr), MaxIter: 5000})
		if !res.Converged {
			log.Warningf("SingleRDPToFDP: residual search did not converge at alpha=%v rho=%v fpr=%v", alpha, rho, fpr)
			return 0
		}
		return res.X
	}
}

// RDPToFDP converts a full RDP curve into a trade-off curve by taking the
// best single-order bound at each false-positive rate. Orders below 1/2
// are excluded, matching the range on which the per-order bound holds.
func RDPToFDP(rdp RDP, alphaMax float64) Tradeoff {
	if alphaMax <= 0 {
		alphaMax = math.Inf(1)
	}
	return func(fpr float64) float64 {
		if fpr == 0 {
			return 1
		}
		if fpr == 1 {
			return 0
		}
		fun := func(alpha float64) float64 {
			if alpha < 0.5 || alpha > alphaMax {
				return math.Inf(1)
			}
			return -SingleRDPToFDP(alpha, rdp(alpha))(fpr)
		}
		res := minimizeOverOrders(fun, 0.5, 2, alphaMax)
		if !res.Converged {
			return 0
		}
		return -res.F
	}
}

// FDPToApproxDP converts a trade-off curve into an approximate-DP curve
// through convex duality: δ(ε) = 1 + f*(-e^ε) where f* is the convex
// conjugate, inverted numerically in e^ε. The result is conservative by
// the conjugate's tolerance.
//
// For curves with an available subgradient, FDPGradToApproxDP is both
// faster and tighter.
func FDPToApproxDP(fdp Tradeoff) ApproxDP {
	const conjTol = 1e-10
	fstar := solver.Conjugate(func(y float64) float64 { return fdp(y) }, conjTol)
	// -f*(-e^ε) = 1 - δ(ε), nonincreasing in ε.
	oneMinusDelta := func(expEps float64) float64 {
		v, ok := fstar(-expEps)
		if !ok {
			return math.NaN()
		}
		return -v
	}
	invert := solver.NumericalInverse(oneMinusDelta, 0, 1, 1, 1e-6)
	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		expEps, ok := invert(1 - delta)
		if !ok {
			return math.Inf(1), nil
		}
		return math.Log(expEps), nil
	}
}
