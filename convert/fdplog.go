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

// Log-coordinate trade-off curves. Working with log(1-f(x)) against
// log(x) keeps precision in the small-δ regime where both x and the
// gradient magnitude span many orders of magnitude, which the tangent-line
// conversion to approximate DP depends on.

import (
	"math"

	log "github.com/golang/glog"

	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/solver"
	"github.com/erchiw/autodp/stablemath"
)

// The residuals below mirror klResidual/renyiResidual with both test
// errors carried in log coordinates: logx = log(x) and u = log(1-y).

func klResidual1Log(logx, u, rho float64) float64 {
	return math.Exp(logx)*(logx-u) +
		(1-math.Exp(logx))*(stablemath.Log1MinusExp(logx)-stablemath.Log1MinusExp(u)) - rho
}

func klResidual2Log(logx, u, rho float64) float64 {
	return (1-math.Exp(u))*(stablemath.Log1MinusExp(u)-stablemath.Log1MinusExp(logx)) +
		math.Exp(u)*(u-logx) - rho
}

func renyiResidual1Log(alpha, logx, u, rho float64) float64 {
	return stablemath.LogSumExpTwo(
		alpha*logx+(1-alpha)*u,
		alpha*stablemath.Log1MinusExp(logx)+(1-alpha)*stablemath.Log1MinusExp(u),
	) - rho*(alpha-1)
}

func renyiResidual2Log(alpha, logx, u, rho float64) float64 {
	return stablemath.LogSumExpTwo(
		alpha*stablemath.Log1MinusExp(u)+(1-alpha)*stablemath.Log1MinusExp(logx),
		alpha*u+(1-alpha)*logx,
	) - rho*(alpha-1)
}

// Log-space gradients of the two constraint curves, i.e. log(-∂y/∂x) along
// the constraint that is active at (logx, u).

func klGrad1Log(logx, u float64) float64 {
	mag1 := math.Log(u - logx + stablemath.Log1MinusExp(logx) - stablemath.Log1MinusExp(u))
	_, mag2 := stablemath.LogDiffExp(stablemath.Log1MinusExp(logx)-stablemath.Log1MinusExp(u), logx-u)
	return mag1 - mag2
}

func klGrad2Log(logx, u float64) float64 {
	mag1 := math.Log(u - logx + stablemath.Log1MinusExp(logx) - stablemath.Log1MinusExp(u))
	_, mag2 := stablemath.LogDiffExp(u-logx, stablemath.Log1MinusExp(u)-stablemath.Log1MinusExp(logx))
	return mag2 - mag1
}

func renyiGrad1Log(alpha, logx, u float64) float64 {
	_, mag := stablemath.LogDiffExp(
		alpha*(stablemath.Log1MinusExp(logx)-stablemath.Log1MinusExp(u)),
		alpha*(logx-u))
	if alpha > 1 {
		_, mag1 := stablemath.LogDiffExp(
			(alpha-1)*(stablemath.Log1MinusExp(logx)-stablemath.Log1MinusExp(u)),
			(alpha-1)*(logx-u))
		return math.Log(alpha) - math.Log(alpha-1) + mag1 - mag
	}
	_, mag1 := stablemath.LogDiffExp(
		(alpha-1)*(logx-u),
		(alpha-1)*(stablemath.Log1MinusExp(logx)-stablemath.Log1MinusExp(u)))
	return math.Log(alpha) - math.Log(1-alpha) + mag1 - mag
}

func renyiGrad2Log(alpha, logx, u float64) float64 {
	_, mag := stablemath.LogDiffExp(
		alpha*(u-logx),
		alpha*(stablemath.Log1MinusExp(u)-stablemath.Log1MinusExp(logx)))
	if alpha > 1 {
		_, mag2 := stablemath.LogDiffExp(
			(alpha-1)*(u-logx),
			(alpha-1)*(stablemath.Log1MinusExp(u)-stablemath.Log1MinusExp(logx)))
		return math.Log(1-1.0/alpha) + mag - mag2
	}
	_, mag2 := stablemath.LogDiffExp(
		(alpha-1)*(stablemath.Log1MinusExp(u)-stablemath.Log1MinusExp(logx)),
		(alpha-1)*(u-logx))
	return math.Log(1.0/alpha-1) + mag - mag2
}

// SingleRDPToFDPAndGradLog converts a single Rényi divergence bound at
// order α ≥ 1/2 into a log-coordinate trade-off curve together with its
// log-coordinate subgradient. The subgradient is reported as the interval
// spanned by the constraints active at the solution.
func SingleRDPToFDPAndGradLog(alpha, rho float64) (LogTradeoff, LogTradeoffGrad) {
	residual1 := func(logx, u float64) float64 {
		if alpha == 1 {
			return klResidual1Log(logx, u, rho)
		}
		return renyiResidual1Log(alpha, logx, u, rho)
	}
	residual2 := func(logx, u float64) float64 {
		if alpha == 1 {
			return klResidual2Log(logx, u, rho)
		}
		return renyiResidual2Log(alpha, logx, u, rho)
	}

	logOneMinusFDP := func(logx float64) float64 {
		if err := checks.CheckLogFalsePositiveRate(logx); err != nil {
			log.Fatalf("SingleRDPToFDPAndGradLog: %v", err)
		}
		if logx == 0 {
			return 0
		}
		if math.IsInf(logx, -1) {
			return math.Inf(-1)
		}
		fun := func(u float64) float64 {
			if u == 0 {
				return math.Inf(1)
			}
			if math.IsInf(u, -1) {
				return math.Inf(1)
			}
			r1 := residual1(logx, u)
			r2 := residual2(logx, u)
			if alpha < 1 {
				// the binding direction flips below order 1
				return math.Min(r1, r2)
			}
			return math.Max(r1, r2)
		}
		// Two roots exist; the search window [logx, 0] keeps the one with
		// the smaller false negative rate.
		res := solver.MinimizeBounded(func(u float64) float64 {
			return math.Abs(fun(u))
		}, logx, 0, &solver.Options{XTol: 1e-6})
		if !res.Converged {
			return 0
		}
		return res.X
	}

	logNegGrad := func(logx float64) (float64, float64) {
		if math.IsInf(logx, -1) {
			return math.Inf(1), math.Inf(1)
		}
		if logx == 0 {
			return 0, 0
		}
		u := logOneMinusFDP(logx)
		const tol = 1e-5
		r1 := residual1(logx, u)
		r2 := residual2(logx, u)
		if math.Min(math.Abs(r1), math.Abs(r2)) > tol {
			log.Warningf("SingleRDPToFDPAndGradLog: no active constraint at alpha=%v logx=%v", alpha, logx)
		}
		gradLo, gradHi := math.Inf(1), 0.0
		if math.Abs(r1) <= tol {
			var g float64
			if alpha == 1 {
				g = klGrad1Log(logx, u)
			} else {
				g = renyiGrad1Log(alpha, logx, u)
			}
			gradLo, gradHi = g, g
		}
		if math.Abs(r2) <= tol {
			var g float64
			if alpha == 1 {
				g = klGrad2Log(logx, u)
			} else {
				g = renyiGrad2Log(alpha, logx, u)
			}
			gradLo = math.Min(g, gradLo)
			gradHi = math.Max(g, gradHi)
		}
		return gradLo, gradHi
	}

	return logOneMinusFDP, logNegGrad
}

// RDPToFDPAndGradLog converts an RDP curve into a log-coordinate trade-off
// curve with subgradient by optimizing the single-order curve over
// α ∈ [1/2, alphaMax] at every point.
func RDPToFDPAndGradLog(rdp RDP, alphaMax float64) (LogTradeoff, LogTradeoffGrad) {
	if alphaMax <= 0 {
		alphaMax = math.Inf(1)
	}

	// bestOrder returns the minimized log(1-f) and the order attaining it.
	bestOrder := func(logx float64) (float64, float64) {
		fun := func(alpha float64) float64 {
			if alpha < 0.5 || alpha > alphaMax {
				return math.Inf(1)
			}
			curve, _ := SingleRDPToFDPAndGradLog(alpha, rdp(alpha))
			return curve(logx)
		}
		res := minimizeOverOrders(fun, 0.5, 2, alphaMax)
		if !res.Converged {
			log.Warningf("RDPToFDPAndGradLog: order search did not converge at logx=%v", logx)
			return fun(2), 2
		}
		return res.F, res.X
	}

	logOneMinusFDP := func(logx float64) float64 {
		if err := checks.CheckLogFalsePositiveRate(logx); err != nil {
			log.Fatalf("RDPToFDPAndGradLog: %v", err)
		}
		if math.IsInf(logx, -1) {
			return math.Inf(-1)
		}
		if logx == 0 {
			return 0
		}
		v, _ := bestOrder(logx)
		return v
	}

	logNegGrad := func(logx float64) (float64, float64) {
		if math.IsInf(logx, -1) {
			// At x = 0 the slope magnitude is at least e^ε of the pure-DP
			// epsilon, unbounded above.
			return rdp(math.Inf(1)), math.Inf(1)
		}
		if logx == 0 {
			return math.Inf(-1), -rdp(math.Inf(1))
		}
		_, alpha := bestOrder(logx)
		_, grad := SingleRDPToFDPAndGradLog(alpha, rdp(alpha))
		return grad(logx)
	}

	return logOneMinusFDP, logNegGrad
}

// TradeoffToLogCoords adapts a linear-coordinate trade-off curve and
// subgradient into the log-coordinate form consumed by
// FDPGradToApproxDP.
func TradeoffToLogCoords(fdp Tradeoff, grad func(fpr float64) (gradLo, gradHi float64)) (LogTradeoff, LogTradeoffGrad) {
	logCurve := func(logx float64) float64 {
		if math.IsInf(logx, -1) {
			return math.Log(1 - fdp(0))
		}
		if logx == 0 {
			return 0
		}
		return math.Log(1 - fdp(math.Exp(logx)))
	}
	logGrad := func(logx float64) (float64, float64) {
		var gradLo, gradHi float64
		if math.IsInf(logx, -1) {
			gradLo, gradHi = grad(0)
		} else {
			gradLo, gradHi = grad(math.Exp(logx))
		}
		lo, hi := math.Log(-gradLo), math.Log(-gradHi)
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}
	return logCurve, logGrad
}

// FDPGradToApproxDP converts a log-coordinate trade-off curve with
// subgradient into an approximate-DP curve. For each δ it finds the point
// where the tangent line of slope -e^ε supporting the curve has intercept
// 1-δ, then reads ε off the tangent. A *TangentError is returned when the
// tangent search stalls away from a root, which happens when the curve or
// its subgradient is inconsistent in the queried region.
func FDPGradToApproxDP(logCurve LogTradeoff, logGrad LogTradeoffGrad) ApproxDP {
	findLogx := func(delta float64) (float64, error) {
		residual := func(logx float64) (float64, float64) {
			if math.IsInf(logx, -1) {
				v := math.Log(delta) - logCurve(logx)
				return v, v
			}
			gradLo, gradHi := logGrad(logx)
			oneMinusF := logCurve(logx)
			lo := stablemath.LogSumExpTwo(gradLo+logx, math.Log(delta)) - oneMinusF
			hi := stablemath.LogSumExpTwo(gradHi+logx, math.Log(delta)) - oneMinusF
			return lo, hi
		}
		objective := func(logx float64) float64 {
			if logx > 0 {
				return math.Inf(1)
			}
			lo, hi := residual(logx)
			if lo <= 0 && 0 <= hi {
				return 0
			}
			return math.Min(math.Abs(hi), math.Abs(lo))
		}
		// Taylor-expanded lower bound for the bracket: the tangent point
		// satisfies x ≥ 1 - f^{-1}(1-δ), approximated through the curve at
		// log(1-δ).
		tmp := logCurve(math.Log1p(-delta))
		var lower float64
		if math.Abs(tmp) < 1e-5 {
			lower = math.Log(-tmp - tmp*tmp/2 - tmp*tmp*tmp/6)
		} else {
			lower = math.Log(1 - math.Exp(tmp))
		}
		// For tiny delta the expansion can underflow to -inf and collapse
		// the bracket. The tangent point sits within a slope factor of
		// delta, so floor the bracket well below log(delta).
		if math.IsNaN(lower) || lower < math.Log(delta)-100 {
			lower = math.Log(delta) - 100
		}
		res := solver.MinimizeBounded(objective, lower, 0, &solver.Options{XTol: 1e-10, MaxIter: 500})
		if !res.Converged {
			return 0, &TangentError{Delta: delta, Residual: res.F, LogX: res.X}
		}
		if math.Abs(res.F) > 1e-4 && math.Abs(res.X) > 1e-10 {
			return 0, &TangentError{Delta: delta, Residual: res.F, LogX: res.X}
		}
		return res.X, nil
	}

	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		if delta == 0 {
			gradLo, _ := logGrad(math.Inf(-1))
			return gradLo, nil
		}
		if delta == 1 {
			return 0, nil
		}
		logx, err := findLogx(delta)
		if err != nil {
			return 0, err
		}
		_, mag := stablemath.LogDiffExp(logCurve(logx), math.Log(delta))
		eps := mag - logx
		if eps < 0 {
			return 0, nil
		}
		return eps, nil
	}
}
