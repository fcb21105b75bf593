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

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/erchiw/autodp/convert"
)

// PhiBound selects how the phi-function of the subsampled Gaussian is
// approximated. The privacy loss has no closed-form phi, so it is either
// integrated directly by quadrature, or discretized onto a grid whose
// rounding direction makes the resulting privacy cost a valid lower or
// upper bound up to truncation.
type PhiBound int

const (
	// PhiBoundNone integrates the phi-function by Gauss-Legendre
	// quadrature. Accurate, but carries no one-sided guarantee.
	PhiBoundNone PhiBound = iota
	// PhiBoundLower rounds each privacy-loss cell down, giving a valid
	// lower bound on δ(ε) and ε(δ).
	PhiBoundLower
	// PhiBoundUpper rounds each privacy-loss cell up, giving a valid
	// upper bound.
	PhiBoundUpper
)

// subsampleLossMesh is the rounding granularity of the discretized
// privacy loss.
const subsampleLossMesh = 1e-4

// subsampleGridCells is the number of output-space cells the truncated
// noise range is split into.
const subsampleGridCells = 20000

// subsampleLoss is log(p/q)(o) for the Poisson-subsampled Gaussian under
// the add/remove relation, p = (1-γ)N(0,σ²) + γN(1,σ²) against q = N(0,σ²).
// It is increasing in o.
func subsampleLoss(sigma, gamma, o float64) float64 {
	return math.Log1p(gamma * math.Expm1((2*o - 1) / (2 * sigma * sigma)))
}

// LogPhiSubsampleGaussianP returns the log phi-function of the privacy
// loss log(p/q) under p for the Poisson-subsampled Gaussian with noise
// multiplier sigma and sampling probability gamma.
func LogPhiSubsampleGaussianP(sigma, gamma float64, bound PhiBound) convert.LogPhi {
	noise := distuv.Normal{Mu: 0, Sigma: sigma}
	shifted := distuv.Normal{Mu: 1, Sigma: sigma}
	density := func(o float64) float64 {
		return (1-gamma)*noise.Prob(o) + gamma*shifted.Prob(o)
	}
	if bound == PhiBoundNone {
		return func(t float64) complex128 {
			return convert.LogRatioToPhi(func(o float64) float64 {
				return subsampleLoss(sigma, gamma, o)
			}, density, t)
		}
	}
	cdf := func(o float64) float64 {
		return (1-gamma)*noise.CDF(o) + gamma*shifted.CDF(o)
	}
	masses, losses := discretizeSubsampleLoss(sigma, gamma, cdf, bound, false)
	return discretizedLogPhi(masses, losses)
}

// LogPhiSubsampleGaussianQ returns the log phi-function of the reverse
// loss log(q/p) under q.
func LogPhiSubsampleGaussianQ(sigma, gamma float64, bound PhiBound) convert.LogPhi {
	noise := distuv.Normal{Mu: 0, Sigma: sigma}
	if bound == PhiBoundNone {
		return func(t float64) complex128 {
			return convert.LogRatioToPhi(func(o float64) float64 {
				return -subsampleLoss(sigma, gamma, o)
			}, noise.Prob, t)
		}
	}
	masses, losses := discretizeSubsampleLoss(sigma, gamma, noise.CDF, bound, true)
	return discretizedLogPhi(masses, losses)
}

// discretizeSubsampleLoss splits a truncated output range into cells,
// assigns each cell its probability mass under the given CDF, and rounds
// the loss of the whole cell in the direction the bound requires. negate
// flips the loss for the reverse ordering of the dominating pair.
func discretizeSubsampleLoss(sigma, gamma float64, cdf func(float64) float64, bound PhiBound, negate bool) (masses, losses []float64) {
	// ±10σ around both mixture centers keeps the truncated tail mass
	// below float64 noise.
	oLo := -10 * sigma
	oHi := 10*sigma + 1
	step := (oHi - oLo) / subsampleGridCells

	masses = make([]float64, 0, subsampleGridCells)
	losses = make([]float64, 0, subsampleGridCells)
	prevCDF := cdf(oLo)
	for k := 0; k < subsampleGridCells; k++ {
		right := oLo + step*float64(k+1)
		curCDF := cdf(right)
		mass := curCDF - prevCDF
		prevCDF = curCDF
		if mass <= 0 {
			continue
		}
		// The loss is monotone in o, so the cell extremes sit at the cell
		// endpoints.
		left := right - step
		lossLeft := subsampleLoss(sigma, gamma, left)
		lossRight := subsampleLoss(sigma, gamma, right)
		if negate {
			lossLeft, lossRight = -lossRight, -lossLeft
		}
		var z float64
		switch bound {
		case PhiBoundLower:
			z = math.Floor(lossLeft/subsampleLossMesh) * subsampleLossMesh
		case PhiBoundUpper:
			z = math.Ceil(lossRight/subsampleLossMesh) * subsampleLossMesh
		}
		masses = append(masses, mass)
		losses = append(losses, z)
	}
	return masses, losses
}

// discretizedLogPhi evaluates the phi-function of a discrete privacy-loss
// distribution.
func discretizedLogPhi(masses, losses []float64) convert.LogPhi {
	return func(t float64) complex128 {
		var sum complex128
		for k, m := range masses {
			sum += complex(m, 0) * cmplx.Exp(complex(0, t*losses[k]))
		}
		return cmplx.Log(sum)
	}
}
