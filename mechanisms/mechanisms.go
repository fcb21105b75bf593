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

// Package mechanisms constructs accounting.Mechanism values for the
// standard mechanisms, wiring in the exact descriptions from the catalog
// package and letting propagation fill in the rest.
package mechanisms

import (
	"github.com/erchiw/autodp/accounting"
	"github.com/erchiw/autodp/catalog"
	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/convert"
)

// GaussianOptions selects which characterizations the Gaussian mechanism
// carries. The zero value enables the RDP curve and the tight analytic
// (ε,δ) curve, the configuration to use in practice.
type GaussianOptions struct {
	// DisableRDP drops the RDP characterization.
	DisableRDP bool
	// DisableAnalytic drops the direct analytic ε(δ) curve, leaving
	// whichever conversion the accounting options select.
	DisableAnalytic bool
	// EnableFDP adds the exact trade-off curve with its log-coordinate
	// form.
	EnableFDP bool
	// EnablePhi adds the closed-form phi-function and its CDF inversion.
	EnablePhi bool
	// Acct configures propagation.
	Acct *accounting.Options
}

// Gaussian builds the Gaussian mechanism with noise multiplier sigma
// (noise standard deviation per unit ℓ2 sensitivity).
func Gaussian(sigma float64, opts *GaussianOptions) (*accounting.Mechanism, error) {
	if err := checks.CheckNoiseScale(sigma, "sigma"); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &GaussianOptions{}
	}
	m := accounting.New("Gaussian", opts.Acct)
	m.Params["sigma"] = sigma
	m.Family = accounting.FamilyGaussian

	if opts.EnablePhi {
		m.UpdatePhiSymmetric(catalog.LogPhiGaussian(sigma), accounting.PhiExact)
	}
	if !opts.DisableRDP {
		m.UpdateRDP(catalog.RDPGaussian(sigma))
	}
	if !opts.DisableAnalytic {
		m.UpdateApproxDPFunc(analyticGaussianApproxDP(sigma))
	}
	if opts.EnableFDP {
		m.UpdateFDPAndGradLog(catalog.FDPGaussianLog(sigma))
		m.UpdateFDP(catalog.FDPGaussian(sigma))
	}
	return m, nil
}

// ExactGaussian builds the Gaussian mechanism with every representation
// tight: the RDP line, the analytic (ε,δ) characterization in both
// directions, and the exact trade-off curve.
func ExactGaussian(sigma float64) (*accounting.Mechanism, error) {
	if err := checks.CheckNoiseScale(sigma, "sigma"); err != nil {
		return nil, err
	}
	m := accounting.New("Gaussian", nil)
	m.Params["sigma"] = sigma
	m.Family = accounting.FamilyGaussian
	m.UpdateRDP(catalog.RDPGaussian(sigma))
	m.UpdateApproxDPFunc(analyticGaussianApproxDP(sigma))
	m.UpdateApproxDeltaFunc(func(eps float64) (float64, error) {
		if err := checks.CheckEpsilon(eps); err != nil {
			return 0, err
		}
		return catalog.DeltaGaussian(sigma, eps), nil
	})
	m.UpdateFDP(catalog.FDPGaussian(sigma))
	m.UpdateFDPAndGradLog(catalog.FDPGaussianLog(sigma))
	return m, nil
}

func analyticGaussianApproxDP(sigma float64) convert.ApproxDP {
	return func(delta float64) (float64, error) {
		if err := checks.CheckDelta(delta); err != nil {
			return 0, err
		}
		return catalog.EpsGaussian(sigma, delta), nil
	}
}

// Laplace builds the Laplace mechanism with noise scale b per unit ℓ1
// sensitivity. enablePhi adds the quadrature-evaluated phi-function.
func Laplace(b float64, enablePhi bool, acct *accounting.Options) (*accounting.Mechanism, error) {
	if err := checks.CheckNoiseScale(b, "b"); err != nil {
		return nil, err
	}
	m := accounting.New("Laplace", acct)
	m.Params["b"] = b
	if enablePhi {
		m.UpdatePhiSymmetric(catalog.LogPhiLaplace(b), accounting.PhiExact)
	}
	m.UpdateRDP(catalog.RDPLaplace(b))
	return m, nil
}

// RandResponse builds binary randomized response with truth probability p.
func RandResponse(p float64, enablePhi bool, acct *accounting.Options) (*accounting.Mechanism, error) {
	if err := checks.CheckBernoulliProbability(p, "p"); err != nil {
		return nil, err
	}
	m := accounting.New("Randresponse", acct)
	m.Params["p"] = p
	if enablePhi {
		m.UpdatePhiSymmetric(catalog.LogPhiRandResponse(p), accounting.PhiExact)
	}
	m.UpdateRDP(catalog.RDPRandResponse(p))
	return m, nil
}

// PureDP builds an abstract ε-DP mechanism.
func PureDP(eps float64) (*accounting.Mechanism, error) {
	m := accounting.New("PureDP", nil)
	m.Params["eps"] = eps
	if err := m.UpdatePureDP(eps); err != nil {
		return nil, err
	}
	return m, nil
}

// SubsampleGaussianPhi builds the Poisson-subsampled Gaussian mechanism
// characterized through its phi-function, with sampling probability gamma.
// bound selects the quadrature approximation or one of the one-sided
// discretizations; the one-sided variants make the reported δ(ε) and ε(δ)
// valid bounds up to truncation.
func SubsampleGaussianPhi(sigma, gamma float64, bound catalog.PhiBound, acct *accounting.Options) (*accounting.Mechanism, error) {
	if err := checks.CheckNoiseScale(sigma, "sigma"); err != nil {
		return nil, err
	}
	if err := checks.CheckSamplingProbability(gamma, "gamma"); err != nil {
		return nil, err
	}
	m := accounting.New("Subsample_Gaussian_phi", acct)
	m.Params["sigma"] = sigma
	m.Params["gamma"] = gamma

	phiP := catalog.LogPhiSubsampleGaussianP(sigma, gamma, bound)
	phiQ := catalog.LogPhiSubsampleGaussianQ(sigma, gamma, bound)
	var dir accounting.PhiDirection
	switch bound {
	case catalog.PhiBoundLower:
		dir = accounting.PhiLower
	case catalog.PhiBoundUpper:
		dir = accounting.PhiUpper
	default:
		// The double-quadrature approximation carries no one-sided
		// guarantee; store it on both sides.
		dir = accounting.PhiExact
	}
	m.UpdatePhiPair(phiP, phiQ, dir)
	if bound == catalog.PhiBoundNone {
		m.ExactPhi = false
	}
	return m, nil
}
