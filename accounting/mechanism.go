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

// Package accounting holds the Mechanism type, the central ledger of a
// mechanism's privacy guarantees across representations. A mechanism is
// described directly in whichever representation is exact or cheap for
// it; updating one representation propagates derived curves into the
// others so that any query can be answered.
//
// Propagation never degrades information: a directly supplied curve
// always overwrites, while curves derived from another representation
// only fill slots that are still empty. Queries on representations with
// no direct or derived curve report +∞, the in-band value for "no finite
// guarantee known".
package accounting

import (
	"math"

	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/convert"
)

// FamilyGaussian marks mechanisms whose output distribution is Gaussian;
// some transformations have exact shortcuts for them.
const FamilyGaussian = "Gaussian"

// PhiDirection states on which side a phi-function approximates the true
// characteristic function of the privacy loss.
type PhiDirection int

const (
	// PhiExact means the phi-function is exact.
	PhiExact PhiDirection = iota
	// PhiLower means derived privacy costs are valid lower bounds.
	PhiLower
	// PhiUpper means derived privacy costs are valid upper bounds.
	PhiUpper
)

// Options configures how derived curves are produced during propagation.
// The zero value selects the defaults.
type Options struct {
	// BasicConversion uses the naive RDP to approx-DP bound instead of
	// the tighter BBGHS bound.
	BasicConversion bool
	// FDPBasedConversion routes RDP to approx-DP through the
	// log-coordinate trade-off curve and its tangent-line duality. Slower
	// and sometimes tighter than the order-wise bounds.
	FDPBasedConversion bool
	// AlphaMax caps the Rényi orders the conversions may search over.
	// Zero means unbounded.
	AlphaMax float64
	// UseFFT inverts phi-functions through the FFT grid path instead of
	// per-query quadrature.
	UseFFT bool
	// FFTWindow is the half-width of the FFT grid; zero selects 1e4.
	FFTWindow float64
	// FFTPoints is the half-count of FFT samples; zero selects the
	// convert package default.
	FFTPoints int
	// QuadratureNodes sizes the Gauss-Legendre rule of the quadrature
	// inversions; zero selects the convert package default.
	QuadratureNodes int
}

func (o *Options) fftWindow() float64 {
	if o.FFTWindow <= 0 {
		return 1e4
	}
	return o.FFTWindow
}

// Mechanism tracks everything known about one mechanism's privacy
// guarantees. The zero value is a mechanism with no known guarantees;
// New supplies name and options.
//
// Mechanism is not safe for concurrent mutation; once fully updated, the
// query methods are safe to call concurrently.
type Mechanism struct {
	// Name identifies the mechanism in composition bookkeeping.
	Name string
	// Params carries the mechanism's parameters for calibrators and for
	// composition bookkeeping.
	Params map[string]float64
	// Delta0 is the failure probability below which no finite ε exists.
	Delta0 float64
	// ReplaceOne is set when the guarantees hold under the replace-one
	// neighboring relation rather than add/remove.
	ReplaceOne bool
	// ExactPhi records whether the stored phi-functions are exact.
	ExactPhi bool
	// Family optionally names the output distribution family.
	Family string

	opts Options

	pureDP    float64
	hasPureDP bool

	rdp       convert.RDP
	hasRDP    bool
	directRDP bool

	approxDP       convert.ApproxDP
	hasApproxDP    bool
	directApproxDP bool

	approxDelta       convert.ApproxDelta
	hasApproxDelta    bool
	directApproxDelta bool

	fdp       convert.Tradeoff
	hasFDP    bool
	directFDP bool

	logFDP       convert.LogTradeoff
	logFDPGrad   convert.LogTradeoffGrad
	hasLogFDP    bool
	directLogFDP bool

	phiPLower, phiQLower convert.LogPhi
	hasPhiLower          bool
	phiPUpper, phiQUpper convert.LogPhi
	hasPhiUpper          bool

	cdfP, cdfQ convert.CDF
	hasCDF     bool

	cdfGridP, cdfGridQ convert.CDFGrid
	hasCDFGrid         bool
}

// New returns a mechanism with no known guarantees. opts may be nil.
func New(name string, opts *Options) *Mechanism {
	m := &Mechanism{Name: name, Params: map[string]float64{}}
	if opts != nil {
		m.opts = *opts
	}
	return m
}

// Opts returns the propagation options the mechanism was built with.
func (m *Mechanism) Opts() Options { return m.opts }

// rdpToApproxDP builds the configured RDP to approx-DP conversion.
func (m *Mechanism) rdpToApproxDP(rdp convert.RDP) convert.ApproxDP {
	if m.opts.FDPBasedConversion {
		curve, grad := convert.RDPToFDPAndGradLog(rdp, m.opts.AlphaMax)
		return convert.FDPGradToApproxDP(curve, grad)
	}
	return convert.RDPToApproxDP(rdp, m.opts.AlphaMax, !m.opts.BasicConversion)
}

// UpdatePureDP records a pure-DP guarantee and fills every representation
// derivable from it.
func (m *Mechanism) UpdatePureDP(eps float64) error {
	if err := checks.CheckEpsilon(eps); err != nil {
		return err
	}
	m.pureDP = eps
	m.hasPureDP = true
	m.setRDP(convert.PureDPToRDP(eps), true)
	m.setApproxDP(convert.PureDPToApproxDP(eps), false)
	m.setFDP(convert.PureDPToFDP(eps), false)
	return nil
}

// UpdateRDP records a directly characterized RDP curve and fills the
// approximate-DP, δ(ε) and trade-off representations from it.
func (m *Mechanism) UpdateRDP(rdp convert.RDP) {
	m.setRDP(rdp, true)
	m.setApproxDP(m.rdpToApproxDP(rdp), false)
	m.setApproxDelta(convert.RDPToApproxDelta(rdp), false)
	m.setFDP(convert.RDPToFDP(rdp, m.opts.AlphaMax), false)
	curve, grad := convert.RDPToFDPAndGradLog(rdp, m.opts.AlphaMax)
	m.setLogFDP(curve, grad, false)
}

// UpdateApproxDPFunc records a directly characterized ε(δ) curve.
func (m *Mechanism) UpdateApproxDPFunc(f convert.ApproxDP) {
	m.setApproxDP(f, true)
	m.setFDP(convert.ApproxDPFuncToFDP(f), false)
}

// UpdateApproxDeltaFunc records a directly characterized δ(ε) curve.
func (m *Mechanism) UpdateApproxDeltaFunc(f convert.ApproxDelta) {
	m.setApproxDelta(f, true)
	m.setFDP(convert.ApproxDeltaFuncToFDP(f), false)
}

// UpdateFDP records a directly characterized trade-off curve and fills
// the approximate-DP curve through convex duality.
func (m *Mechanism) UpdateFDP(f convert.Tradeoff) {
	m.setFDP(f, true)
	m.setApproxDP(convert.FDPToApproxDP(f), false)
}

// UpdateFDPAndGradLog records a log-coordinate trade-off curve with
// subgradient and fills the approximate-DP curve through the tangent-line
// conversion, which stays accurate at small δ.
func (m *Mechanism) UpdateFDPAndGradLog(curve convert.LogTradeoff, grad convert.LogTradeoffGrad) {
	m.setLogFDP(curve, grad, true)
	m.setApproxDP(convert.FDPGradToApproxDP(curve, grad), false)
	m.setFDP(func(fpr float64) float64 {
		if fpr == 0 {
			return 1
		}
		return 1 - math.Exp(curve(math.Log(fpr)))
	}, false)
}

// UpdateCDF records the CDF of a symmetric privacy-loss random variable,
// shared by both orderings of the dominating pair.
func (m *Mechanism) UpdateCDF(cdf convert.CDF) {
	m.UpdateCDFPair(cdf, cdf)
}

// UpdateCDFPair records the CDFs of log(p/q) under p and log(q/p) under q
// and fills both approximate-DP directions from them.
func (m *Mechanism) UpdateCDFPair(cdfP, cdfQ convert.CDF) {
	m.cdfP, m.cdfQ = cdfP, cdfQ
	m.hasCDF = true
	m.setApproxDP(convert.CDFToApproxDP(cdfP, cdfQ), false)
	m.setApproxDelta(convert.CDFToApproxDelta(cdfP, cdfQ), false)
}

// UpdateCDFGridPair records precomputed CDF grids and fills both
// approximate-DP directions through the grid searches.
func (m *Mechanism) UpdateCDFGridPair(gridP, gridQ convert.CDFGrid) {
	m.cdfGridP, m.cdfGridQ = gridP, gridQ
	m.hasCDFGrid = true
	w := m.opts.fftWindow()
	m.setApproxDP(convert.CDFGridToApproxDP(gridP, gridQ, w), false)
	m.setApproxDelta(convert.CDFGridToApproxDelta(gridP, gridQ, w), false)
}

// UpdatePhiSymmetric records a phi-function shared by both orderings of
// the dominating pair, inverts it into CDFs and propagates onward.
// direction states which side of the truth the phi-function sits on;
// PhiExact stores it as both the lower and upper description.
func (m *Mechanism) UpdatePhiSymmetric(logPhi convert.LogPhi, direction PhiDirection) {
	m.UpdatePhiPair(logPhi, logPhi, direction)
}

// UpdatePhiPair records phi-functions for both orderings of the
// dominating pair and propagates CDFs and approximate-DP curves.
func (m *Mechanism) UpdatePhiPair(phiP, phiQ convert.LogPhi, direction PhiDirection) {
	switch direction {
	case PhiExact:
		m.phiPLower, m.phiQLower = phiP, phiQ
		m.phiPUpper, m.phiQUpper = phiP, phiQ
		m.hasPhiLower, m.hasPhiUpper = true, true
		m.ExactPhi = true
	case PhiLower:
		m.phiPLower, m.phiQLower = phiP, phiQ
		m.hasPhiLower = true
		m.ExactPhi = false
	case PhiUpper:
		m.phiPUpper, m.phiQUpper = phiP, phiQ
		m.hasPhiUpper = true
		m.ExactPhi = false
	}
	if m.opts.UseFFT {
		n := m.opts.FFTPoints
		m.UpdateCDFGridPair(convert.PhiToCDFGrid(phiP, n), convert.PhiToCDFGrid(phiQ, n))
		return
	}
	n := m.opts.QuadratureNodes
	m.UpdateCDFPair(convert.PhiToCDFFunc(phiP, n), convert.PhiToCDFFunc(phiQ, n))
}

func (m *Mechanism) setRDP(rdp convert.RDP, direct bool) {
	if !direct && m.hasRDP {
		return
	}
	m.rdp = rdp
	m.hasRDP = true
	m.directRDP = m.directRDP || direct
}

func (m *Mechanism) setApproxDP(f convert.ApproxDP, direct bool) {
	if !direct && m.hasApproxDP {
		return
	}
	m.approxDP = f
	m.hasApproxDP = true
	m.directApproxDP = m.directApproxDP || direct
}

func (m *Mechanism) setApproxDelta(f convert.ApproxDelta, direct bool) {
	if !direct && m.hasApproxDelta {
		return
	}
	m.approxDelta = f
	m.hasApproxDelta = true
	m.directApproxDelta = m.directApproxDelta || direct
}

func (m *Mechanism) setFDP(f convert.Tradeoff, direct bool) {
	if !direct && m.hasFDP {
		return
	}
	m.fdp = f
	m.hasFDP = true
	m.directFDP = m.directFDP || direct
}

func (m *Mechanism) setLogFDP(curve convert.LogTradeoff, grad convert.LogTradeoffGrad, direct bool) {
	if !direct && m.hasLogFDP {
		return
	}
	m.logFDP = curve
	m.logFDPGrad = grad
	m.hasLogFDP = true
	m.directLogFDP = m.directLogFDP || direct
}

// RenyiDP evaluates the RDP curve at order alpha. +∞ is reported when no
// RDP description is known.
func (m *Mechanism) RenyiDP(alpha float64) (float64, error) {
	if err := checks.CheckRenyiOrder(alpha); err != nil {
		return 0, err
	}
	if !m.hasRDP {
		return math.Inf(1), nil
	}
	return m.rdp(alpha), nil
}

// ApproxDP evaluates the ε(δ) curve. +∞ is reported when δ is below the
// mechanism's δ₀ or no curve is known.
func (m *Mechanism) ApproxDP(delta float64) (float64, error) {
	if err := checks.CheckDelta(delta); err != nil {
		return 0, err
	}
	if delta < m.Delta0 || !m.hasApproxDP {
		return math.Inf(1), nil
	}
	return m.approxDP(delta)
}

// ApproxDelta evaluates the δ(ε) curve. 1, the vacuous failure
// probability, is reported when no curve is known.
func (m *Mechanism) ApproxDelta(eps float64) (float64, error) {
	if err := checks.CheckEpsilon(eps); err != nil {
		return 0, err
	}
	if !m.hasApproxDelta {
		return 1, nil
	}
	return m.approxDelta(eps)
}

// FDP evaluates the trade-off curve. 0, the vacuous trade-off, is
// reported when no curve is known.
func (m *Mechanism) FDP(fpr float64) (float64, error) {
	if err := checks.CheckFalsePositiveRate(fpr); err != nil {
		return 0, err
	}
	if !m.hasFDP {
		return 0, nil
	}
	return m.fdp(fpr), nil
}

// PureDP reports the recorded pure-DP epsilon, if any.
func (m *Mechanism) PureDP() (float64, bool) {
	return m.pureDP, m.hasPureDP
}

// RDPCurve returns the RDP curve and whether one is known.
func (m *Mechanism) RDPCurve() (convert.RDP, bool) {
	return m.rdp, m.hasRDP
}

// ApproxDPCurve returns the ε(δ) curve and whether one is known.
func (m *Mechanism) ApproxDPCurve() (convert.ApproxDP, bool) {
	return m.approxDP, m.hasApproxDP
}

// ApproxDeltaCurve returns the δ(ε) curve and whether one is known.
func (m *Mechanism) ApproxDeltaCurve() (convert.ApproxDelta, bool) {
	return m.approxDelta, m.hasApproxDelta
}

// FDPCurve returns the trade-off curve and whether one is known.
func (m *Mechanism) FDPCurve() (convert.Tradeoff, bool) {
	return m.fdp, m.hasFDP
}

// LogFDPCurve returns the log-coordinate trade-off curve with subgradient
// and whether one is known.
func (m *Mechanism) LogFDPCurve() (convert.LogTradeoff, convert.LogTradeoffGrad, bool) {
	return m.logFDP, m.logFDPGrad, m.hasLogFDP
}

// PhiLowerPair returns the lower-bounding phi-function pair.
func (m *Mechanism) PhiLowerPair() (phiP, phiQ convert.LogPhi, ok bool) {
	return m.phiPLower, m.phiQLower, m.hasPhiLower
}

// PhiUpperPair returns the upper-bounding phi-function pair.
func (m *Mechanism) PhiUpperPair() (phiP, phiQ convert.LogPhi, ok bool) {
	return m.phiPUpper, m.phiQUpper, m.hasPhiUpper
}

// CDFPair returns the stored CDF pair of the privacy losses.
func (m *Mechanism) CDFPair() (cdfP, cdfQ convert.CDF, ok bool) {
	return m.cdfP, m.cdfQ, m.hasCDF
}

// CDFGridPair returns the stored CDF grid pair.
func (m *Mechanism) CDFGridPair() (gridP, gridQ convert.CDFGrid, ok bool) {
	return m.cdfGridP, m.cdfGridQ, m.hasCDFGrid
}
