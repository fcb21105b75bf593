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

// Package checks contains domain checks for privacy accounting functions.
//
// All checks return an error describing the violated precondition and leave
// the decision of how to surface it to the caller. Inputs outside their
// mathematical domain are rejected here, never silently clamped.
package checks

import (
	"fmt"
	"math"
)

const (
	epsilonName = "Epsilon"
	deltaName   = "Delta"
	orderName   = "Alpha"
	fprName     = "FalsePositiveRate"
	probName    = "SamplingProbability"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilon returns an error if ε is strictly negative, ±∞, or NaN.
func CheckEpsilon(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon < 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be nonnegative and finite", epsName, epsilon)
	}
	return nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive, ±∞, or NaN.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is outside [0, 1]. Both endpoints are
// legal query points: δ=0 asks for the pure-DP guarantee and δ=1 for the
// vacuous one.
func CheckDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta < 0 || delta > 1 {
		return fmt.Errorf("%s is %e, must be within [0, 1]", delName, delta)
	}
	return nil
}

// CheckDeltaStrict returns an error if δ is outside (0, 1).
func CheckDeltaStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta <= 0 {
		return fmt.Errorf("%s is %e, must be strictly positive", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckRenyiOrder returns an error if the Rényi order α is negative or NaN.
// α = +∞ is a legal query point and yields the pure-DP epsilon.
func CheckRenyiOrder(alpha float64, name ...string) error {
	aName, err := verifyName(orderName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(alpha) {
		return fmt.Errorf("%s is NaN, must be a nonnegative order", aName)
	}
	if alpha < 0 {
		return fmt.Errorf("%s is %f, must be nonnegative", aName, alpha)
	}
	return nil
}

// CheckFalsePositiveRate returns an error if fpr is outside [0, 1].
func CheckFalsePositiveRate(fpr float64, name ...string) error {
	fName, err := verifyName(fprName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(fpr) || fpr < 0 || fpr > 1 {
		return fmt.Errorf("%s is %f, must be within [0, 1]", fName, fpr)
	}
	return nil
}

// CheckLogFalsePositiveRate returns an error if logx is positive or NaN.
// logx = -∞ (fpr = 0) and logx = 0 (fpr = 1) are both legal.
func CheckLogFalsePositiveRate(logx float64, name ...string) error {
	fName, err := verifyName(fprName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(logx) || logx > 0 {
		return fmt.Errorf("log of %s is %f, must be nonpositive", fName, logx)
	}
	return nil
}

// CheckSamplingProbability returns an error if the subsampling probability
// is outside [0, 1].
func CheckSamplingProbability(prob float64, name ...string) error {
	pName, err := verifyName(probName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return fmt.Errorf("%s is %f, must be within [0, 1]", pName, prob)
	}
	return nil
}

// CheckNoiseScale returns an error if a noise scale parameter (σ for
// Gaussian noise, b for Laplace noise) is nonpositive, ±∞, or NaN.
func CheckNoiseScale(scale float64, name ...string) error {
	sName, err := verifyName("NoiseScale", name)
	if err != nil {
		return err
	}
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", sName, scale)
	}
	return nil
}

// CheckBernoulliProbability returns an error if p is outside (0, 1). Used
// by randomized-response style mechanisms where p = 0, 1 degenerates.
func CheckBernoulliProbability(p float64, name ...string) error {
	pName, err := verifyName("Probability", name)
	if err != nil {
		return err
	}
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return fmt.Errorf("%s is %f, must be within (0, 1)", pName, p)
	}
	return nil
}

// CheckCompositionArgs returns an error if the mechanism and coefficient
// lists of a composition are empty, of mismatched length, or contain a
// nonpositive or non-finite coefficient.
func CheckCompositionArgs(numMechanisms int, coeffs []float64) error {
	if numMechanisms == 0 {
		return fmt.Errorf("composition requires at least one mechanism")
	}
	if numMechanisms != len(coeffs) {
		return fmt.Errorf("got %d mechanisms but %d coefficients, must match", numMechanisms, len(coeffs))
	}
	for i, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return fmt.Errorf("coefficient %d is %f, must be strictly positive and finite", i, c)
		}
	}
	return nil
}
