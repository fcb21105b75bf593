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

package disttest

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/erchiw/autodp/catalog"
)

func TestSampleStatistics(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	if got, want := SampleMean(values), 3.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("SampleMean = %v, want %v", got, want)
	}
	if got, want := SampleVariance(values), 3.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("SampleVariance = %v, want %v", got, want)
	}
	if got, want := SampleStdDev(values), math.Sqrt(3.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("SampleStdDev = %v, want %v", got, want)
	}
	if got := SampleMean(nil); got != 0 {
		t.Errorf("SampleMean(nil) = %v, want 0", got)
	}
	if got := SampleVariance([]float64{7}); got != 0 {
		t.Errorf("SampleVariance of one sample = %v, want 0", got)
	}
}

func TestEmpiricalCDFMatchesNormal(t *testing.T) {
	const numberOfSamples = 100000
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(7)}
	samples := make([]float64, numberOfSamples)
	for i := range samples {
		samples[i] = dist.Rand()
	}
	cdf := EmpiricalCDF(samples)
	// The DKW inequality bounds the sup-norm error by 0.0044 at this
	// sample count with failure probability 10⁻⁵.
	const tolerance = 0.01
	for _, x := range []float64{-2, -1, -0.3, 0, 0.5, 1.7} {
		if got, want := cdf(x), dist.CDF(x); math.Abs(got-want) > tolerance {
			t.Errorf("EmpiricalCDF(%v) = %v, want about %v", x, got, want)
		}
	}
	if got := cdf(math.Inf(1)); got != 1 {
		t.Errorf("EmpiricalCDF(inf) = %v, want 1", got)
	}
	if got := cdf(math.Inf(-1)); got != 0 {
		t.Errorf("EmpiricalCDF(-inf) = %v, want 0", got)
	}
}

func TestEmpiricalDeltaMatchesGaussian(t *testing.T) {
	const (
		sigma           = 1.0
		numberOfSamples = 200000
	)
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(42)}
	outputs := make([]float64, numberOfSamples)
	for i := range outputs {
		outputs[i] = dist.Rand()
	}
	losses := GaussianLosses(outputs, sigma)

	// The sample mean of the losses must sit near the KL divergence
	// 1/(2σ²) between the neighboring output distributions.
	if got, want := SampleMean(losses), 1/(2*sigma*sigma); math.Abs(got-want) > 0.02 {
		t.Errorf("mean privacy loss = %v, want about %v", got, want)
	}

	// Each summand lies in [0, 1], so the estimate of δ is within 0.005
	// of the analytic value except with probability below 10⁻⁵.
	const tolerance = 0.005
	for _, eps := range []float64{0, 0.5, 1} {
		got := EmpiricalApproxDelta(losses, eps)
		want := catalog.DeltaGaussian(sigma, eps)
		if math.Abs(got-want) > tolerance {
			t.Errorf("EmpiricalApproxDelta(eps=%v) = %v, want about %v", eps, got, want)
		}
	}
}
