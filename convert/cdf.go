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

	"github.com/erchiw/autodp/checks"
	"github.com/erchiw/autodp/solver"
)

// CDFToApproxDelta converts the CDF pair of the privacy losses log(p/q)
// under p and log(q/p) under q into the exact δ(ε) curve
//
//	δ(ε) = 1 - F_p(ε) - e^ε F_q(-ε).
func CDFToApproxDelta(cdfP, cdfQ CDF) ApproxDelta {
	return func(eps float64) (float64, error) {
		if err := checks.CheckEpsilon(eps); err != nil {
			return 0, err
		}
		return 1 - cdfP(eps) - math.Exp(eps)*cdfQ(-eps), nil
	}
}

// CDFToApproxDP converts a CDF pair into an ε(δ) curve by numerically
// inverting 1-δ(ε) in e^ε.
func CDFToApproxDP(cdfP, cdfQ CDF) ApproxDP {
	// Nondecreasing in e^ε, levels at 1 as ε grows.
	oneMinusDelta := func(expEps float64) float64 {
		logE := math.Log(expEps)
		return cdfP(logE) + expEps*cdfQ(-logE)
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

// CDFGridToApproxDP answers ε(δ) queries from precomputed CDF grids over
// [-window, window], using binary search over the grid. A *MeshError is
// returned when no grid point resolves the query; the fix is a larger
// window or more FFT points.
func CDFGridToApproxDP(cdfP, cdfQ CDFGrid, window float64) ApproxDP {
	return func(delta float64) (float64, error) {
		if err := checks.CheckDeltaStrict(delta); err != nil {
			return 0, err
		}
		gridP := cdfP(window)
		gridQ := cdfQ(window)
		h := len(gridP)
		meshSize := 2 * window / float64(h)
		epsAt := func(i int) float64 {
			return -window + meshSize*float64(i)
		}
		// The offset pairs F_p(ε) with F_q just below -ε, keeping the
		// reported δ on the conservative side of the mesh.
		const pairOffset = 4
		i := (h-1)/2 - 1
		j := h - 1
		for i < j {
			mid := (i + j) / 2
			k := h - mid - pairOffset
			if k < 0 || k >= h {
				j = mid - 1
				continue
			}
			eps := epsAt(mid)
			oneMinusDelta := gridP[mid] + math.Exp(eps)*gridQ[k]
			if math.Abs(1-oneMinusDelta) < 0.1*delta {
				return eps, nil
			}
			if 1-oneMinusDelta > delta {
				i = mid + 1
			} else {
				j = mid - 1
			}
		}
		if i < h-1 && j >= 0 && epsAt(j) > 0 {
			return epsAt(j), nil
		}
		return 0, &MeshError{Window: window, MeshSize: meshSize, Target: delta}
	}
}

// CDFGridToApproxDelta answers δ(ε) queries from precomputed CDF grids
// over [-window, window]. A *MeshError is returned when ε falls outside
// the window.
func CDFGridToApproxDelta(cdfP, cdfQ CDFGrid, window float64) ApproxDelta {
	return func(eps float64) (float64, error) {
		if err := checks.CheckEpsilon(eps); err != nil {
			return 0, err
		}
		gridP := cdfP(window)
		gridQ := cdfQ(window)
		h := len(gridP)
		meshSize := 2 * window / float64(h)
		b := meshSize * float64(h) / 2
		if eps >= -b+meshSize*float64(h-1) {
			return 0, &MeshError{Window: window, MeshSize: meshSize, Target: eps}
		}
		// First grid index with epsAt(idx) > eps.
		idx := int(math.Floor((eps+b)/meshSize)) + 1
		if idx < 0 {
			idx = 0
		}
		if idx >= h || h-idx-1 < 0 {
			return 0, &MeshError{Window: window, MeshSize: meshSize, Target: eps}
		}
		epsIdx := -b + meshSize*float64(idx)
		return 1 - gridP[idx] - math.Exp(epsIdx)*gridQ[h-idx-1], nil
	}
}
