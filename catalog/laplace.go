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

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/erchiw/autodp/convert"
	"github.com/erchiw/autodp/stablemath"
)

// RDPLaplace returns the exact RDP curve of the Laplace mechanism with
// noise scale b (per unit ℓ1 sensitivity).
func RDPLaplace(b float64) convert.RDP {
	return func(alpha float64) float64 {
		switch {
		case alpha <= 1:
			// KL divergence between Lap(0,b) and Lap(1,b).
			return 1/b + math.Exp(-1/b) - 1
		case math.IsInf(alpha, 1):
			return 1 / b
		default:
			return stablemath.LogSumExpTwo(
				(alpha-1)/b+math.Log(alpha/(2*alpha-1)),
				-alpha/b+math.Log((alpha-1)/(2*alpha-1)),
			) / (alpha - 1)
		}
	}
}

// LogPhiLaplace returns the log phi-function of the Laplace privacy loss,
// evaluated by Gauss-Legendre quadrature over the noise distribution. The
// loss (|o-1| - |o|)/b is bounded, so both orderings of the dominating
// pair share the same phi-function.
func LogPhiLaplace(b float64) convert.LogPhi {
	lap := distuv.Laplace{Mu: 0, Scale: b}
	logRatio := func(o float64) float64 {
		return (math.Abs(o-1) - math.Abs(o)) / b
	}
	return func(t float64) complex128 {
		return convert.LogRatioToPhi(logRatio, lap.Prob, t)
	}
}
