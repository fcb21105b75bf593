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

	"github.com/erchiw/autodp/convert"
	"github.com/erchiw/autodp/stablemath"
)

// RDPRandResponse returns the exact RDP curve of binary randomized
// response with truth probability p ∈ (0, 1).
func RDPRandResponse(p float64) convert.RDP {
	return func(alpha float64) float64 {
		switch {
		case alpha <= 1:
			return (2*p - 1) * (math.Log(p) - math.Log(1-p))
		case math.IsInf(alpha, 1):
			return math.Abs(math.Log(p) - math.Log(1-p))
		default:
			return stablemath.LogSumExpTwo(
				alpha*math.Log(p)+(1-alpha)*math.Log(1-p),
				alpha*math.Log(1-p)+(1-alpha)*math.Log(p),
			) / (alpha - 1)
		}
	}
}

// LogPhiRandResponse returns the exact log phi-function of randomized
// response: the privacy loss takes only the two values ±log(p/(1-p)).
func LogPhiRandResponse(p float64) convert.LogPhi {
	loss := math.Log(p) - math.Log(1-p)
	return func(t float64) complex128 {
		return cmplx.Log(
			complex(p, 0)*cmplx.Exp(complex(0, t*loss)) +
				complex(1-p, 0)*cmplx.Exp(complex(0, -t*loss)))
	}
}
