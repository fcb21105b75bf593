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

import "fmt"

// TangentError reports that the tangent-line search underlying a
// trade-off-curve to approximate-DP conversion failed to locate a tangent
// point for the requested δ within tolerance. The resulting ε would not be
// trustworthy, so no value is returned alongside it.
type TangentError struct {
	// Delta is the failure probability the search was queried at.
	Delta float64
	// Residual is the leftover value of the tangency condition at the
	// point the search stopped.
	Residual float64
	// LogX is the log false-positive rate at which the search stopped.
	LogX float64
}

func (e *TangentError) Error() string {
	return fmt.Sprintf("tradeoff tangent search did not converge at delta=%g (residual %g at logx=%g)", e.Delta, e.Residual, e.LogX)
}

// MeshError reports that a grid-based CDF inversion could not answer a
// query because the target falls outside the precomputed window, or the
// mesh is too coarse to bracket it. Retrying with a larger window or a
// finer mesh usually resolves it.
type MeshError struct {
	// Window is the half-width of the symmetric grid the query ran against.
	Window float64
	// MeshSize is the spacing between adjacent grid points.
	MeshSize float64
	// Target is the ε or δ value that could not be resolved.
	Target float64
}

func (e *MeshError) Error() string {
	return fmt.Sprintf("target %g not resolvable on CDF grid over [-%g, %g] with mesh %g; increase the window or refine the mesh", e.Target, e.Window, e.Window, e.MeshSize)
}
