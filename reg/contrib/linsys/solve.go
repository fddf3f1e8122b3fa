// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linsys

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ajroetker/go-registration/reg"
)

// Solution is a decoded 6-DoF update.
type Solution struct {
	// Pose is (α, β, γ, tx, ty, tz); zero when the system could not be solved.
	Pose [6]float64
	// Residual is Σ w·r² over the inliers.
	Residual float64
	// Inliers is the number of valid observations.
	Inliers int
	// Singular is set when both factorizations failed.
	Singular bool
}

// Transform returns the rigid motion for Pose.
func (s Solution) Transform() Transform {
	return PoseToTransformation(s.Pose)
}

// DecodeAndSolve6x6 solves JᵀWJ·x = -JᵀWr from acc.
//
// An accumulator with no inliers decodes to a zero pose and no error; the
// caller checks Solution.Inliers. A singular system also yields a zero pose
// with Singular set. Non-finite entries are reported as ErrInvalidArgument.
func DecodeAndSolve6x6[T reg.Floats](acc *Accumulator[T]) (Solution, error) {
	sol := Solution{
		Residual: float64(acc.Residual()),
		Inliers:  acc.Inliers(),
	}
	for i, v := range acc {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return sol, fmt.Errorf("%w: accumulator slot %d is %g", reg.ErrInvalidArgument, i, f)
		}
	}
	if sol.Inliers == 0 {
		return sol, nil
	}

	ata := acc.AtA()
	atb := acc.Atb()
	for i := range atb {
		atb[i] = -atb[i]
	}
	b := mat.NewVecDense(6, atb[:])

	var x mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(mat.NewSymDense(6, ata[:])) {
		if err := chol.SolveVecTo(&x, b); err == nil {
			copy(sol.Pose[:], x.RawVector().Data)
			return sol, nil
		}
	}

	if err := x.SolveVec(mat.NewDense(6, 6, ata[:]), b); err != nil {
		sol.Singular = true
		return sol, nil
	}
	copy(sol.Pose[:], x.RawVector().Data)
	return sol, nil
}
