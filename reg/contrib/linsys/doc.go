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

// Package linsys accumulates Gauss-Newton normal equations for 6-DoF rigid
// registration and decodes them into a pose update.
//
// # Accumulator layout
//
// An Accumulator is a flat [29]T:
//
//	[0:21]   lower triangle of JᵀWJ, entry (a, b) with a >= b at a(a+1)/2 + b
//	[21:27]  JᵀWr
//	[27]     Σ w·r²
//	[28]     number of valid observations
//
// Accumulators combine by elementwise addition, which makes the reduction
// independent of how observations are partitioned across workers.
//
// # Reduction
//
// Reduce folds n observations through an Evaluator and a Weighter on a
// workerpool.Pool. Both are type parameters, so the robust kernel is bound
// once per call and the per-observation loop has no interface dispatch.
//
// # Solving
//
// DecodeAndSolve6x6 rebuilds the symmetric 6x6 system and solves
// JᵀWJ·x = -JᵀWr in float64 with gonum, Cholesky first and LU when the
// system is not positive definite. The 6-vector x = (α, β, γ, tx, ty, tz)
// holds Euler angles about x, y and z and a translation; PoseToTransformation
// turns it into a rigid Transform.
package linsys
