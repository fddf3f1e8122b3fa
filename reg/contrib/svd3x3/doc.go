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

// Package svd3x3 provides a closed-form singular value decomposition of 3x3
// matrices and the small least-squares solver built on top of it.
//
// # Algorithm
//
// The decomposition follows McAdams et al., "Computing the Singular Value
// Decomposition of 3x3 matrices with minimal branching and elementary
// floating point operations":
//  1. Four fixed Jacobi sweeps over the symmetric AᵀA, each sweep three
//     approximate Givens conjugations accumulated as a quaternion, give V.
//  2. B = A·V has orthogonal columns; they are sorted by decreasing norm,
//     swapping V along with B and negating one column per swap so both stay
//     proper rotations.
//  3. Three Givens rotations reduce B to an upper-triangular R = Qᵀ·B.
//     U = Q and the singular values are the diagonal of R.
//
// The sweep count is fixed; the routine does not iterate to convergence.
// U and V are always proper rotations, so the smallest singular value may
// come out negative. SVDUnsigned returns the conventional form with
// non-negative singular values instead.
//
// # Solving
//
// Solve returns the pseudo-inverse solution x = V·diag(S⁺)·Uᵀ·b where
// reciprocals of singular values smaller than 1e-6 are replaced by zero, so
// rank-deficient systems drop the degenerate direction instead of blowing up.
//
// # Layout
//
// Matrices are row-major [9]T arrays: m[3*row+col].
package svd3x3
