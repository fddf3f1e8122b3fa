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

package svd3x3

import (
	"fmt"

	"github.com/ajroetker/go-registration/reg"
)

// SVD computes a = u·diag(s)·vᵀ with u, v proper rotations.
// See BaseSVD.
func SVD[T reg.Floats](a [9]T) (u [9]T, s [3]T, v [9]T) {
	return BaseSVD(a)
}

// SVDUnsigned computes a = u·diag(s)·vᵀ with s >= 0.
// See BaseSVDUnsigned.
func SVDUnsigned[T reg.Floats](a [9]T) (u [9]T, s [3]T, v [9]T) {
	return BaseSVDUnsigned(a)
}

// Solve returns the pseudo-inverse solution of a·x = b.
// See BaseSolve.
func Solve[T reg.Floats](a [9]T, b [3]T) [3]T {
	return BaseSolve(a, b)
}

// SolveSmall3x3 solves the dense system A·x = b for a {3,3} matrix A and a
// {3} vector b of the same float dtype. Rank-deficient systems are solved
// in the pseudo-inverse sense and never fail.
func SolveSmall3x3(a, b *reg.Tensor) (*reg.Tensor, error) {
	if err := reg.CheckDevice(reg.A("A", a), reg.A("b", b)); err != nil {
		return nil, err
	}
	if err := reg.CheckFloat(a.Dtype()); err != nil {
		return nil, err
	}
	if err := reg.CheckDtype(a.Dtype(), reg.A("b", b)); err != nil {
		return nil, err
	}
	if err := reg.CheckShape(reg.A("A", a), 3, 3); err != nil {
		return nil, err
	}
	// b may be a flat {3} vector or a {3,1} column.
	if b.NumElements() != 3 || b.Length() != 3 {
		return nil, &reg.ShapeMismatchError{Arg: "b", Expected: []int{3}, Actual: b.Shape()}
	}

	switch a.Dtype() {
	case reg.Float32:
		return solveTensor[float32](a, b), nil
	case reg.Float64:
		return solveTensor[float64](a, b), nil
	}
	return nil, fmt.Errorf("%w: %s", reg.ErrUnsupportedDtype, a.Dtype())
}

func solveTensor[T float32 | float64](a, b *reg.Tensor) *reg.Tensor {
	var m [9]T
	var rhs [3]T
	copy(m[:], reg.MustData[T](a))
	copy(rhs[:], reg.MustData[T](b))
	x := Solve(m, rhs)
	return reg.FromSlice(x[:], b.Shape()...)
}
