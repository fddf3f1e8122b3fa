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

import "github.com/ajroetker/go-registration/reg"

// MulAB returns the matrix product a·b.
func MulAB[T reg.Floats](a, b [9]T) [9]T {
	var c [9]T
	for i := range 3 {
		for j := range 3 {
			c[3*i+j] = reg.MulAdd(a[3*i], b[j], reg.MulAdd(a[3*i+1], b[3+j], a[3*i+2]*b[6+j]))
		}
	}
	return c
}

// MulABt returns a·bᵀ.
func MulABt[T reg.Floats](a, b [9]T) [9]T {
	return MulAB(a, Transpose(b))
}

// MulVec returns m·x.
func MulVec[T reg.Floats](m [9]T, x [3]T) [3]T {
	return [3]T{
		reg.MulAdd(m[0], x[0], reg.MulAdd(m[1], x[1], m[2]*x[2])),
		reg.MulAdd(m[3], x[0], reg.MulAdd(m[4], x[1], m[5]*x[2])),
		reg.MulAdd(m[6], x[0], reg.MulAdd(m[7], x[1], m[8]*x[2])),
	}
}

// Transpose returns mᵀ.
func Transpose[T reg.Floats](m [9]T) [9]T {
	return [9]T{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Det returns the determinant of m.
func Det[T reg.Floats](m [9]T) T {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Identity returns the 3x3 identity.
func Identity[T reg.Floats]() [9]T {
	return [9]T{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Diag returns diag(d).
func Diag[T reg.Floats](d [3]T) [9]T {
	return [9]T{d[0], 0, 0, 0, d[1], 0, 0, 0, d[2]}
}
