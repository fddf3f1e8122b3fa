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
	"math"

	"github.com/ajroetker/go-registration/reg"
)

const (
	// Sweeps is the fixed number of Jacobi sweeps over AᵀA.
	Sweeps = 4

	// Epsilon is the singular value threshold below which a direction is
	// treated as degenerate.
	Epsilon = 1e-6

	gamma = 5.828427124746190097603377448419396157139343750753 // 3+2√2
	cstar = 0.923879532511286756128183189396788933010467473460 // cos(π/8)
	sstar = 0.382683432365089771728459984030398866761344562485 // sin(π/8)
)

// sym3 is the lower triangle of a symmetric 3x3 matrix.
type sym3[T reg.Floats] struct {
	s11      T
	s21, s22 T
	s31, s32 T
	s33      T
}

func rsqrt[T reg.Floats](x T) T {
	return T(1 / math.Sqrt(float64(x)))
}

// approximateGivens returns the unnormalized half-angle (ch, sh) of the
// rotation that approximately zeroes a12, falling back to a π/4 rotation
// when the first-order estimate is out of range.
func approximateGivens[T reg.Floats](a11, a12, a22 T) (ch, sh T) {
	ch = 2 * (a11 - a22)
	sh = a12
	if T(gamma)*sh*sh < ch*ch {
		w := rsqrt(ch*ch + sh*sh)
		return w * ch, w * sh
	}
	return T(cstar), T(sstar)
}

// jacobiConjugation applies one Givens conjugation to the (1,2) block of s,
// folds the rotation into q (x, y, z, w order) and rotates the storage so
// the next pivot sits in the (1,2) slot.
func jacobiConjugation[T reg.Floats](x, y, z int, s *sym3[T], q *[4]T) {
	ch, sh := approximateGivens(s.s11, s.s21, s.s22)
	scale := ch*ch + sh*sh
	a := (ch*ch - sh*sh) / scale
	b := (2 * sh * ch) / scale

	t := *s
	s.s11 = a*(a*t.s11+b*t.s21) + b*(a*t.s21+b*t.s22)
	s.s21 = a*(-b*t.s11+a*t.s21) + b*(-b*t.s21+a*t.s22)
	s.s22 = -b*(-b*t.s11+a*t.s21) + a*(-b*t.s21+a*t.s22)
	s.s31 = a*t.s31 + b*t.s32
	s.s32 = -b*t.s31 + a*t.s32

	var tmp [3]T
	tmp[0] = q[0] * sh
	tmp[1] = q[1] * sh
	tmp[2] = q[2] * sh
	sh *= q[3]

	q[0] *= ch
	q[1] *= ch
	q[2] *= ch
	q[3] *= ch

	q[z] += sh
	q[3] -= tmp[z]
	q[x] += tmp[y]
	q[y] -= tmp[x]

	*s = sym3[T]{
		s11: s.s22,
		s21: s.s32, s22: s.s33,
		s31: s.s21, s32: s.s31, s33: s.s11,
	}
}

// jacobiEigenanalysis diagonalizes s in place and returns the accumulated
// rotation as a quaternion.
func jacobiEigenanalysis[T reg.Floats](s *sym3[T]) [4]T {
	q := [4]T{0, 0, 0, 1}
	for range Sweeps {
		jacobiConjugation(0, 1, 2, s, &q)
		jacobiConjugation(1, 2, 0, s, &q)
		jacobiConjugation(2, 0, 1, s, &q)
	}
	return q
}

func quatToMat3[T reg.Floats](q [4]T) [9]T {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	return [9]T{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

// negSwapCols swaps columns i and j of m, negating the one moved to j.
func negSwapCols[T reg.Floats](m *[9]T, i, j int) {
	for r := 0; r < 9; r += 3 {
		m[r+i], m[r+j] = m[r+j], -m[r+i]
	}
}

func colNorm2[T reg.Floats](m *[9]T, c int) T {
	return m[c]*m[c] + m[3+c]*m[3+c] + m[6+c]*m[6+c]
}

// sortSingularValues orders the columns of b by decreasing norm and
// mirrors every swap on v.
func sortSingularValues[T reg.Floats](b, v *[9]T) {
	rho := [3]T{colNorm2(b, 0), colNorm2(b, 1), colNorm2(b, 2)}
	for _, p := range [3][2]int{{0, 1}, {0, 2}, {1, 2}} {
		i, j := p[0], p[1]
		if rho[i] < rho[j] {
			negSwapCols(b, i, j)
			negSwapCols(v, i, j)
			rho[i], rho[j] = rho[j], rho[i]
		}
	}
}

// qrGivens returns the normalized half-angle of the rotation that zeroes a2
// against a1.
func qrGivens[T reg.Floats](a1, a2 T) (ch, sh T) {
	rho := T(math.Sqrt(float64(a1*a1 + a2*a2)))
	if rho > Epsilon {
		sh = a2
	}
	ch = T(math.Abs(float64(a1))) + max(rho, T(Epsilon))
	if a1 < 0 {
		ch, sh = sh, ch
	}
	w := rsqrt(ch*ch + sh*sh)
	return ch * w, sh * w
}

// qrDecomposition factors b = q·r with q a rotation and r upper triangular.
func qrDecomposition[T reg.Floats](b [9]T) (q, r [9]T) {
	// First rotation zeroes r21.
	ch1, sh1 := qrGivens(b[0], b[3])
	a := 1 - 2*sh1*sh1
	s := 2 * ch1 * sh1
	r = [9]T{
		a*b[0] + s*b[3], a*b[1] + s*b[4], a*b[2] + s*b[5],
		-s*b[0] + a*b[3], -s*b[1] + a*b[4], -s*b[2] + a*b[5],
		b[6], b[7], b[8],
	}

	// Second rotation zeroes r31.
	ch2, sh2 := qrGivens(r[0], r[6])
	a = 1 - 2*sh2*sh2
	s = 2 * ch2 * sh2
	b = [9]T{
		a*r[0] + s*r[6], a*r[1] + s*r[7], a*r[2] + s*r[8],
		r[3], r[4], r[5],
		-s*r[0] + a*r[6], -s*r[1] + a*r[7], -s*r[2] + a*r[8],
	}

	// Third rotation zeroes r32.
	ch3, sh3 := qrGivens(b[4], b[7])
	a = 1 - 2*sh3*sh3
	s = 2 * ch3 * sh3
	r = [9]T{
		b[0], b[1], b[2],
		a*b[3] + s*b[6], a*b[4] + s*b[7], a*b[5] + s*b[8],
		-s*b[3] + a*b[6], -s*b[4] + a*b[7], -s*b[5] + a*b[8],
	}

	// Q = Q1·Q2·Q3 in closed form.
	sh12, sh22, sh32 := sh1*sh1, sh2*sh2, sh3*sh3
	q = [9]T{
		(-1 + 2*sh12) * (-1 + 2*sh22),
		4*ch2*ch3*(-1+2*sh12)*sh2*sh3 + 2*ch1*sh1*(-1+2*sh32),
		4*ch1*ch3*sh1*sh3 - 2*ch2*(-1+2*sh12)*sh2*(-1+2*sh32),

		2 * ch1 * sh1 * (1 - 2*sh22),
		-8*ch1*ch2*ch3*sh1*sh2*sh3 + (-1+2*sh12)*(-1+2*sh32),
		-2*ch3*sh3 + 4*sh1*(ch3*sh1*sh3+ch1*ch2*sh2*(-1+2*sh32)),

		2 * ch2 * sh2,
		2 * ch3 * (1 - 2*sh22) * sh3,
		(-1 + 2*sh22) * (-1 + 2*sh32),
	}
	return q, r
}

// BaseSVD computes a = u·diag(s)·vᵀ for a row-major 3x3 matrix.
//
// u and v are proper rotations and |s[0]| >= |s[1]| >= |s[2]|; s[2] carries
// the sign of det(a).
func BaseSVD[T reg.Floats](a [9]T) (u [9]T, s [3]T, v [9]T) {
	// Normal equations AᵀA, lower triangle.
	ata := sym3[T]{
		s11: reg.MulAdd(a[0], a[0], reg.MulAdd(a[3], a[3], a[6]*a[6])),
		s21: reg.MulAdd(a[0], a[1], reg.MulAdd(a[3], a[4], a[6]*a[7])),
		s22: reg.MulAdd(a[1], a[1], reg.MulAdd(a[4], a[4], a[7]*a[7])),
		s31: reg.MulAdd(a[0], a[2], reg.MulAdd(a[3], a[5], a[6]*a[8])),
		s32: reg.MulAdd(a[1], a[2], reg.MulAdd(a[4], a[5], a[7]*a[8])),
		s33: reg.MulAdd(a[2], a[2], reg.MulAdd(a[5], a[5], a[8]*a[8])),
	}

	q := jacobiEigenanalysis(&ata)
	v = quatToMat3(q)

	b := MulAB(a, v)
	sortSingularValues(&b, &v)

	u, r := qrDecomposition(b)
	s = [3]T{r[0], r[4], r[8]}
	return u, s, v
}

// BaseSVDUnsigned is BaseSVD with non-negative singular values: every
// negative s[i] is flipped together with column i of u, so u may be a
// reflection.
func BaseSVDUnsigned[T reg.Floats](a [9]T) (u [9]T, s [3]T, v [9]T) {
	u, s, v = BaseSVD(a)
	for i := range 3 {
		if s[i] < 0 {
			s[i] = -s[i]
			u[i], u[3+i], u[6+i] = -u[i], -u[3+i], -u[6+i]
		}
	}
	return u, s, v
}

// BaseSolve returns the least-squares solution of a·x = b through the
// pseudo-inverse of a. Directions whose singular value is below Epsilon
// contribute zero, so the result is always finite.
func BaseSolve[T reg.Floats](a [9]T, b [3]T) [3]T {
	u, s, v := BaseSVD(a)

	// y = diag(S⁺)·Uᵀ·b
	var y [3]T
	for i := range 3 {
		if math.Abs(float64(s[i])) < Epsilon {
			continue
		}
		uTb := reg.MulAdd(u[i], b[0], reg.MulAdd(u[3+i], b[1], u[6+i]*b[2]))
		y[i] = uTb / s[i]
	}

	return MulVec(v, y)
}
