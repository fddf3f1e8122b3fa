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

package icp

import "github.com/ajroetker/go-registration/reg"

// pointToPlane evaluates r = (s - t)·n with Jacobian [s×n, n].
type pointToPlane[T reg.Floats] struct {
	src, tgt, normals []T
	corr              []int64
}

func (e *pointToPlane[T]) Jacobian(i int, j *[2][6]T, r *[2]T) int {
	c := e.corr[i]
	if c < 0 {
		return 0
	}
	s := e.src[3*i : 3*i+3 : 3*i+3]
	t := e.tgt[3*c : 3*c+3 : 3*c+3]
	n := e.normals[3*c : 3*c+3 : 3*c+3]
	if nn := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]; !(nn > 0) {
		return 0
	}

	r[0] = (s[0]-t[0])*n[0] + (s[1]-t[1])*n[1] + (s[2]-t[2])*n[2]
	j[0] = [6]T{
		n[2]*s[1] - n[1]*s[2],
		n[0]*s[2] - n[2]*s[0],
		n[1]*s[0] - n[0]*s[1],
		n[0], n[1], n[2],
	}
	return 1
}

// coloredICP evaluates a geometric point-to-plane term and a photometric
// term, scaled by sqrt(λ) and sqrt(1-λ).
type coloredICP[T reg.Floats] struct {
	src, srcColors          []T
	tgt, normals, tgtColors []T
	gradients               []T
	corr                    []int64

	sqrtGeometric, sqrtPhotometric T
}

func (e *coloredICP[T]) Jacobian(i int, j *[2][6]T, r *[2]T) int {
	c := e.corr[i]
	if c < 0 {
		return 0
	}
	vs := e.src[3*i : 3*i+3 : 3*i+3]
	vt := e.tgt[3*c : 3*c+3 : 3*c+3]
	nt := e.normals[3*c : 3*c+3 : 3*c+3]
	dit := e.gradients[3*c : 3*c+3 : 3*c+3]

	d := (vs[0]-vt[0])*nt[0] + (vs[1]-vt[1])*nt[1] + (vs[2]-vt[2])*nt[2]

	sg := e.sqrtGeometric
	j[0] = [6]T{
		sg * (-vs[2]*nt[1] + vs[1]*nt[2]),
		sg * (vs[2]*nt[0] - vs[0]*nt[2]),
		sg * (-vs[1]*nt[0] + vs[0]*nt[1]),
		sg * nt[0], sg * nt[1], sg * nt[2],
	}
	r[0] = sg * d

	// Source point projected onto the target tangent plane.
	var proj [3]T
	for k := range 3 {
		proj[k] = vs[k] - d*nt[k] - vt[k]
	}

	is := intensity(e.srcColors[3*i : 3*i+3 : 3*i+3])
	it := intensity(e.tgtColors[3*c : 3*c+3 : 3*c+3])
	isProj := dit[0]*proj[0] + dit[1]*proj[1] + dit[2]*proj[2] + it

	// ditM = -ditᵀ(I - n·nᵀ)
	dn := dit[0]*nt[0] + dit[1]*nt[1] + dit[2]*nt[2]
	var ditM [3]T
	for k := range 3 {
		ditM[k] = dn*nt[k] - dit[k]
	}

	sp := e.sqrtPhotometric
	j[1] = [6]T{
		sp * (-vs[2]*ditM[1] + vs[1]*ditM[2]),
		sp * (vs[2]*ditM[0] - vs[0]*ditM[2]),
		sp * (-vs[1]*ditM[0] + vs[0]*ditM[1]),
		sp * ditM[0], sp * ditM[1], sp * ditM[2],
	}
	r[1] = sp * (is - isProj)
	return 2
}

func intensity[T reg.Floats](rgb []T) T {
	return (rgb[0] + rgb[1] + rgb[2]) / 3
}
