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

package pointcloud

import (
	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/svd3x3"
)

const (
	// MinCovarianceNeighbors is the smallest neighbourhood with a covariance.
	MinCovarianceNeighbors = 3
	// MinGradientNeighbors is the smallest neighbourhood with a color gradient.
	MinGradientNeighbors = 4
)

// BaseCovariance returns the row-major 3x3 covariance of the points indexed
// by nb, normalized by len(nb). Fewer than MinCovarianceNeighbors indices
// give the identity.
func BaseCovariance[T reg.Floats](points []T, nb []int64) [9]float64 {
	if len(nb) < MinCovarianceNeighbors {
		return svd3x3.Identity[float64]()
	}

	var mean [3]float64
	for _, j := range nb {
		mean[0] += float64(points[3*j])
		mean[1] += float64(points[3*j+1])
		mean[2] += float64(points[3*j+2])
	}
	inv := 1 / float64(len(nb))
	for k := range mean {
		mean[k] *= inv
	}

	var c [9]float64
	for _, j := range nb {
		d := [3]float64{
			float64(points[3*j]) - mean[0],
			float64(points[3*j+1]) - mean[1],
			float64(points[3*j+2]) - mean[2],
		}
		for a := range 3 {
			for b := a; b < 3; b++ {
				c[3*a+b] += d[a] * d[b]
			}
		}
	}
	for a := range 3 {
		for b := a; b < 3; b++ {
			c[3*a+b] *= inv
			c[3*b+a] = c[3*a+b]
		}
	}
	return c
}

// BaseColorGradient estimates the intensity gradient at point i in the
// tangent plane of normals[i]. nb must start with i itself; the remaining
// neighbours are projected onto the tangent plane and fitted in the least
// squares sense, with one extra row of weight len(nb)-1 along the normal
// that keeps the gradient tangential. Fewer than MinGradientNeighbors
// indices give zero.
func BaseColorGradient[T reg.Floats](points, normals, colors []T, i int, nb []int64) [3]T {
	if len(nb) < MinGradientNeighbors {
		return [3]T{}
	}
	vt := points[3*i : 3*i+3 : 3*i+3]
	nt := normals[3*i : 3*i+3 : 3*i+3]
	it := intensity(colors[3*i : 3*i+3 : 3*i+3])
	s := vt[0]*nt[0] + vt[1]*nt[1] + vt[2]*nt[2]

	var ata [9]T
	var atb [3]T
	for _, j := range nb[1:] {
		adj := points[3*j : 3*j+3 : 3*j+3]
		d := adj[0]*nt[0] + adj[1]*nt[1] + adj[2]*nt[2] - s
		a := [3]T{
			adj[0] - d*nt[0] - vt[0],
			adj[1] - d*nt[1] - vt[1],
			adj[2] - d*nt[2] - vt[2],
		}
		b := intensity(colors[3*j:3*j+3:3*j+3]) - it
		addOuter(&ata, a)
		for k := range 3 {
			atb[k] = reg.MulAdd(a[k], b, atb[k])
		}
	}

	w := T(len(nb) - 1)
	addOuter(&ata, [3]T{w * nt[0], w * nt[1], w * nt[2]})
	return svd3x3.Solve(ata, atb)
}

func addOuter[T reg.Floats](m *[9]T, a [3]T) {
	for r := range 3 {
		for c := range 3 {
			m[3*r+c] = reg.MulAdd(a[r], a[c], m[3*r+c])
		}
	}
}

func intensity[T reg.Floats](rgb []T) T {
	return (rgb[0] + rgb[1] + rgb[2]) / 3
}

// BaseNormal returns the unit eigenvector of the smallest eigenvalue of a
// covariance, flipped to have a non-negative z component.
func BaseNormal(cov [9]float64) [3]float64 {
	_, _, v := svd3x3.SVDUnsigned(cov)
	n := [3]float64{v[2], v[5], v[8]}
	if n[2] < 0 {
		n[0], n[1], n[2] = -n[0], -n[1], -n[2]
	}
	return n
}
