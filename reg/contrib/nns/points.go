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

package nns

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is a kd-tree entry that remembers its row in the indexed tensor.
type point struct {
	x   [3]float64
	idx int
}

// Compare implements kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(point).x[d]
}

// Dims implements kdtree.Comparable.
func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx := p.x[0] - q.x[0]
	dy := p.x[1] - q.x[1]
	dz := p.x[2] - q.x[2]
	return dx*dx + dy*dy + dz*dz
}

// kdPoints satisfies kdtree.Interface.
type kdPoints []point

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p kdPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{kdPoints: p, Dim: d}, kdtree.MedianOfRandoms(plane{kdPoints: p, Dim: d}, 100))
}

// plane sorts points along one dimension and satisfies kdtree.SortSlicer.
type plane struct {
	kdPoints
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.kdPoints[i].x[p.Dim] < p.kdPoints[j].x[p.Dim]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{kdPoints: p.kdPoints[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}
