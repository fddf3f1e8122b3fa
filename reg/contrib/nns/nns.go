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
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/ajroetker/go-registration/reg"
)

// Index is an immutable kd-tree over a {N,3} point tensor. It is safe for
// concurrent queries.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds an index over points. An empty or non-{N,3} tensor yields
// ErrIndexNotBuilt.
func NewIndex(points *reg.Tensor) (*Index, error) {
	if points == nil {
		return nil, fmt.Errorf("%w: nil points", reg.ErrIndexNotBuilt)
	}
	if err := reg.CheckDevice(reg.A("points", points)); err != nil {
		return nil, err
	}
	if err := reg.CheckShape(reg.A("points", points), -1, 3); err != nil {
		return nil, fmt.Errorf("%w: %w", reg.ErrIndexNotBuilt, err)
	}
	data, err := reg.AsFloat64(points)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", reg.ErrIndexNotBuilt, err)
	}
	n := points.Length()
	if n == 0 {
		return nil, fmt.Errorf("%w: no points", reg.ErrIndexNotBuilt)
	}

	// kdtree.New reorders its input, so it gets its own slice.
	pts := make(kdPoints, n)
	for i := range pts {
		pts[i] = point{x: [3]float64{data[3*i], data[3*i+1], data[3*i+2]}, idx: i}
	}
	return &Index{tree: kdtree.New(pts, false), n: n}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.n }

// Result holds a fixed-capacity neighbour list per query.
type Result struct {
	// Indices is a row-major {Q, MaxNN} table padded with -1.
	Indices []int64
	// Distances holds the squared distances matching Indices, 0 for padding.
	Distances []float64
	// Counts is the number of valid neighbours per query.
	Counts []int64
	// MaxNN is the row capacity.
	MaxNN int
}

// Len returns the number of queries.
func (r Result) Len() int { return len(r.Counts) }

// Neighbors returns the valid neighbour indices of query i.
func (r Result) Neighbors(i int) []int64 {
	return r.Indices[i*r.MaxNN : i*r.MaxNN+int(r.Counts[i])]
}

// IndicesTensor returns Indices as an Int64 {Q, MaxNN} tensor.
func (r Result) IndicesTensor() *reg.Tensor {
	return reg.FromSlice(r.Indices, r.Len(), r.MaxNN)
}

// CountsTensor returns Counts as an Int64 {Q} tensor.
func (r Result) CountsTensor() *reg.Tensor {
	return reg.FromSlice(r.Counts)
}

// HybridSearch finds, for every row of queries, the up to maxNN nearest
// indexed points within radius. Neighbours are sorted by (distance, index).
func (ix *Index) HybridSearch(queries *reg.Tensor, radius float64, maxNN int, opts ...reg.Option) (Result, error) {
	if ix == nil || ix.tree == nil {
		return Result{}, reg.ErrIndexNotBuilt
	}
	if !(radius > 0) || maxNN <= 0 {
		return Result{}, fmt.Errorf("%w: radius %g, max_nn %d", reg.ErrInvalidArgument, radius, maxNN)
	}
	q, err := queryPoints(queries)
	if err != nil {
		return Result{}, err
	}

	o := reg.ApplyOptions(opts...)
	nq := len(q) / 3
	res := Result{
		Indices:   make([]int64, nq*maxNN),
		Distances: make([]float64, nq*maxNN),
		Counts:    make([]int64, nq),
		MaxNN:     maxNN,
	}
	r2 := radius * radius
	k := min(maxNN, ix.n)

	o.Pool.ParallelForAtomicBatched(nq, 64, func(start, end int) {
		for i := start; i < end; i++ {
			found := ix.nearest(q[3*i:3*i+3], k, r2)
			row := res.Indices[i*maxNN : (i+1)*maxNN]
			dist := res.Distances[i*maxNN : (i+1)*maxNN]
			for j := range row {
				if j < len(found) {
					row[j] = int64(found[j].Comparable.(point).idx)
					dist[j] = found[j].Dist
				} else {
					row[j] = -1
				}
			}
			res.Counts[i] = int64(len(found))
		}
	})
	return res, nil
}

// KNNWithin returns, for every row of queries, the index of the nearest
// indexed point and its squared distance, or -1 and +Inf when no point
// lies within maxDist.
func (ix *Index) KNNWithin(queries *reg.Tensor, maxDist float64, opts ...reg.Option) ([]int64, []float64, error) {
	if ix == nil || ix.tree == nil {
		return nil, nil, reg.ErrIndexNotBuilt
	}
	if !(maxDist > 0) {
		return nil, nil, fmt.Errorf("%w: max distance %g", reg.ErrInvalidArgument, maxDist)
	}
	q, err := queryPoints(queries)
	if err != nil {
		return nil, nil, err
	}

	o := reg.ApplyOptions(opts...)
	nq := len(q) / 3
	corr := make([]int64, nq)
	dist := make([]float64, nq)
	r2 := maxDist * maxDist

	o.Pool.ParallelForAtomicBatched(nq, 256, func(start, end int) {
		for i := start; i < end; i++ {
			x := q[3*i : 3*i+3]
			best, d := ix.tree.Nearest(point{x: [3]float64{x[0], x[1], x[2]}})
			if best == nil || d > r2 {
				corr[i], dist[i] = -1, math.Inf(1)
				continue
			}
			corr[i], dist[i] = int64(best.(point).idx), d
		}
	})
	return corr, dist, nil
}

// nearest returns the up to k nearest points within squared radius r2,
// sorted by (distance, index).
func (ix *Index) nearest(x []float64, k int, r2 float64) []kdtree.ComparableDist {
	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, point{x: [3]float64{x[0], x[1], x[2]}})

	// The keeper starts with a nil sentinel at +Inf that stays until the
	// heap fills.
	found := keeper.Heap[:0]
	for _, cd := range keeper.Heap {
		if cd.Comparable != nil && cd.Dist <= r2 {
			found = append(found, cd)
		}
	}
	slices.SortFunc(found, func(a, b kdtree.ComparableDist) int {
		if c := cmp.Compare(a.Dist, b.Dist); c != 0 {
			return c
		}
		return cmp.Compare(a.Comparable.(point).idx, b.Comparable.(point).idx)
	})
	return found
}

func queryPoints(queries *reg.Tensor) ([]float64, error) {
	if queries == nil {
		return nil, fmt.Errorf("%w: nil queries", reg.ErrInvalidArgument)
	}
	if err := reg.CheckDevice(reg.A("queries", queries)); err != nil {
		return nil, err
	}
	if err := reg.CheckShape(reg.A("queries", queries), -1, 3); err != nil {
		return nil, err
	}
	return reg.AsFloat64(queries)
}
