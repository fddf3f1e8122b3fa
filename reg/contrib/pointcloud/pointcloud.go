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
	"fmt"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/nns"
)

// Neighbors runs the hybrid neighbour query of every point against its own
// cloud.
func Neighbors(points *reg.Tensor, radius float64, maxNN int, opts ...reg.Option) (nns.Result, error) {
	ix, err := nns.NewIndex(points)
	if err != nil {
		return nns.Result{}, err
	}
	return ix.HybridSearch(points, radius, maxNN, opts...)
}

// EstimatePointWiseCovariance returns the {N,3,3} covariance of each point's
// neighbourhood, in the dtype of points.
func EstimatePointWiseCovariance(points *reg.Tensor, radius float64, maxNN int, opts ...reg.Option) (*reg.Tensor, error) {
	if err := checkCloud(points); err != nil {
		return nil, err
	}
	nb, err := Neighbors(points, radius, maxNN, opts...)
	if err != nil {
		return nil, err
	}
	return ComputeCovariance(points, nb, opts...)
}

// ComputeCovariance returns the {N,3,3} covariances for precomputed
// neighbourhoods.
func ComputeCovariance(points *reg.Tensor, nb nns.Result, opts ...reg.Option) (*reg.Tensor, error) {
	if err := checkCloud(points); err != nil {
		return nil, err
	}
	if err := checkNeighbors(points, nb); err != nil {
		return nil, err
	}
	o := reg.ApplyOptions(opts...)
	n := points.Length()
	o.Logger.WithOp("covariance").WithCount(n).Debug("estimating covariances", "max_nn", nb.MaxNN)

	switch points.Dtype() {
	case reg.Float32:
		return reg.FromSlice(covariances(o, reg.MustData[float32](points), nb), n, 3, 3), nil
	default:
		return reg.FromSlice(covariances(o, reg.MustData[float64](points), nb), n, 3, 3), nil
	}
}

func covariances[T float32 | float64](o reg.Options, pts []T, nb nns.Result) []T {
	out := make([]T, 9*nb.Len())
	o.Pool.ParallelFor(nb.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			c := BaseCovariance(pts, nb.Neighbors(i))
			for k, v := range c {
				out[9*i+k] = T(v)
			}
		}
	})
	return out
}

// EstimatePointWiseColorGradient returns the {N,3} intensity gradient of
// each point in its tangent plane. normals and colors are {N,3} tensors of
// the points dtype; intensity is the mean of the three color channels.
func EstimatePointWiseColorGradient(points, normals, colors *reg.Tensor, radius float64, maxNN int, opts ...reg.Option) (*reg.Tensor, error) {
	if err := checkCloud(points, reg.A("normals", normals), reg.A("colors", colors)); err != nil {
		return nil, err
	}
	nb, err := Neighbors(points, radius, maxNN, opts...)
	if err != nil {
		return nil, err
	}
	return ComputeColorGradient(points, normals, colors, nb, opts...)
}

// ComputeColorGradient returns the {N,3} color gradients for precomputed
// neighbourhoods. Each neighbourhood must list the point itself first.
func ComputeColorGradient(points, normals, colors *reg.Tensor, nb nns.Result, opts ...reg.Option) (*reg.Tensor, error) {
	if err := checkCloud(points, reg.A("normals", normals), reg.A("colors", colors)); err != nil {
		return nil, err
	}
	if err := checkNeighbors(points, nb); err != nil {
		return nil, err
	}
	o := reg.ApplyOptions(opts...)
	n := points.Length()
	o.Logger.WithOp("color_gradient").WithCount(n).Debug("estimating color gradients", "max_nn", nb.MaxNN)

	switch points.Dtype() {
	case reg.Float32:
		return reg.FromSlice(gradients(o, reg.MustData[float32](points), reg.MustData[float32](normals), reg.MustData[float32](colors), nb), n, 3), nil
	default:
		return reg.FromSlice(gradients(o, reg.MustData[float64](points), reg.MustData[float64](normals), reg.MustData[float64](colors), nb), n, 3), nil
	}
}

// gradients hands out points one at a time: only points with enough
// neighbours pay for a solve, so per-point cost is uneven.
func gradients[T float32 | float64](o reg.Options, pts, nrm, col []T, nb nns.Result) []T {
	out := make([]T, 3*nb.Len())
	o.Pool.ParallelForAtomic(nb.Len(), func(i int) {
		g := BaseColorGradient(pts, nrm, col, i, nb.Neighbors(i))
		copy(out[3*i:3*i+3], g[:])
	})
	return out
}

// EstimateNormals returns {N,3} unit normals from the local covariance of
// each point, oriented towards +Z. Points with fewer than
// MinCovarianceNeighbors neighbours get (0, 0, 1).
func EstimateNormals(points *reg.Tensor, radius float64, maxNN int, opts ...reg.Option) (*reg.Tensor, error) {
	if err := checkCloud(points); err != nil {
		return nil, err
	}
	nb, err := Neighbors(points, radius, maxNN, opts...)
	if err != nil {
		return nil, err
	}
	o := reg.ApplyOptions(opts...)
	n := points.Length()
	o.Logger.WithOp("normals").WithCount(n).Debug("estimating normals", "radius", radius, "max_nn", maxNN)

	switch points.Dtype() {
	case reg.Float32:
		return reg.FromSlice(unitNormals(o, reg.MustData[float32](points), nb), n, 3), nil
	default:
		return reg.FromSlice(unitNormals(o, reg.MustData[float64](points), nb), n, 3), nil
	}
}

func unitNormals[T float32 | float64](o reg.Options, pts []T, nb nns.Result) []T {
	out := make([]T, 3*nb.Len())
	o.Pool.ParallelFor(nb.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			idx := nb.Neighbors(i)
			if len(idx) < MinCovarianceNeighbors {
				out[3*i+2] = 1
				continue
			}
			v := BaseNormal(BaseCovariance(pts, idx))
			out[3*i], out[3*i+1], out[3*i+2] = T(v[0]), T(v[1]), T(v[2])
		}
	})
	return out
}

// checkCloud validates a float {N,3} point tensor and same-shaped
// attributes.
func checkCloud(points *reg.Tensor, attrs ...reg.Arg) error {
	if points == nil {
		return fmt.Errorf("%w: points is nil", reg.ErrInvalidArgument)
	}
	all := append([]reg.Arg{reg.A("points", points)}, attrs...)
	if err := reg.CheckDevice(all...); err != nil {
		return err
	}
	if err := reg.CheckFloat(points.Dtype()); err != nil {
		return err
	}
	if err := reg.CheckDtype(points.Dtype(), all...); err != nil {
		return err
	}
	n := points.Length()
	if err := reg.CheckShape(all[0], -1, 3); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := reg.CheckShape(a, n, 3); err != nil {
			return err
		}
	}
	return nil
}

// checkNeighbors verifies that nb holds one row per point and only indexes
// existing points.
func checkNeighbors(points *reg.Tensor, nb nns.Result) error {
	n := points.Length()
	if nb.Len() != n || len(nb.Indices) != n*nb.MaxNN {
		return &reg.ShapeMismatchError{Arg: "neighbors", Expected: []int{n, nb.MaxNN}, Actual: []int{nb.Len(), len(nb.Indices)}}
	}
	for i, c := range nb.Counts {
		if c < 0 || c > int64(nb.MaxNN) {
			return fmt.Errorf("%w: neighbor count %d of point %d exceeds %d", reg.ErrInvalidArgument, c, i, nb.MaxNN)
		}
		for _, j := range nb.Neighbors(i) {
			if j < 0 || j >= int64(n) {
				return &reg.CorrespondenceRangeError{Index: i, Value: j, Limit: n}
			}
		}
	}
	return nil
}
