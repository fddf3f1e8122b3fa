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

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/svd3x3"
	"github.com/ajroetker/go-registration/reg/contrib/workerpool"
)

// RtResult is a closed-form rigid alignment.
type RtResult struct {
	// R is the {3,3} rotation and T the {3} translation, in the call dtype.
	R, T *reg.Tensor
	// Transform holds the same motion in float64.
	Transform linsys.Transform
	// InlierCount is the number of matched pairs.
	InlierCount int
}

// ComputeRtPointToPoint returns the rotation and translation minimizing
// Σ |R·s_i + t - t_c(i)|² over matched pairs.
//
// Centroids and the cross-covariance are reduced in two parallel passes in
// float64. R = U·diag(1, 1, det(U)·det(V))·Vᵀ from the SVD of the
// cross-covariance, so R is always a proper rotation. Zero inliers give the
// identity motion.
func ComputeRtPointToPoint(src, tgt, corr *reg.Tensor, dtype reg.Dtype, opts ...reg.Option) (RtResult, error) {
	if err := checkPoints(dtype, src, tgt, corr, nil); err != nil {
		return RtResult{}, err
	}

	o := reg.ApplyOptions(opts...)
	n := src.Length()
	log := o.Logger.WithOp("point_to_point").WithCount(n)

	var tf linsys.Transform
	var inliers int
	switch dtype {
	case reg.Float32:
		tf, inliers = BaseRtPointToPoint(o.Pool, reg.MustData[float32](src), reg.MustData[float32](tgt), reg.MustData[int64](corr))
	case reg.Float64:
		tf, inliers = BaseRtPointToPoint(o.Pool, reg.MustData[float64](src), reg.MustData[float64](tgt), reg.MustData[int64](corr))
	}
	log.LogReduction(context.Background(), inliers, 0)

	res := RtResult{Transform: tf, InlierCount: inliers}
	t := [3]float64{tf.T.X, tf.T.Y, tf.T.Z}
	if dtype == reg.Float32 {
		res.R = reg.FromSlice(toFloat32(tf.R[:]), 3, 3)
		res.T = reg.FromSlice(toFloat32(t[:]), 3)
	} else {
		res.R = reg.FromSlice(tf.R[:], 3, 3)
		res.T = reg.FromSlice(t[:], 3)
	}
	return res, nil
}

// BaseRtPointToPoint aligns src[i] to tgt[corr[i]] over the pairs with
// corr[i] >= 0. Indices must already be validated.
func BaseRtPointToPoint[T reg.Floats](pool *workerpool.Pool, src, tgt []T, corr []int64) (linsys.Transform, int) {
	pair := func(i int) (s, t [3]float64, ok bool) {
		c := corr[i]
		if c < 0 {
			return s, t, false
		}
		s = [3]float64{float64(src[3*i]), float64(src[3*i+1]), float64(src[3*i+2])}
		t = [3]float64{float64(tgt[3*c]), float64(tgt[3*c+1]), float64(tgt[3*c+2])}
		return s, t, true
	}

	n := len(corr)
	sums := linsys.ReduceMeans(pool, n, pair)
	count := int(sums[6])
	if count == 0 {
		return linsys.Identity(), 0
	}
	meanS, meanT := sums.Means()

	sxy := linsys.ReduceCrossCovariance(pool, n, meanS, meanT, pair)
	var m [9]float64
	for i := range m {
		m[i] = sxy[i] / sums[6]
	}

	u, v := crossCovarianceSVD(m)
	d := [3]float64{1, 1, 1}
	if svd3x3.Det(u)*svd3x3.Det(v) < 0 {
		d[2] = -1
	}
	r := svd3x3.MulABt(svd3x3.MulAB(u, svd3x3.Diag(d)), v)

	tf := linsys.Transform{R: r}
	ms := r3.Vector{X: meanS[0], Y: meanS[1], Z: meanS[2]}
	mt := r3.Vector{X: meanT[0], Y: meanT[1], Z: meanT[2]}
	tf.T = mt.Sub(tf.Rotate(ms))
	return tf, count
}

// crossCovarianceSVD factors the cross-covariance to full precision. The
// closed-form Jacobi SVD covers the rare case where gonum does not converge.
func crossCovarianceSVD(m [9]float64) (u, v [9]float64) {
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(3, 3, m[:]), mat.SVDFull) {
		u, _, v = svd3x3.SVDUnsigned(m)
		return u, v
	}
	var um, vm mat.Dense
	svd.UTo(&um)
	svd.VTo(&vm)
	for r := range 3 {
		for c := range 3 {
			u[3*r+c] = um.At(r, c)
			v[3*r+c] = vm.At(r, c)
		}
	}
	return u, v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
