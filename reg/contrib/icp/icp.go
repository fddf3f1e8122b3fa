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
	"fmt"
	"math"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/robust"
	"github.com/ajroetker/go-registration/reg/contrib/workerpool"
)

// PoseResult is the outcome of one linearized pose solve.
type PoseResult struct {
	// Pose is (α, β, γ, tx, ty, tz), zero when nothing could be solved.
	Pose [6]float64
	// Transform is Pose as a rigid motion.
	Transform linsys.Transform
	// Residual is Σ w·r² over the inliers at the linearization point.
	Residual float64
	// InlierCount is the number of matched source points that contributed.
	InlierCount int
	// Dtype is the element type the system was accumulated in.
	Dtype reg.Dtype
}

// PoseTensor returns Pose as a {6} tensor of the result dtype.
func (p PoseResult) PoseTensor() *reg.Tensor {
	if p.Dtype == reg.Float32 {
		out := make([]float32, 6)
		for i, v := range p.Pose {
			out[i] = float32(v)
		}
		return reg.FromSlice(out)
	}
	return reg.FromSlice(p.Pose[:])
}

// ComputePosePointToPlane solves one Gauss-Newton step of robust
// point-to-plane ICP.
//
// src is {N,3}; tgt and tgtNormals are {M,3}; all share dtype. corr is an
// Int64 {N} tensor of target indices or -1. Zero inliers is not an error:
// the result has InlierCount 0 and a zero pose.
func ComputePosePointToPlane(src, tgt, tgtNormals, corr *reg.Tensor, dtype reg.Dtype, kernel robust.Kernel, opts ...reg.Option) (PoseResult, error) {
	if err := checkPoints(dtype, src, tgt, corr, nil, reg.A("target_normals", tgtNormals)); err != nil {
		return PoseResult{}, err
	}
	if err := kernel.Validate(); err != nil {
		return PoseResult{}, err
	}

	o := reg.ApplyOptions(opts...)
	n := src.Length()
	log := o.Logger.WithOp("point_to_plane").WithCount(n)

	var sol linsys.Solution
	var err error
	switch dtype {
	case reg.Float32:
		e := &pointToPlane[float32]{
			src:     reg.MustData[float32](src),
			tgt:     reg.MustData[float32](tgt),
			normals: reg.MustData[float32](tgtNormals),
			corr:    reg.MustData[int64](corr),
		}
		acc := reduce[float32](o.Pool, n, e, kernel)
		sol, err = linsys.DecodeAndSolve6x6(&acc)
	case reg.Float64:
		e := &pointToPlane[float64]{
			src:     reg.MustData[float64](src),
			tgt:     reg.MustData[float64](tgt),
			normals: reg.MustData[float64](tgtNormals),
			corr:    reg.MustData[int64](corr),
		}
		acc := reduce[float64](o.Pool, n, e, kernel)
		sol, err = linsys.DecodeAndSolve6x6(&acc)
	}
	if err != nil {
		return PoseResult{}, err
	}
	return poseResult(log, sol, dtype), nil
}

// ComputePoseColoredICP solves one Gauss-Newton step of colored ICP.
//
// The geometric term is scaled by sqrt(lambdaGeometric) and the photometric
// term by sqrt(1-lambdaGeometric); both are weighted by kernel and summed
// into one system. Intensity is the mean of the three color channels and
// tgtGradients holds the target intensity gradients. The dtype of src sets
// the dtype of the call; every float tensor must match it.
func ComputePoseColoredICP(src, srcColors, tgt, tgtNormals, tgtColors, tgtGradients, corr *reg.Tensor,
	kernel robust.Kernel, lambdaGeometric float64, opts ...reg.Option) (PoseResult, error) {
	if src == nil {
		return PoseResult{}, fmt.Errorf("%w: source is nil", reg.ErrInvalidArgument)
	}
	dtype := src.Dtype()
	if err := checkPoints(dtype, src, tgt, corr,
		[]reg.Arg{reg.A("source_colors", srcColors)},
		reg.A("target_normals", tgtNormals), reg.A("target_colors", tgtColors), reg.A("target_color_gradients", tgtGradients),
	); err != nil {
		return PoseResult{}, err
	}
	if !(lambdaGeometric >= 0 && lambdaGeometric <= 1) {
		return PoseResult{}, fmt.Errorf("%w: lambda_geometric %g outside [0, 1]", reg.ErrInvalidArgument, lambdaGeometric)
	}
	if err := kernel.Validate(); err != nil {
		return PoseResult{}, err
	}

	o := reg.ApplyOptions(opts...)
	n := src.Length()
	log := o.Logger.WithOp("colored_icp").WithCount(n)
	sg, sp := math.Sqrt(lambdaGeometric), math.Sqrt(1-lambdaGeometric)

	var sol linsys.Solution
	var err error
	switch dtype {
	case reg.Float32:
		acc := reduce[float32](o.Pool, n, newColoredICP[float32](src, srcColors, tgt, tgtNormals, tgtColors, tgtGradients, corr, sg, sp), kernel)
		sol, err = linsys.DecodeAndSolve6x6(&acc)
	case reg.Float64:
		acc := reduce[float64](o.Pool, n, newColoredICP[float64](src, srcColors, tgt, tgtNormals, tgtColors, tgtGradients, corr, sg, sp), kernel)
		sol, err = linsys.DecodeAndSolve6x6(&acc)
	}
	if err != nil {
		return PoseResult{}, err
	}
	return poseResult(log, sol, dtype), nil
}

func newColoredICP[T float32 | float64](src, srcColors, tgt, tgtNormals, tgtColors, tgtGradients, corr *reg.Tensor, sg, sp float64) *coloredICP[T] {
	return &coloredICP[T]{
		src:             reg.MustData[T](src),
		srcColors:       reg.MustData[T](srcColors),
		tgt:             reg.MustData[T](tgt),
		normals:         reg.MustData[T](tgtNormals),
		tgtColors:       reg.MustData[T](tgtColors),
		gradients:       reg.MustData[T](tgtGradients),
		corr:            reg.MustData[int64](corr),
		sqrtGeometric:   T(sg),
		sqrtPhotometric: T(sp),
	}
}

// reduce binds the robust kernel to a concrete weighter and runs the
// reduction.
func reduce[T reg.Floats, E linsys.Evaluator[T]](pool *workerpool.Pool, n int, e E, k robust.Kernel) linsys.Accumulator[T] {
	switch k.Type {
	case robust.L1Loss:
		return linsys.Reduce[T](pool, n, e, robust.L1[T]{})
	case robust.HuberLoss:
		return linsys.Reduce[T](pool, n, e, robust.NewHuber[T](k))
	case robust.CauchyLoss:
		return linsys.Reduce[T](pool, n, e, robust.NewCauchy[T](k))
	case robust.GMLoss:
		return linsys.Reduce[T](pool, n, e, robust.NewGM[T](k))
	case robust.TukeyLoss:
		return linsys.Reduce[T](pool, n, e, robust.NewTukey[T](k))
	case robust.GeneralizedLoss:
		return linsys.Reduce[T](pool, n, e, robust.NewGeneralized[T](k))
	}
	return linsys.Reduce[T](pool, n, e, robust.L2[T]{})
}

func poseResult(log *reg.Logger, sol linsys.Solution, dtype reg.Dtype) PoseResult {
	ctx := context.Background()
	log.LogReduction(ctx, sol.Inliers, sol.Residual)
	if sol.Singular {
		log.WarnContext(ctx, "normal equations are singular, returning zero pose", "inliers", sol.Inliers)
	}
	return PoseResult{
		Pose:        sol.Pose,
		Transform:   sol.Transform(),
		Residual:    sol.Residual,
		InlierCount: sol.Inliers,
		Dtype:       dtype,
	}
}

// checkPoints validates the arguments shared by every objective: a float
// dtype, CPU placement, matching dtypes, {N,3} source attributes, {M,3}
// target attributes and correspondences in [-1, M).
func checkPoints(dtype reg.Dtype, src, tgt, corr *reg.Tensor, srcAttrs []reg.Arg, tgtAttrs ...reg.Arg) error {
	if err := reg.CheckFloat(dtype); err != nil {
		return err
	}
	args := []reg.Arg{reg.A("source", src), reg.A("target", tgt)}
	args = append(args, srcAttrs...)
	args = append(args, tgtAttrs...)
	if err := reg.CheckDevice(append(args, reg.A("correspondences", corr))...); err != nil {
		return err
	}
	if err := reg.CheckDtype(dtype, args...); err != nil {
		return err
	}
	if err := reg.CheckShape(args[0], -1, 3); err != nil {
		return err
	}
	if err := reg.CheckShape(args[1], -1, 3); err != nil {
		return err
	}
	n, m := src.Length(), tgt.Length()
	for _, a := range srcAttrs {
		if err := reg.CheckShape(a, n, 3); err != nil {
			return err
		}
	}
	for _, a := range tgtAttrs {
		if err := reg.CheckShape(a, m, 3); err != nil {
			return err
		}
	}
	return reg.CheckCorrespondences(corr, n, m)
}
