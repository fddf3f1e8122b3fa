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

package registration

import (
	"fmt"
	"math"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/icp"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/nns"
	"github.com/ajroetker/go-registration/reg/contrib/pointcloud"
	"github.com/ajroetker/go-registration/reg/contrib/workerpool"
)

// PointCloud bundles a {N,3} point tensor with its optional per-point
// attributes. Every attribute present is {N,3} in the dtype of Points.
type PointCloud struct {
	Points         *reg.Tensor
	Normals        *reg.Tensor
	Colors         *reg.Tensor
	ColorGradients *reg.Tensor
}

// Len returns the number of points.
func (pc PointCloud) Len() int {
	if pc.Points == nil {
		return 0
	}
	return pc.Points.Length()
}

// Result reports the outcome of a registration run.
type Result struct {
	// Transform maps the source onto the target.
	Transform linsys.Transform
	// Fitness is the fraction of source points with a correspondence.
	Fitness float64
	// InlierRMSE is the RMS distance over those correspondences.
	InlierRMSE float64
	// Iterations is the number of steps applied.
	Iterations int
	// Converged is set when the relative criteria stopped the loop.
	Converged bool
}

// ICP aligns source to target starting from init.
//
// Missing target normals (point_to_plane, colored_icp) and color gradients
// (colored_icp) are estimated first. The loop stops when the criteria are
// met, when no correspondence is found, or after Criteria.MaxIterations
// steps; the last two leave Converged false.
func ICP(source, target PointCloud, init linsys.Transform, cfg Config, opts ...reg.Option) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if source.Points == nil || target.Points == nil {
		return Result{}, fmt.Errorf("%w: source and target need points", reg.ErrInvalidArgument)
	}
	if cfg.Method == ColoredICP && (source.Colors == nil || target.Colors == nil) {
		return Result{}, fmt.Errorf("%w: colored_icp needs source and target colors", reg.ErrInvalidArgument)
	}
	if cfg.Workers > 0 {
		pool := workerpool.New(cfg.Workers)
		defer pool.Close()
		opts = append([]reg.Option{reg.WithPool(pool)}, opts...)
	}
	o := reg.ApplyOptions(opts...)
	log := o.Logger.WithOp("icp").WithCount(source.Len())

	target, err := prepareTarget(target, cfg, opts)
	if err != nil {
		return Result{}, err
	}
	index, err := nns.NewIndex(target.Points)
	if err != nil {
		return Result{}, err
	}

	r := &run{cfg: cfg, source: source, target: target, index: index, opts: opts}
	res := Result{Transform: init}
	m, err := r.match(init)
	if err != nil {
		return Result{}, err
	}
	res.Fitness, res.InlierRMSE = m.fitness, m.rmse

	for res.Iterations < cfg.Criteria.MaxIterations && m.inliers > 0 {
		update, err := r.step(m)
		if err != nil {
			return Result{}, err
		}
		res.Transform = update.Compose(res.Transform)
		res.Iterations++

		prev := m
		if m, err = r.match(res.Transform); err != nil {
			return Result{}, err
		}
		res.Fitness, res.InlierRMSE = m.fitness, m.rmse
		log.Debug("icp iteration", "iteration", res.Iterations, "fitness", m.fitness, "inlier_rmse", m.rmse)

		if math.Abs(prev.fitness-m.fitness) < cfg.Criteria.RelativeFitness &&
			math.Abs(prev.rmse-m.rmse) < cfg.Criteria.RelativeRMSE {
			res.Converged = true
			break
		}
	}
	if m.inliers == 0 {
		log.Warn("no correspondences within max distance", "max_correspondence_distance", cfg.MaxCorrespondenceDistance)
	}
	log.Debug("icp finished", "method", cfg.Method.String(), "iterations", res.Iterations,
		"fitness", res.Fitness, "inlier_rmse", res.InlierRMSE, "converged", res.Converged)
	return res, nil
}

// prepareTarget fills in the target attributes the method reads.
func prepareTarget(target PointCloud, cfg Config, opts []reg.Option) (PointCloud, error) {
	if cfg.Method == PointToPoint {
		return target, nil
	}
	var err error
	if target.Normals == nil {
		target.Normals, err = pointcloud.EstimateNormals(target.Points, cfg.Normals.Radius, cfg.Normals.MaxNN, opts...)
		if err != nil {
			return target, fmt.Errorf("estimate target normals: %w", err)
		}
	}
	if cfg.Method == ColoredICP && target.ColorGradients == nil {
		target.ColorGradients, err = pointcloud.EstimatePointWiseColorGradient(
			target.Points, target.Normals, target.Colors, cfg.Normals.Radius, cfg.Normals.MaxNN, opts...)
		if err != nil {
			return target, fmt.Errorf("estimate target color gradients: %w", err)
		}
	}
	return target, nil
}

type run struct {
	cfg            Config
	source, target PointCloud
	index          *nns.Index
	opts           []reg.Option
}

// matches is the correspondence set of one estimate.
type matches struct {
	moved   *reg.Tensor
	corr    *reg.Tensor
	inliers int
	fitness float64
	rmse    float64
}

// match moves the source by tf and pairs it with the target.
func (r *run) match(tf linsys.Transform) (matches, error) {
	moved, err := linsys.TransformPoints(r.source.Points, tf)
	if err != nil {
		return matches{}, err
	}
	corr, dist, err := r.index.KNNWithin(moved, r.cfg.MaxCorrespondenceDistance, r.opts...)
	if err != nil {
		return matches{}, err
	}

	type sum struct {
		d2 float64
		n  int
	}
	o := reg.ApplyOptions(r.opts...)
	s := workerpool.Reduce(o.Pool, len(corr), func(acc *sum, start, end int) {
		for i := start; i < end; i++ {
			if corr[i] >= 0 {
				acc.d2 += dist[i]
				acc.n++
			}
		}
	}, func(dst, src *sum) {
		dst.d2 += src.d2
		dst.n += src.n
	})

	m := matches{moved: moved, corr: reg.FromSlice(corr, len(corr)), inliers: s.n}
	if s.n > 0 {
		m.fitness = float64(s.n) / float64(len(corr))
		m.rmse = math.Sqrt(s.d2 / float64(s.n))
	}
	return m, nil
}

// step solves one update for the moved source.
func (r *run) step(m matches) (linsys.Transform, error) {
	dtype := r.source.Points.Dtype()
	switch r.cfg.Method {
	case PointToPoint:
		res, err := icp.ComputeRtPointToPoint(m.moved, r.target.Points, m.corr, dtype, r.opts...)
		if err != nil {
			return linsys.Transform{}, err
		}
		return res.Transform, nil
	case ColoredICP:
		res, err := icp.ComputePoseColoredICP(m.moved, r.source.Colors, r.target.Points, r.target.Normals,
			r.target.Colors, r.target.ColorGradients, m.corr, r.cfg.Kernel, r.cfg.LambdaGeometric, r.opts...)
		if err != nil {
			return linsys.Transform{}, err
		}
		return res.Transform, nil
	default:
		res, err := icp.ComputePosePointToPlane(m.moved, r.target.Points, r.target.Normals, m.corr, dtype, r.cfg.Kernel, r.opts...)
		if err != nil {
			return linsys.Transform{}, err
		}
		return res.Transform, nil
	}
}

// Evaluate reports the fitness and inlier RMSE of source moved by tf
// against target, without iterating.
func Evaluate(source, target PointCloud, tf linsys.Transform, maxDistance float64, opts ...reg.Option) (Result, error) {
	if source.Points == nil {
		return Result{}, fmt.Errorf("%w: source needs points", reg.ErrInvalidArgument)
	}
	index, err := nns.NewIndex(target.Points)
	if err != nil {
		return Result{}, err
	}
	r := &run{cfg: Config{MaxCorrespondenceDistance: maxDistance}, source: source, target: target, index: index, opts: opts}
	m, err := r.match(tf)
	if err != nil {
		return Result{}, err
	}
	return Result{Transform: tf, Fitness: m.fitness, InlierRMSE: m.rmse}, nil
}
