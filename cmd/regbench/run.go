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

package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/registration"
)

type runFlags struct {
	config string
	points int
	seed   uint64
	noise  float64
	dtype  string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Register a perturbed synthetic surface back onto itself",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := registration.DefaultConfig()
			if f.config != "" {
				var err error
				if cfg, err = registration.LoadConfig(f.config); err != nil {
					return err
				}
			}
			log, err := cfg.Logger()
			if err != nil {
				return err
			}
			_, err = runBench(f, cfg, log)
			return err
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "YAML configuration file (default: built-in defaults)")
	cmd.Flags().IntVar(&f.points, "points", 2000, "number of surface samples")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "random seed for the surface and the motion")
	cmd.Flags().Float64Var(&f.noise, "noise", 0, "standard deviation of Gaussian noise added to the source")
	cmd.Flags().StringVar(&f.dtype, "dtype", "float64", "element type: float32 or float64")
	return cmd
}

// benchResult is what one run measured.
type benchResult struct {
	truth    linsys.Transform
	result   registration.Result
	rotErr   float64
	transErr float64
	elapsed  time.Duration
}

func runBench(f runFlags, cfg registration.Config, log *reg.Logger) (benchResult, error) {
	if f.points <= 0 {
		return benchResult{}, fmt.Errorf("%w: --points %d", reg.ErrInvalidArgument, f.points)
	}
	dtype, err := reg.ParseDtype(f.dtype)
	if err != nil {
		return benchResult{}, err
	}
	if err := reg.CheckFloat(dtype); err != nil {
		return benchResult{}, err
	}

	rng := rand.New(rand.NewPCG(f.seed, f.seed^0x9e3779b97f4a7c15))
	pts, col := synthSurface(rng, f.points)
	truth := randomMotion(rng)
	src := moved(pts, truth.Inverse())
	for i := range src {
		src[i] += f.noise * rng.NormFloat64()
	}

	n := f.points
	target := registration.PointCloud{Points: tensor(pts, n, dtype), Colors: tensor(col, n, dtype)}
	source := registration.PointCloud{Points: tensor(src, n, dtype), Colors: tensor(col, n, dtype)}

	log.Info("registering", "method", cfg.Method.String(), "points", n, "seed", f.seed, "dtype", dtype.String(),
		"kernel", cfg.Kernel.String())
	start := time.Now()
	res, err := registration.ICP(source, target, linsys.Identity(), cfg, reg.WithLogger(log))
	if err != nil {
		return benchResult{}, err
	}
	out := benchResult{truth: truth, result: res, elapsed: time.Since(start)}
	out.rotErr, out.transErr = motionError(truth, res.Transform)

	log.Info("registration finished",
		"iterations", res.Iterations,
		"converged", res.Converged,
		"fitness", res.Fitness,
		"inlier_rmse", res.InlierRMSE,
		"pose", linsys.TransformationToPose(res.Transform),
		"true_pose", linsys.TransformationToPose(truth),
		"rotation_error_rad", out.rotErr,
		"translation_error", out.transErr,
		"elapsed", out.elapsed,
	)
	return out, nil
}

// synthSurface samples n points of a smooth height field over [-1, 1]²
// with a color pattern that varies along both axes.
func synthSurface(rng *rand.Rand, n int) (points, colors []float64) {
	points = make([]float64, 3*n)
	colors = make([]float64, 3*n)
	for i := range n {
		x, y := 2*rng.Float64()-1, 2*rng.Float64()-1
		points[3*i] = x
		points[3*i+1] = y
		points[3*i+2] = 0.25*math.Sin(2*x)*math.Cos(1.5*y) + 0.1*x*y
		colors[3*i] = 0.5 + 0.4*math.Sin(3*x)
		colors[3*i+1] = 0.5 + 0.4*math.Cos(3*y)
		colors[3*i+2] = 0.5 + 0.2*math.Sin(2*(x+y))
	}
	return points, colors
}

// randomMotion draws angles within ±0.03 rad and offsets within ±0.02.
func randomMotion(rng *rand.Rand) linsys.Transform {
	var pose [6]float64
	for i := range 3 {
		pose[i] = 0.06 * (rng.Float64() - 0.5)
		pose[3+i] = 0.04 * (rng.Float64() - 0.5)
	}
	return linsys.PoseToTransformation(pose)
}

func moved(pts []float64, tf linsys.Transform) []float64 {
	out := make([]float64, len(pts))
	copy(out, pts)
	t, err := linsys.TransformPoints(reg.FromSlice(out, len(pts)/3, 3), tf)
	if err != nil {
		panic(err)
	}
	return reg.MustData[float64](t)
}

func tensor(v []float64, n int, dtype reg.Dtype) *reg.Tensor {
	if dtype == reg.Float32 {
		f := make([]float32, len(v))
		for i, x := range v {
			f[i] = float32(x)
		}
		return reg.FromSlice(f, n, 3)
	}
	return reg.FromSlice(append([]float64(nil), v...), n, 3)
}

// motionError returns the rotation angle and translation distance between
// two motions.
func motionError(want, got linsys.Transform) (rot, trans float64) {
	d := got.Compose(want.Inverse())
	c := (d.R[0] + d.R[4] + d.R[8] - 1) / 2
	rot = math.Acos(math.Max(-1, math.Min(1, c)))
	trans = got.T.Sub(want.T).Norm()
	return rot, trans
}
