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
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/robust"
)

// surface samples a 15x15 grid with 0.1 spacing, centred on the origin, of
// a gently curved height field with a smooth color pattern.
func surface() (points, colors []float64) {
	const side = 15
	for i := range side {
		for j := range side {
			x := 0.1 * float64(i-side/2)
			y := 0.1 * float64(j-side/2)
			z := 0.3 * math.Sin(2.5*x) * math.Cos(2*y)
			points = append(points, x, y, z)
			colors = append(colors, 0.5+0.3*math.Sin(3*x), 0.5+0.2*math.Cos(2*y), 0.4+0.2*x*y)
		}
	}
	return points, colors
}

func moveSlice(pts []float64, tf linsys.Transform) []float64 {
	out := make([]float64, len(pts))
	for i := 0; i < len(pts); i += 3 {
		p := tf.Apply(r3.Vector{X: pts[i], Y: pts[i+1], Z: pts[i+2]})
		out[i], out[i+1], out[i+2] = p.X, p.Y, p.Z
	}
	return out
}

func toF32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// motion is small enough that every source point starts nearest to its
// own target point.
var motion = linsys.PoseToTransformation([6]float64{0.01, -0.015, 0.02, 0.01, -0.005, 0.008})

// pair returns a target surface and a source that motion maps onto it.
func pair() (source, target PointCloud) {
	pts, col := surface()
	n := len(pts) / 3
	target = PointCloud{Points: reg.FromSlice(pts, n, 3), Colors: reg.FromSlice(col, n, 3)}
	source = PointCloud{
		Points: reg.FromSlice(moveSlice(pts, motion.Inverse()), n, 3),
		Colors: reg.FromSlice(append([]float64(nil), col...), n, 3),
	}
	return source, target
}

func testConfig(m Method) Config {
	cfg := DefaultConfig()
	cfg.Method = m
	cfg.MaxCorrespondenceDistance = 0.2
	cfg.Criteria = Criteria{MaxIterations: 50, RelativeFitness: 1e-10, RelativeRMSE: 1e-10}
	cfg.Normals = NormalsConfig{Radius: 0.25, MaxNN: 30}
	return cfg
}

func assertTransformNear(t *testing.T, want, got linsys.Transform, tol float64) {
	t.Helper()
	assert.InDeltaSlice(t, want.R[:], got.R[:], tol)
	assert.InDelta(t, 0, want.T.Sub(got.T).Norm(), tol)
}

func TestICPRecoversMotion(t *testing.T) {
	tests := []struct {
		method Method
		tol    float64
	}{
		{PointToPoint, 1e-6},
		{PointToPlane, 1e-5},
		{ColoredICP, 1e-4},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			source, target := pair()
			res, err := ICP(source, target, linsys.Identity(), testConfig(tt.method))
			require.NoError(t, err)

			assert.True(t, res.Converged)
			assert.GreaterOrEqual(t, res.Iterations, 1)
			assert.Equal(t, 1.0, res.Fitness)
			assert.Less(t, res.InlierRMSE, 1e-4)
			assertTransformNear(t, motion, res.Transform, tt.tol)
		})
	}
}

func TestICPFromInitialGuess(t *testing.T) {
	source, target := pair()
	// Starting at the answer needs no more than a confirming step.
	res, err := ICP(source, target, motion, testConfig(PointToPlane))
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.Iterations, 2)
	assertTransformNear(t, motion, res.Transform, 1e-6)
}

func TestICPFloat32(t *testing.T) {
	pts, _ := surface()
	n := len(pts) / 3
	target := PointCloud{Points: reg.FromSlice(toF32(pts), n, 3)}
	source := PointCloud{Points: reg.FromSlice(toF32(moveSlice(pts, motion.Inverse())), n, 3)}

	cfg := testConfig(PointToPoint)
	cfg.Criteria = Criteria{MaxIterations: 20, RelativeFitness: 1e-6, RelativeRMSE: 1e-6}
	cfg.Workers = 3
	res, err := ICP(source, target, linsys.Identity(), cfg)
	require.NoError(t, err)
	assertTransformNear(t, motion, res.Transform, 1e-4)
}

func TestPrepareTarget(t *testing.T) {
	_, target := pair()
	cfg := testConfig(ColoredICP)

	got, err := prepareTarget(target, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, got.Normals)
	require.NotNil(t, got.ColorGradients)
	assert.Equal(t, []int{target.Len(), 3}, got.ColorGradients.Shape())

	// Attributes already present are used as given.
	kept, err := prepareTarget(got, cfg, nil)
	require.NoError(t, err)
	assert.Same(t, got.Normals, kept.Normals)
	assert.Same(t, got.ColorGradients, kept.ColorGradients)

	// Point-to-point reads neither.
	plain, err := prepareTarget(target, testConfig(PointToPoint), nil)
	require.NoError(t, err)
	assert.Nil(t, plain.Normals)
}

func TestICPNoCorrespondences(t *testing.T) {
	source, target := pair()
	far := linsys.PoseToTransformation([6]float64{0, 0, 0, 10, 0, 0})

	var buf bytes.Buffer
	log := reg.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res, err := ICP(source, target, far, testConfig(PointToPlane), reg.WithLogger(log))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Iterations)
	assert.False(t, res.Converged)
	assert.Equal(t, 0.0, res.Fitness)
	assert.Equal(t, 0.0, res.InlierRMSE)
	assert.Equal(t, far, res.Transform)
	assert.Contains(t, buf.String(), `"op":"icp"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestICPRobustKernel(t *testing.T) {
	source, target := pair()
	// Pull a tenth of the source points well off the surface.
	pts := reg.MustData[float64](source.Points)
	for i := 0; i < source.Len(); i += 10 {
		pts[3*i+2] += 0.15
	}

	cfg := testConfig(PointToPlane)
	cfg.Kernel = robust.Kernel{Type: robust.TukeyLoss, Scale: 0.05}
	res, err := ICP(source, target, linsys.Identity(), cfg)
	require.NoError(t, err)
	assertTransformNear(t, motion, res.Transform, 1e-3)
}

func TestICPPreconditions(t *testing.T) {
	source, target := pair()

	bad := testConfig(PointToPlane)
	bad.MaxCorrespondenceDistance = 0
	_, err := ICP(source, target, linsys.Identity(), bad)
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)

	_, err = ICP(PointCloud{}, target, linsys.Identity(), testConfig(PointToPlane))
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)

	noColor := PointCloud{Points: source.Points}
	_, err = ICP(noColor, target, linsys.Identity(), testConfig(ColoredICP))
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)

	mixed := PointCloud{Points: reg.FromSlice(toF32(reg.MustData[float64](source.Points)), source.Len(), 3)}
	_, err = ICP(mixed, target, linsys.Identity(), testConfig(PointToPoint))
	assert.ErrorIs(t, err, reg.ErrDtypeMismatch)
}

func TestEvaluate(t *testing.T) {
	_, target := pair()

	res, err := Evaluate(target, target, linsys.Identity(), 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Fitness)
	assert.InDelta(t, 0, res.InlierRMSE, 1e-12)

	lift := linsys.PoseToTransformation([6]float64{0, 0, 0, 0, 0, 0.01})
	res, err = Evaluate(target, target, lift, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Fitness)
	assert.InDelta(t, 0.01, res.InlierRMSE, 1e-9)

	res, err = Evaluate(target, target, lift, 0.005)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)
}

func BenchmarkICPPointToPlane(b *testing.B) {
	source, target := pair()
	cfg := testConfig(PointToPlane)
	target, err := prepareTarget(target, cfg, nil)
	require.NoError(b, err)
	b.ResetTimer()
	for range b.N {
		if _, err := ICP(source, target, linsys.Identity(), cfg); err != nil {
			b.Fatal(err)
		}
	}
}
