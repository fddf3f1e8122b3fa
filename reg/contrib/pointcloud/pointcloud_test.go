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
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/nns"
	"github.com/ajroetker/go-registration/reg/contrib/workerpool"
)

// gridPlane returns an n x n grid with spacing h on the plane
// z = a·x + b·y + c.
func gridPlane(n int, h, a, b, c float64) []float64 {
	pts := make([]float64, 0, 3*n*n)
	for i := range n {
		for j := range n {
			x, y := float64(i)*h, float64(j)*h
			pts = append(pts, x, y, a*x+b*y+c)
		}
	}
	return pts
}

func constantNormals(n int, nx, ny, nz float64) []float64 {
	out := make([]float64, 3*n)
	for i := range n {
		out[3*i], out[3*i+1], out[3*i+2] = nx, ny, nz
	}
	return out
}

func TestCovarianceIsolatedPointsIdentity(t *testing.T) {
	pts := reg.FromSlice([]float64{0, 0, 0, 10, 0, 0, 0, 10, 0}, 3, 3)
	cov, err := EstimatePointWiseCovariance(pts, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3}, cov.Shape())
	data := reg.MustData[float64](cov)
	for i := range 3 {
		assert.Equal(t, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, data[9*i:9*i+9])
	}
}

func TestCovarianceTwoNeighborsIdentity(t *testing.T) {
	pts := reg.FromSlice([]float32{0, 0, 0, 0.1, 0, 0}, 2, 3)
	cov, err := EstimatePointWiseCovariance(pts, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, reg.Float32, cov.Dtype())
	assert.Equal(t, []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, reg.MustData[float32](cov)[:9])
}

func TestCovarianceMatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	const n = 40
	raw := make([]float64, 3*n)
	for i := range raw {
		raw[i] = rng.NormFloat64() * float64(1+i%3)
	}
	pts := reg.FromSlice(raw, n, 3)

	// A radius covering everything makes every neighbourhood the whole cloud.
	cov, err := EstimatePointWiseCovariance(pts, 1e3, n)
	require.NoError(t, err)

	var want mat.SymDense
	stat.CovarianceMatrix(&want, mat.NewDense(n, 3, raw), nil)
	scale := float64(n-1) / float64(n)

	got := reg.MustData[float64](cov)
	for i := range n {
		for a := range 3 {
			for b := range 3 {
				assert.InDelta(t, want.At(a, b)*scale, got[9*i+3*a+b], 1e-9)
			}
		}
	}
}

func TestComputeCovarianceRejectsBadNeighbors(t *testing.T) {
	pts := reg.FromSlice([]float64{0, 0, 0, 1, 1, 1}, 2, 3)

	_, err := ComputeCovariance(pts, nns.Result{Indices: []int64{0}, Counts: []int64{1}, MaxNN: 1})
	assert.ErrorIs(t, err, reg.ErrShapeMismatch)

	bad := nns.Result{Indices: []int64{0, 5}, Counts: []int64{1, 1}, MaxNN: 1}
	_, err = ComputeCovariance(pts, bad)
	assert.ErrorIs(t, err, reg.ErrCorrespondenceRange)

	over := nns.Result{Indices: []int64{0, 1}, Counts: []int64{2, 1}, MaxNN: 1}
	_, err = ComputeCovariance(pts, over)
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)
}

func TestColorGradientTwoNeighborsIsZero(t *testing.T) {
	pts := reg.FromSlice([]float64{0, 0, 0, 0.1, 0, 0}, 2, 3)
	nrm := reg.FromSlice(constantNormals(2, 0, 0, 1), 2, 3)
	col := reg.FromSlice([]float64{0, 0, 0, 1, 1, 1}, 2, 3)

	g, err := EstimatePointWiseColorGradient(pts, nrm, col, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, reg.MustData[float64](g))
}

func TestColorGradientConstantColor(t *testing.T) {
	const side = 8
	n := side * side
	pts := gridPlane(side, 0.1, 0, 0, 0)
	col := make([]float64, 3*n)
	for i := range col {
		col[i] = 0.4
	}

	for _, maxNN := range []int{4, 9, 30} {
		g, err := EstimatePointWiseColorGradient(
			reg.FromSlice(pts, n, 3), reg.FromSlice(constantNormals(n, 0, 0, 1), n, 3), reg.FromSlice(col, n, 3), 0.25, maxNN)
		require.NoError(t, err)
		for i, v := range reg.MustData[float64](g) {
			assert.InDelta(t, 0, v, 1e-9, "max_nn %d component %d", maxNN, i)
		}
	}
}

func TestColorGradientLinearIntensity(t *testing.T) {
	const side = 10
	n := side * side
	// Tilted plane z = 0.5x so the gradient must lie in a non-axis plane.
	pts := gridPlane(side, 0.05, 0.5, 0, 0)
	nx, nz := -0.5/math.Sqrt(1.25), 1/math.Sqrt(1.25)
	nrm := constantNormals(n, nx, 0, nz)

	// Intensity varies along the in-plane direction (1, 0, 0.5) and along y.
	grad := [3]float64{0.8, -0.6, 0.4}
	col := make([]float64, 3*n)
	for i := range n {
		v := grad[0]*pts[3*i] + grad[1]*pts[3*i+1] + grad[2]*pts[3*i+2]
		col[3*i], col[3*i+1], col[3*i+2] = v, v, v
	}
	// The recoverable gradient is the tangential part.
	dn := grad[0]*nx + grad[2]*nz
	want := []float64{grad[0] - dn*nx, grad[1], grad[2] - dn*nz}

	g, err := EstimatePointWiseColorGradient(reg.FromSlice(pts, n, 3), reg.FromSlice(nrm, n, 3), reg.FromSlice(col, n, 3), 0.12, 20)
	require.NoError(t, err)
	data := reg.MustData[float64](g)
	for i := range n {
		r, c := i/side, i%side
		if r == 0 || c == 0 || r == side-1 || c == side-1 {
			// Border neighbourhoods are lopsided, so the weighted normal row
			// dominates the spectrum and four Jacobi sweeps stop short.
			assert.InDeltaSlice(t, want, data[3*i:3*i+3], 0.2, "border point %d", i)
			continue
		}
		assert.InDeltaSlice(t, want, data[3*i:3*i+3], 1e-9, "point %d", i)
	}
}

func TestColorGradientFloat32(t *testing.T) {
	const side = 6
	n := side * side
	pts64 := gridPlane(side, 0.1, 0, 0, 0)
	pts := make([]float32, len(pts64))
	col := make([]float32, len(pts64))
	for i := range n {
		pts[3*i], pts[3*i+1], pts[3*i+2] = float32(pts64[3*i]), float32(pts64[3*i+1]), 0
		v := float32(2 * pts64[3*i])
		col[3*i], col[3*i+1], col[3*i+2] = v, v, v
	}
	nrm := make([]float32, 3*n)
	for i := range n {
		nrm[3*i+2] = 1
	}

	g, err := EstimatePointWiseColorGradient(reg.FromSlice(pts, n, 3), reg.FromSlice(nrm, n, 3), reg.FromSlice(col, n, 3), 0.25, 12)
	require.NoError(t, err)
	data := reg.MustData[float32](g)
	for i := range n {
		assert.InDeltaSlice(t, []float32{2, 0, 0}, data[3*i:3*i+3], 1e-3, "point %d", i)
	}
}

func TestColorGradientIndependentOfPoolSize(t *testing.T) {
	const side = 9
	n := side * side
	rng := rand.New(rand.NewPCG(13, 14))
	pts := gridPlane(side, 0.05, 0.2, -0.1, 0)
	col := make([]float64, 3*n)
	for i := range col {
		col[i] = rng.Float64()
	}
	ptsT := reg.FromSlice(pts, n, 3)
	nrmT := reg.FromSlice(constantNormals(n, 0, 0, 1), n, 3)
	colT := reg.FromSlice(col, n, 3)

	serial := workerpool.New(1)
	defer serial.Close()
	wide := workerpool.New(4)
	defer wide.Close()

	want, err := EstimatePointWiseColorGradient(ptsT, nrmT, colT, 0.12, 16, reg.WithPool(serial))
	require.NoError(t, err)
	got, err := EstimatePointWiseColorGradient(ptsT, nrmT, colT, 0.12, 16, reg.WithPool(wide))
	require.NoError(t, err)
	assert.Equal(t, reg.MustData[float64](want), reg.MustData[float64](got))
}

func TestEstimateNormalsOnPlane(t *testing.T) {
	const side = 12
	n := side * side
	pts := reg.FromSlice(gridPlane(side, 0.05, 0.3, -0.2, 1), n, 3)

	nrm, err := EstimateNormals(pts, 0.12, 16)
	require.NoError(t, err)

	l := math.Sqrt(0.09 + 0.04 + 1)
	want := []float64{-0.3 / l, 0.2 / l, 1 / l}
	data := reg.MustData[float64](nrm)
	for i := range n {
		assert.InDeltaSlice(t, want, data[3*i:3*i+3], 1e-6, "point %d", i)
	}
}

func TestEstimateNormalsSparseFallback(t *testing.T) {
	pts := reg.FromSlice([]float32{0, 0, 0, 5, 5, 5}, 2, 3)
	nrm, err := EstimateNormals(pts, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 1}, reg.MustData[float32](nrm))
}

func TestEstimatorPreconditions(t *testing.T) {
	pts := reg.FromSlice(make([]float64, 6), 2, 3)

	_, err := EstimatePointWiseColorGradient(pts, reg.FromSlice(make([]float32, 6), 2, 3), pts, 1, 4)
	assert.ErrorIs(t, err, reg.ErrDtypeMismatch)

	_, err = EstimatePointWiseColorGradient(pts, reg.FromSlice(make([]float64, 3), 1, 3), pts, 1, 4)
	assert.ErrorIs(t, err, reg.ErrShapeMismatch)

	_, err = EstimatePointWiseCovariance(reg.FromSlice(make([]int64, 6), 2, 3), 1, 4)
	assert.ErrorIs(t, err, reg.ErrUnsupportedDtype)

	_, err = EstimatePointWiseCovariance(pts.To(reg.Device{Type: reg.CUDA}), 1, 4)
	assert.ErrorIs(t, err, reg.ErrUnsupportedDevice)

	_, err = EstimatePointWiseCovariance(reg.FromSlice(make([]float64, 0), 0, 3), 1, 4)
	assert.ErrorIs(t, err, reg.ErrIndexNotBuilt)

	_, err = EstimatePointWiseCovariance(pts, -1, 4)
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)
}

func projectFixture() (intrinsics, extrinsics *reg.Tensor) {
	intrinsics = reg.FromSlice([]float64{10, 0, 2, 0, 10, 2, 0, 0, 1}, 3, 3)
	extrinsics, _ = reg.Eye(4, reg.Float64)
	return
}

func TestProjectClosestWins(t *testing.T) {
	k, e := projectFixture()
	depth := reg.FromSlice(make([]float32, 25), 5, 5)
	image := reg.FromSlice(make([]uint8, 75), 5, 5, 3)

	// Points 0-2 hit the principal pixel (2,2) at depths 3, 1 and 2.
	// Point 3 hits (3,2). Point 4 is behind the camera, point 5 beyond
	// depthMax and point 6 off the image.
	pts := reg.FromSlice([]float64{
		0, 0, 3,
		0, 0, 1,
		0, 0, 2,
		0.2, 0, 2,
		0, 0, -1,
		0, 0, 50,
		10, 0, 1,
	}, 7, 3)
	colors := reg.FromSlice([]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
	}, 7, 3)

	require.NoError(t, Project(depth, image, pts, colors, k, e, 1000, 10))

	d := reg.MustData[float32](depth)
	img := reg.MustData[uint8](image)
	assert.Equal(t, float32(1000), d[2*5+2])
	assert.Equal(t, []uint8{0, 255, 0}, img[3*(2*5+2):3*(2*5+2)+3])
	assert.Equal(t, float32(2000), d[2*5+3])
	assert.Equal(t, []uint8{255, 255, 255}, img[3*(2*5+3):3*(2*5+3)+3])

	nonzero := 0
	for _, v := range d {
		if v != 0 {
			nonzero++
		}
	}
	assert.Equal(t, 2, nonzero)
}

func TestProjectKeepsExistingCloserDepth(t *testing.T) {
	k, e := projectFixture()
	depthData := make([]float32, 25)
	depthData[12] = 0.5
	depth := reg.FromSlice(depthData, 5, 5)

	pts := reg.FromSlice([]float32{0, 0, 1}, 1, 3)
	require.NoError(t, Project(depth, nil, pts, nil, k, e, 1, 10))
	assert.Equal(t, float32(0.5), reg.MustData[float32](depth)[12])

	// An equal depth overwrites.
	depthData[12] = 1
	require.NoError(t, Project(depth, nil, reg.FromSlice([]float32{0, 0, 1}, 1, 3), nil, k, e, 1, 10))
	assert.Equal(t, float32(1), depthData[12])
}

func TestProjectExtrinsics(t *testing.T) {
	k, _ := projectFixture()
	// Camera one unit behind the origin: world z=1 lands at camera z=2.
	e := reg.FromSlice([]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 1,
		0, 0, 0, 1,
	}, 4, 4)
	depth := reg.FromSlice(make([]float32, 25), 5, 5)
	require.NoError(t, Project(depth, nil, reg.FromSlice([]float64{0, 0, 1}, 1, 3), nil, k, e, 1, 10))
	assert.Equal(t, float32(2), reg.MustData[float32](depth)[12])
}

func TestProjectPreconditions(t *testing.T) {
	k, e := projectFixture()
	pts := reg.FromSlice([]float64{0, 0, 1}, 1, 3)

	err := Project(reg.FromSlice(make([]float64, 25), 5, 5), nil, pts, nil, k, e, 1, 10)
	assert.ErrorIs(t, err, reg.ErrDtypeMismatch)

	depth := reg.FromSlice(make([]float32, 25), 5, 5)
	err = Project(depth, reg.FromSlice(make([]uint8, 48), 4, 4, 3), pts, pts, k, e, 1, 10)
	assert.ErrorIs(t, err, reg.ErrShapeMismatch)

	err = Project(depth, nil, pts, nil, reg.FromSlice(make([]float64, 4), 2, 2), e, 1, 10)
	assert.ErrorIs(t, err, reg.ErrShapeMismatch)

	err = Project(depth, nil, pts, nil, k, e, 0, 10)
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)
}
