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

package linsys

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/svd3x3"
)

// Transform is a rigid motion p -> R·p + T with R row-major.
type Transform struct {
	R [9]float64
	T r3.Vector
}

// Identity returns the identity motion.
func Identity() Transform {
	return Transform{R: svd3x3.Identity[float64]()}
}

// PoseToTransformation converts (α, β, γ, tx, ty, tz) to a rigid motion with
// R = Rz(γ)·Ry(β)·Rx(α).
func PoseToTransformation(pose [6]float64) Transform {
	sa, ca := math.Sincos(pose[0])
	sb, cb := math.Sincos(pose[1])
	sg, cg := math.Sincos(pose[2])
	return Transform{
		R: [9]float64{
			cg * cb, -sg*ca + cg*sb*sa, sg*sa + cg*sb*ca,
			sg * cb, cg*ca + sg*sb*sa, -cg*sa + sg*sb*ca,
			-sb, cb * sa, cb * ca,
		},
		T: r3.Vector{X: pose[3], Y: pose[4], Z: pose[5]},
	}
}

// TransformationToPose is the inverse of PoseToTransformation for
// β in (-π/2, π/2). At gimbal lock γ is reported as zero.
func TransformationToPose(tf Transform) [6]float64 {
	r := &tf.R
	sy := math.Hypot(r[0], r[3])
	var pose [6]float64
	if sy > 1e-6 {
		pose[0] = math.Atan2(r[7], r[8])
		pose[1] = math.Atan2(-r[6], sy)
		pose[2] = math.Atan2(r[3], r[0])
	} else {
		pose[0] = math.Atan2(-r[5], r[4])
		pose[1] = math.Atan2(-r[6], sy)
	}
	pose[3], pose[4], pose[5] = tf.T.X, tf.T.Y, tf.T.Z
	return pose
}

// Apply maps p through the motion.
func (tf Transform) Apply(p r3.Vector) r3.Vector {
	r := &tf.R
	return r3.Vector{
		X: r[0]*p.X + r[1]*p.Y + r[2]*p.Z + tf.T.X,
		Y: r[3]*p.X + r[4]*p.Y + r[5]*p.Z + tf.T.Y,
		Z: r[6]*p.X + r[7]*p.Y + r[8]*p.Z + tf.T.Z,
	}
}

// Rotate applies only the rotational part, for directions such as normals.
func (tf Transform) Rotate(v r3.Vector) r3.Vector {
	return tf.Apply(v).Sub(tf.T)
}

// Compose returns the motion that applies other first and then tf.
func (tf Transform) Compose(other Transform) Transform {
	return Transform{
		R: svd3x3.MulAB(tf.R, other.R),
		T: tf.Apply(other.T),
	}
}

// Inverse returns the inverse motion.
func (tf Transform) Inverse() Transform {
	rt := svd3x3.Transpose(tf.R)
	inv := Transform{R: rt}
	inv.T = inv.Apply(tf.T).Mul(-1)
	return inv
}

// Matrix4 returns the homogeneous row-major 4x4 matrix.
func (tf Transform) Matrix4() [16]float64 {
	r := &tf.R
	return [16]float64{
		r[0], r[1], r[2], tf.T.X,
		r[3], r[4], r[5], tf.T.Y,
		r[6], r[7], r[8], tf.T.Z,
		0, 0, 0, 1,
	}
}

// FromMatrix4 reads the rotation and translation blocks of a homogeneous
// row-major 4x4 matrix. The bottom row is ignored.
func FromMatrix4(m [16]float64) Transform {
	return Transform{
		R: [9]float64{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]},
		T: r3.Vector{X: m[3], Y: m[7], Z: m[11]},
	}
}

// Tensor returns the 4x4 matrix as a tensor of the given float dtype.
func (tf Transform) Tensor(dtype reg.Dtype) (*reg.Tensor, error) {
	m := tf.Matrix4()
	switch dtype {
	case reg.Float64:
		return reg.FromSlice(m[:], 4, 4), nil
	case reg.Float32:
		out := make([]float32, 16)
		for i, v := range m {
			out[i] = float32(v)
		}
		return reg.FromSlice(out, 4, 4), nil
	}
	return nil, fmt.Errorf("%w: %s", reg.ErrUnsupportedDtype, dtype)
}

// TransformFromTensor reads a {4,4} float tensor.
func TransformFromTensor(t *reg.Tensor) (Transform, error) {
	if err := reg.CheckShape(reg.A("transformation", t), 4, 4); err != nil {
		return Transform{}, err
	}
	data, err := reg.AsFloat64(t)
	if err != nil {
		return Transform{}, err
	}
	var m [16]float64
	copy(m[:], data)
	return FromMatrix4(m), nil
}

// TransformPoints returns a new {N,3} tensor of points mapped through tf,
// with the same dtype as points.
func TransformPoints(points *reg.Tensor, tf Transform) (*reg.Tensor, error) {
	if err := reg.CheckShape(reg.A("points", points), -1, 3); err != nil {
		return nil, err
	}
	switch points.Dtype() {
	case reg.Float32:
		return reg.FromSlice(transformPoints(reg.MustData[float32](points), tf), points.Shape()...), nil
	case reg.Float64:
		return reg.FromSlice(transformPoints(reg.MustData[float64](points), tf), points.Shape()...), nil
	}
	return nil, fmt.Errorf("%w: %s", reg.ErrUnsupportedDtype, points.Dtype())
}

func transformPoints[T float32 | float64](src []T, tf Transform) []T {
	dst := make([]T, len(src))
	for i := 0; i < len(src); i += 3 {
		p := tf.Apply(r3.Vector{X: float64(src[i]), Y: float64(src[i+1]), Z: float64(src[i+2])})
		dst[i], dst[i+1], dst[i+2] = T(p.X), T(p.Y), T(p.Z)
	}
	return dst
}
