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
	"math"

	"github.com/golang/geo/r3"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
)

// Intrinsics is a pinhole camera model.
type Intrinsics struct {
	Fx, Fy, Cx, Cy float64
}

// IntrinsicsFromTensor reads fx, fy, cx, cy from a {3,3} float camera
// matrix.
func IntrinsicsFromTensor(k *reg.Tensor) (Intrinsics, error) {
	if err := reg.CheckShape(reg.A("intrinsics", k), 3, 3); err != nil {
		return Intrinsics{}, err
	}
	m, err := reg.AsFloat64(k)
	if err != nil {
		return Intrinsics{}, err
	}
	return Intrinsics{Fx: m[0], Fy: m[4], Cx: m[2], Cy: m[5]}, nil
}

// Project renders points into depth, a Float32 {H,W} image, keeping the
// closest point per pixel. A pixel is overwritten when it is empty (0) or
// its depth is not closer than the new point. Depth values are camera z
// times depthScale; points behind the camera or beyond depthMax are
// skipped.
//
// When image is non-nil it must be a UInt8 {H,W,3} image and colors a
// {N,3} tensor of the points dtype with channels in [0, 1]; the color of
// every written point is stored alongside its depth.
func Project(depth, image, points, colors, intrinsics, extrinsics *reg.Tensor, depthScale, depthMax float64, opts ...reg.Option) error {
	var attrs []reg.Arg
	if image != nil {
		attrs = append(attrs, reg.A("colors", colors))
	}
	if err := checkCloud(points, attrs...); err != nil {
		return err
	}
	if err := reg.CheckDevice(reg.A("points", points), reg.A("depth", depth)); err != nil {
		return err
	}
	if err := reg.CheckDtype(reg.Float32, reg.A("depth", depth)); err != nil {
		return err
	}
	if err := reg.CheckShape(reg.A("depth", depth), -1, -1); err != nil {
		return err
	}
	shape := depth.Shape()
	h, w := shape[0], shape[1]
	if image != nil {
		if err := reg.CheckDtype(reg.UInt8, reg.A("image", image)); err != nil {
			return err
		}
		if err := reg.CheckShape(reg.A("image", image), h, w, 3); err != nil {
			return err
		}
	}
	cam, err := IntrinsicsFromTensor(intrinsics)
	if err != nil {
		return err
	}
	ext, err := linsys.TransformFromTensor(extrinsics)
	if err != nil {
		return err
	}
	if !(depthScale > 0) || !(depthMax > 0) {
		return fmt.Errorf("%w: depth scale %g, depth max %g", reg.ErrInvalidArgument, depthScale, depthMax)
	}

	o := reg.ApplyOptions(opts...)
	n := points.Length()
	pts, err := reg.AsFloat64(points)
	if err != nil {
		return err
	}

	// Pass 1: pixel and depth per point, independent across points.
	pixel := make([]int, n)
	value := make([]float32, n)
	o.Pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			pc := ext.Apply(r3.Vector{X: pts[3*i], Y: pts[3*i+1], Z: pts[3*i+2]})
			pixel[i] = -1
			if pc.Z <= 0 || pc.Z > depthMax {
				continue
			}
			u := cam.Fx*pc.X/pc.Z + cam.Cx
			v := cam.Fy*pc.Y/pc.Z + cam.Cy
			if !(u >= 0 && v >= 0 && u <= float64(w-1) && v <= float64(h-1)) {
				continue
			}
			pixel[i] = int(v)*w + int(u)
			value[i] = float32(pc.Z * depthScale)
		}
	})

	// Pass 2: ordered scatter, closest wins.
	dst := reg.MustData[float32](depth)
	var img []uint8
	var rgb []float64
	if image != nil {
		img = reg.MustData[uint8](image)
		if rgb, err = reg.AsFloat64(colors); err != nil {
			return err
		}
	}
	written := 0
	for i, p := range pixel {
		if p < 0 {
			continue
		}
		if cur := dst[p]; cur != 0 && cur < value[i] {
			continue
		}
		dst[p] = value[i]
		written++
		if img != nil {
			for c := range 3 {
				img[3*p+c] = toByte(rgb[3*i+c])
			}
		}
	}
	o.Logger.WithOp("project").WithCount(n).Debug("projected points", "written", written, "width", w, "height", h)
	return nil
}

func toByte(c float64) uint8 {
	return uint8(math.Max(0, math.Min(255, c*255)))
}
