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

// Package reg provides the dense-array storage, element-type constraints and
// shared plumbing (dispatch, logging, call options, precondition checks) used
// by the registration kernels under reg/contrib.
//
// The kernels themselves live in contrib packages:
//
//	svd3x3       closed-form 3x3 SVD and small least-squares solves
//	linsys       the 29-slot normal-equation accumulator and 6x6 decode
//	robust       robust-kernel weighting functions
//	icp          point-to-plane, colored and point-to-point evaluators
//	pointcloud   point-wise covariance, color gradient, normals, projection
//	nns          kd-tree neighbour search
//	registration ICP driver and its YAML configuration
//	workerpool   parallel-for and ordered reductions
//
// Basic usage:
//
//	src := reg.FromSlice(srcXYZ, n, 3)
//	tgt := reg.FromSlice(tgtXYZ, m, 3)
//	corr := reg.FromSlice(matches, n)
//	res, err := icp.ComputeRtPointToPoint(src, tgt, corr, reg.Float64)
package reg

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// Floats is a constraint for floating-point element types.
type Floats interface {
	~float32 | ~float64
}

// Elements is a constraint for every element type a Tensor can hold.
type Elements interface {
	~float32 | ~float64 | ~int64 | ~uint8
}

// Dtype identifies the element type of a Tensor.
type Dtype int

const (
	// Undefined is the zero Dtype.
	Undefined Dtype = iota
	Float32
	Float64
	Int64
	UInt8
)

// String returns the lower-case name of the dtype.
func (d Dtype) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	default:
		return "undefined"
	}
}

// ByteSize returns the size of one element in bytes.
func (d Dtype) ByteSize() int {
	switch d {
	case Float32:
		return 4
	case Float64, Int64:
		return 8
	case UInt8:
		return 1
	default:
		return 0
	}
}

// IsFloat reports whether d is Float32 or Float64.
func (d Dtype) IsFloat() bool {
	return d == Float32 || d == Float64
}

// ParseDtype parses "float32", "float64", "int64" or "uint8".
func ParseDtype(s string) (Dtype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "f32":
		return Float32, nil
	case "float64", "f64":
		return Float64, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return UInt8, nil
	}
	return Undefined, fmt.Errorf("%w: %q", ErrUnsupportedDtype, s)
}

// DtypeOf returns the Dtype matching the element type E.
func DtypeOf[E Elements]() Dtype {
	var zero E
	switch unsafe.Sizeof(zero) {
	case 1:
		return UInt8
	case 4:
		return Float32
	}
	// 8-byte types: integers truncate 1/2 to zero.
	var half E = 1
	half /= 2
	if half == 0 {
		return Int64
	}
	return Float64
}

// DeviceType is the kind of compute device a tensor lives on.
type DeviceType int

const (
	CPU DeviceType = iota
	CUDA
)

// Device names a compute device, e.g. CPU:0.
type Device struct {
	Type DeviceType
	ID   int
}

// DefaultDevice is CPU:0, the only device the kernels execute on.
var DefaultDevice = Device{Type: CPU}

// String returns the device in "TYPE:ID" form.
func (d Device) String() string {
	switch d.Type {
	case CPU:
		return "CPU:" + strconv.Itoa(d.ID)
	case CUDA:
		return "CUDA:" + strconv.Itoa(d.ID)
	default:
		return "Unknown:" + strconv.Itoa(d.ID)
	}
}

// ParseDevice parses "CPU:0" or "CUDA:1". A missing ID means 0.
func ParseDevice(s string) (Device, error) {
	name, id, _ := strings.Cut(strings.TrimSpace(s), ":")
	var d Device
	switch strings.ToUpper(name) {
	case "CPU":
		d.Type = CPU
	case "CUDA":
		d.Type = CUDA
	default:
		return Device{}, fmt.Errorf("%w: unknown device %q", ErrInvalidArgument, s)
	}
	if id != "" {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			return Device{}, fmt.Errorf("%w: bad device id in %q", ErrInvalidArgument, s)
		}
		d.ID = n
	}
	return d, nil
}
