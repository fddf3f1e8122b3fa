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

package reg

import "fmt"

// Arg pairs a tensor with the parameter name used in error messages.
type Arg struct {
	Name   string
	Tensor *Tensor
}

// A returns an Arg.
func A(name string, t *Tensor) Arg { return Arg{Name: name, Tensor: t} }

// CheckFloat verifies that dtype is Float32 or Float64.
func CheckFloat(dtype Dtype) error {
	if !dtype.IsFloat() {
		return fmt.Errorf("%w: %s (want float32 or float64)", ErrUnsupportedDtype, dtype)
	}
	return nil
}

// CheckDtype verifies that every argument has the expected dtype.
func CheckDtype(want Dtype, args ...Arg) error {
	for _, a := range args {
		if a.Tensor == nil {
			return fmt.Errorf("%w: %s is nil", ErrInvalidArgument, a.Name)
		}
		if a.Tensor.dtype != want {
			return &DtypeMismatchError{Arg: a.Name, Expected: want, Actual: a.Tensor.dtype}
		}
	}
	return nil
}

// CheckDevice verifies that every argument lives on the CPU device of the
// first argument. Tensors on any other device type are rejected with
// ErrUnsupportedDevice.
func CheckDevice(args ...Arg) error {
	if len(args) == 0 {
		return nil
	}
	first := args[0]
	for _, a := range args {
		if a.Tensor == nil {
			return fmt.Errorf("%w: %s is nil", ErrInvalidArgument, a.Name)
		}
		if a.Tensor.device.Type != CPU {
			return fmt.Errorf("%w: %s is on %s", ErrUnsupportedDevice, a.Name, a.Tensor.device)
		}
		if a.Tensor.device != first.Tensor.device {
			return &DeviceMismatchError{Arg: a.Name, Expected: first.Tensor.device, Actual: a.Tensor.device}
		}
	}
	return nil
}

// CheckShape verifies the shape of a. A -1 in dims matches any extent.
func CheckShape(a Arg, dims ...int) error {
	if a.Tensor == nil {
		return fmt.Errorf("%w: %s is nil", ErrInvalidArgument, a.Name)
	}
	shape := a.Tensor.shape
	if len(shape) != len(dims) {
		return &ShapeMismatchError{Arg: a.Name, Expected: dims, Actual: a.Tensor.Shape()}
	}
	for i, d := range dims {
		if d >= 0 && shape[i] != d {
			return &ShapeMismatchError{Arg: a.Name, Expected: dims, Actual: a.Tensor.Shape()}
		}
	}
	return nil
}

// CheckCorrespondences verifies that corr is an Int64 tensor of shape {n}
// whose entries are -1 or a valid index below limit.
func CheckCorrespondences(corr *Tensor, n, limit int) error {
	a := A("correspondences", corr)
	if err := CheckDtype(Int64, a); err != nil {
		return err
	}
	if err := CheckShape(a, n); err != nil {
		return err
	}
	for i, v := range corr.data.([]int64) {
		if v < -1 || v >= int64(limit) {
			return &CorrespondenceRangeError{Index: i, Value: v, Limit: limit}
		}
	}
	return nil
}
