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

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDtype is returned when a tensor's element type is not
	// accepted by a kernel.
	ErrUnsupportedDtype = errors.New("unsupported dtype")

	// ErrUnsupportedDevice is returned for tensors on a device the kernels
	// cannot execute on.
	ErrUnsupportedDevice = errors.New("unsupported device")

	// ErrDtypeMismatch is the sentinel wrapped by *DtypeMismatchError.
	ErrDtypeMismatch = errors.New("dtype mismatch")

	// ErrDeviceMismatch is the sentinel wrapped by *DeviceMismatchError.
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrShapeMismatch is the sentinel wrapped by *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrCorrespondenceRange is the sentinel wrapped by *CorrespondenceRangeError.
	ErrCorrespondenceRange = errors.New("correspondence index out of range")

	// ErrIndexNotBuilt is returned by the neighbour search when no index
	// could be constructed over the input points.
	ErrIndexNotBuilt = errors.New("nearest neighbor index is not built")

	// ErrInvalidArgument is returned for out-of-domain scalar parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DtypeMismatchError reports a tensor whose dtype differs from the dtype
// of the call.
type DtypeMismatchError struct {
	Arg      string
	Expected Dtype
	Actual   Dtype
}

func (e *DtypeMismatchError) Error() string {
	return fmt.Sprintf("dtype mismatch for %s: expected %s, got %s", e.Arg, e.Expected, e.Actual)
}

func (e *DtypeMismatchError) Unwrap() error { return ErrDtypeMismatch }

// DeviceMismatchError reports tensors of one call living on different devices.
type DeviceMismatchError struct {
	Arg      string
	Expected Device
	Actual   Device
}

func (e *DeviceMismatchError) Error() string {
	return fmt.Sprintf("device mismatch for %s: expected %s, got %s", e.Arg, e.Expected, e.Actual)
}

func (e *DeviceMismatchError) Unwrap() error { return ErrDeviceMismatch }

// ShapeMismatchError reports a tensor whose shape does not match what the
// kernel requires. A -1 in Expected matches any extent.
type ShapeMismatchError struct {
	Arg      string
	Expected []int
	Actual   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: expected %v, got %v", e.Arg, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// CorrespondenceRangeError reports a correspondence entry that is neither
// the -1 sentinel nor a valid target index.
type CorrespondenceRangeError struct {
	Index int
	Value int64
	Limit int
}

func (e *CorrespondenceRangeError) Error() string {
	return fmt.Sprintf("correspondence[%d] = %d is outside [-1, %d)", e.Index, e.Value, e.Limit)
}

func (e *CorrespondenceRangeError) Unwrap() error { return ErrCorrespondenceRange }
