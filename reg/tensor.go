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
	"fmt"
	"slices"
)

// Tensor is a dense, row-major array with an explicit element type, device
// and shape. The backing slice is one of []float32, []float64, []int64 or
// []uint8 according to the dtype.
//
// Tensor instances are values owned by the caller; kernels never retain them.
type Tensor struct {
	dtype  Dtype
	device Device
	shape  []int
	data   any
}

// FromSlice wraps data as a CPU tensor of the given shape. The slice is not
// copied. If no shape is given the tensor is one-dimensional.
//
// Panics if the product of shape does not equal len(data).
func FromSlice[E Elements](data []E, shape ...int) *Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if numElements(shape) != len(data) {
		panic(fmt.Sprintf("reg: shape %v does not match %d elements", shape, len(data)))
	}
	return &Tensor{
		dtype:  DtypeOf[E](),
		device: DefaultDevice,
		shape:  slices.Clone(shape),
		data:   canonical(data),
	}
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape []int, dtype Dtype, device Device) (*Tensor, error) {
	n := numElements(shape)
	if n < 0 {
		return nil, fmt.Errorf("%w: negative extent in shape %v", ErrInvalidArgument, shape)
	}
	var data any
	switch dtype {
	case Float32:
		data = make([]float32, n)
	case Float64:
		data = make([]float64, n)
	case Int64:
		data = make([]int64, n)
	case UInt8:
		data = make([]uint8, n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDtype, dtype)
	}
	return &Tensor{dtype: dtype, device: device, shape: slices.Clone(shape), data: data}, nil
}

// Eye returns an n x n identity matrix of a float dtype on the CPU.
func Eye(n int, dtype Dtype) (*Tensor, error) {
	t, err := Zeros([]int{n, n}, dtype, DefaultDevice)
	if err != nil {
		return nil, err
	}
	switch d := t.data.(type) {
	case []float32:
		for i := range n {
			d[i*n+i] = 1
		}
	case []float64:
		for i := range n {
			d[i*n+i] = 1
		}
	default:
		return nil, fmt.Errorf("%w: Eye requires a float dtype, got %s", ErrUnsupportedDtype, dtype)
	}
	return t, nil
}

// Dtype returns the element type.
func (t *Tensor) Dtype() Dtype { return t.dtype }

// Device returns the device the tensor lives on.
func (t *Tensor) Device() Device { return t.device }

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Length returns the extent of the first dimension (0 for a scalar).
func (t *Tensor) Length() int {
	if len(t.shape) == 0 {
		return 0
	}
	return t.shape[0]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int { return numElements(t.shape) }

// To returns a shallow copy of t tagged with another device. Only host
// memory exists in this package, so the data is shared.
func (t *Tensor) To(device Device) *Tensor {
	c := *t
	c.device = device
	c.shape = slices.Clone(t.shape)
	return &c
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{dtype: t.dtype, device: t.device, shape: slices.Clone(t.shape)}
	switch d := t.data.(type) {
	case []float32:
		c.data = slices.Clone(d)
	case []float64:
		c.data = slices.Clone(d)
	case []int64:
		c.data = slices.Clone(d)
	case []uint8:
		c.data = slices.Clone(d)
	}
	return c
}

// Reshape returns a view of t with a new shape holding the same elements.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if numElements(shape) != t.NumElements() {
		return nil, &ShapeMismatchError{Arg: "reshape", Expected: shape, Actual: t.Shape()}
	}
	c := *t
	c.shape = slices.Clone(shape)
	return &c, nil
}

// String summarizes the tensor without printing its data.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s %v %s]", t.dtype, t.shape, t.device)
}

// Data returns the backing slice of t as []E. It fails when E does not
// match the tensor dtype. For named element types the result is a copy.
func Data[E Elements](t *Tensor) ([]E, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidArgument)
	}
	want := DtypeOf[E]()
	if t.dtype != want {
		return nil, &DtypeMismatchError{Arg: "data", Expected: want, Actual: t.dtype}
	}
	if d, ok := t.data.([]E); ok {
		return d, nil
	}
	return convertNamed[E](t.data), nil
}

// MustData is like Data but panics on a dtype mismatch. Kernels call it
// after their preconditions have been checked.
func MustData[E Elements](t *Tensor) []E {
	d, err := Data[E](t)
	if err != nil {
		panic(err)
	}
	return d
}

// AsFloat64 copies a float tensor's elements into a new []float64.
func AsFloat64(t *Tensor) ([]float64, error) {
	switch d := t.data.(type) {
	case []float64:
		return slices.Clone(d), nil
	case []float32:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s is not a float dtype", ErrUnsupportedDtype, t.dtype)
}

// canonical stores named element slices as their underlying slice type.
func canonical[E Elements](data []E) any {
	switch d := any(data).(type) {
	case []float32, []float64, []int64, []uint8:
		return d
	}
	switch DtypeOf[E]() {
	case Float32:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out
	case Float64:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out
	case Int64:
		out := make([]int64, len(data))
		for i, v := range data {
			out[i] = int64(v)
		}
		return out
	default:
		out := make([]uint8, len(data))
		for i, v := range data {
			out[i] = uint8(v)
		}
		return out
	}
}

// convertNamed copies the backing slice into []E for named element types
// whose underlying type matches the dtype.
func convertNamed[E Elements](data any) []E {
	switch d := data.(type) {
	case []float32:
		out := make([]E, len(d))
		for i, v := range d {
			out[i] = E(v)
		}
		return out
	case []float64:
		out := make([]E, len(d))
		for i, v := range d {
			out[i] = E(v)
		}
		return out
	case []int64:
		out := make([]E, len(d))
		for i, v := range d {
			out[i] = E(v)
		}
		return out
	case []uint8:
		out := make([]E, len(d))
		for i, v := range d {
			out[i] = E(v)
		}
		return out
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return -1
		}
		n *= s
	}
	return n
}
