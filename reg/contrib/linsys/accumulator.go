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

import "github.com/ajroetker/go-registration/reg"

const (
	// Size is the number of slots in an Accumulator.
	Size = 29

	// AtbOffset is the first JᵀWr slot.
	AtbOffset = 21
	// ResidualSlot holds Σ w·r².
	ResidualSlot = 27
	// CountSlot holds the inlier count.
	CountSlot = 28
)

// Accumulator is the packed normal-equation buffer for one 6-DoF problem.
type Accumulator[T reg.Floats] [Size]T

// PackedIndex returns the slot of JᵀWJ entry (a, b). The matrix is
// symmetric, so the arguments may come in either order.
func PackedIndex(a, b int) int {
	if a < b {
		a, b = b, a
	}
	return a*(a+1)/2 + b
}

// Unpack reads entry (a, b) of the symmetric matrix packed in flat.
func Unpack[T reg.Floats](flat []T, a, b int) T {
	return flat[PackedIndex(a, b)]
}

// Add folds one weighted Jacobian/residual pair into the buffer. It does not
// touch the inlier count; an observation with two terms calls Add twice and
// AddInlier once.
func (acc *Accumulator[T]) Add(j *[6]T, r, w T) {
	k := 0
	for a := range 6 {
		wja := w * j[a]
		for b := 0; b <= a; b++ {
			acc[k] = reg.MulAdd(wja, j[b], acc[k])
			k++
		}
	}
	wr := w * r
	for a := range 6 {
		acc[AtbOffset+a] = reg.MulAdd(j[a], wr, acc[AtbOffset+a])
	}
	acc[ResidualSlot] = reg.MulAdd(wr, r, acc[ResidualSlot])
}

// AddInlier counts one valid observation.
func (acc *Accumulator[T]) AddInlier() {
	acc[CountSlot]++
}

// Merge adds other into acc.
func (acc *Accumulator[T]) Merge(other *Accumulator[T]) {
	for i := range acc {
		acc[i] += other[i]
	}
}

// Inliers returns the number of valid observations. The count lives in a T
// slot, so a float32 accumulator stops counting at 2^24 (16,777,216): past
// that, adding one rounds back to the same value. Reductions over larger
// clouds should use float64.
func (acc *Accumulator[T]) Inliers() int {
	return int(acc[CountSlot])
}

// Residual returns Σ w·r².
func (acc *Accumulator[T]) Residual() T {
	return acc[ResidualSlot]
}

// AtA expands the packed triangle into a dense row-major 6x6 matrix.
func (acc *Accumulator[T]) AtA() [36]float64 {
	var m [36]float64
	for a := range 6 {
		for b := range 6 {
			m[a*6+b] = float64(Unpack(acc[:], a, b))
		}
	}
	return m
}

// Atb returns the JᵀWr block.
func (acc *Accumulator[T]) Atb() [6]float64 {
	var v [6]float64
	for a := range 6 {
		v[a] = float64(acc[AtbOffset+a])
	}
	return v
}

// Accumulator7 sums source and target coordinates over matched pairs:
// [0:3] source, [3:6] target, [6] count.
type Accumulator7 [7]float64

// Merge adds other into acc.
func (acc *Accumulator7) Merge(other *Accumulator7) {
	for i := range acc {
		acc[i] += other[i]
	}
}

// Means returns the source and target centroids, or zeros when the count
// is zero.
func (acc *Accumulator7) Means() (src, tgt [3]float64) {
	if acc[6] == 0 {
		return
	}
	for i := range 3 {
		src[i] = acc[i] / acc[6]
		tgt[i] = acc[3+i] / acc[6]
	}
	return
}

// Accumulator9 is a row-major 3x3 outer-product sum.
type Accumulator9 [9]float64

// Merge adds other into acc.
func (acc *Accumulator9) Merge(other *Accumulator9) {
	for i := range acc {
		acc[i] += other[i]
	}
}
