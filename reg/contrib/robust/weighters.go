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

package robust

import (
	"math"

	"github.com/ajroetker/go-registration/reg"
)

// l1Floor bounds the L1 weight for near-zero residuals.
const l1Floor = 1e-6

// L2 is the unit weight of ordinary least squares.
type L2[T reg.Floats] struct{}

func (L2[T]) Weight(T) T { return 1 }

// L1 weights by the reciprocal absolute residual.
type L1[T reg.Floats] struct{}

func (L1[T]) Weight(r T) T {
	return 1 / max(abs(r), l1Floor)
}

// Huber is quadratic inside K and linear outside.
type Huber[T reg.Floats] struct{ K T }

func NewHuber[T reg.Floats](k Kernel) Huber[T] { return Huber[T]{K: T(k.Scale)} }

func (h Huber[T]) Weight(r T) T {
	return h.K / max(abs(r), h.K)
}

// Cauchy is the Lorentzian loss.
type Cauchy[T reg.Floats] struct{ K T }

func NewCauchy[T reg.Floats](k Kernel) Cauchy[T] { return Cauchy[T]{K: T(k.Scale)} }

func (c Cauchy[T]) Weight(r T) T {
	q := r / c.K
	return 1 / (1 + q*q)
}

// GM is the Geman-McClure loss.
type GM[T reg.Floats] struct{ K T }

func NewGM[T reg.Floats](k Kernel) GM[T] { return GM[T]{K: T(k.Scale)} }

func (g GM[T]) Weight(r T) T {
	d := g.K + r*r
	return g.K / (d * d)
}

// Tukey is the biweight loss; residuals beyond K get zero weight.
type Tukey[T reg.Floats] struct{ K T }

func NewTukey[T reg.Floats](k Kernel) Tukey[T] { return Tukey[T]{K: T(k.Scale)} }

func (t Tukey[T]) Weight(r T) T {
	if abs(r) > t.K {
		return 0
	}
	q := r / t.K
	w := 1 - q*q
	return w * w
}

// Generalized is the general adaptive loss with shape Alpha and scale C.
type Generalized[T reg.Floats] struct {
	Alpha T
	C     T
}

func NewGeneralized[T reg.Floats](k Kernel) Generalized[T] {
	return Generalized[T]{Alpha: T(k.Shape), C: T(k.Scale)}
}

func (g Generalized[T]) Weight(r T) T {
	c2 := g.C * g.C
	switch {
	case g.Alpha == 2:
		return 1 / c2
	case g.Alpha == 0:
		return 2 / (r*r + 2*c2)
	case math.IsInf(float64(g.Alpha), -1):
		return T(math.Exp(-0.5*float64(r*r/c2))) / c2
	}
	q := r * r / c2
	base := q/abs(g.Alpha-2) + 1
	return T(math.Pow(float64(base), float64(g.Alpha/2-1))) / c2
}

func abs[T reg.Floats](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
