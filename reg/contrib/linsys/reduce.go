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
	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/workerpool"
)

// Evaluator computes the residual terms of observation i.
//
// Jacobian writes up to two Jacobian rows into j and residuals into r and
// returns how many terms it produced: 0 for an invalid observation, 1 for a
// single residual, 2 for a geometric plus photometric pair.
type Evaluator[T reg.Floats] interface {
	Jacobian(i int, j *[2][6]T, r *[2]T) int
}

// Weighter maps a residual to its robust weight.
type Weighter[T reg.Floats] interface {
	Weight(r T) T
}

// Reduce evaluates observations [0, n) on pool and returns the summed
// normal equations. Observations for which e reports no terms leave every
// slot untouched, including the count.
func Reduce[T reg.Floats, E Evaluator[T], W Weighter[T]](pool *workerpool.Pool, n int, e E, w W) Accumulator[T] {
	return workerpool.Reduce(pool, n,
		func(acc *Accumulator[T], start, end int) {
			var j [2][6]T
			var r [2]T
			for i := start; i < end; i++ {
				terms := e.Jacobian(i, &j, &r)
				if terms == 0 {
					continue
				}
				for t := range terms {
					acc.Add(&j[t], r[t], w.Weight(r[t]))
				}
				acc.AddInlier()
			}
		},
		(*Accumulator[T]).Merge,
	)
}

// ReduceMeans sums matched source and target coordinates. pair returns the
// two points of observation i, or ok=false when i has no match.
func ReduceMeans(pool *workerpool.Pool, n int, pair func(i int) (s, t [3]float64, ok bool)) Accumulator7 {
	return workerpool.Reduce(pool, n,
		func(acc *Accumulator7, start, end int) {
			for i := start; i < end; i++ {
				s, t, ok := pair(i)
				if !ok {
					continue
				}
				acc[0] += s[0]
				acc[1] += s[1]
				acc[2] += s[2]
				acc[3] += t[0]
				acc[4] += t[1]
				acc[5] += t[2]
				acc[6]++
			}
		},
		(*Accumulator7).Merge,
	)
}

// ReduceCrossCovariance sums (t - meanT)(s - meanS)ᵀ over matched pairs:
// slot 3*j+k holds Σ (t[j]-meanT[j])·(s[k]-meanS[k]).
func ReduceCrossCovariance(pool *workerpool.Pool, n int, meanS, meanT [3]float64, pair func(i int) (s, t [3]float64, ok bool)) Accumulator9 {
	return workerpool.Reduce(pool, n,
		func(acc *Accumulator9, start, end int) {
			for i := start; i < end; i++ {
				s, t, ok := pair(i)
				if !ok {
					continue
				}
				for j := range 3 {
					dt := t[j] - meanT[j]
					for k := range 3 {
						acc[3*j+k] += dt * (s[k] - meanS[k])
					}
				}
			}
		},
		(*Accumulator9).Merge,
	)
}
