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
	"math"
	"os"
	"strconv"
)

// hasFMA is set by init() in dispatch_*.go files.
var hasFMA bool

// HasFMA reports whether the kernels use fused multiply-add.
func HasFMA() bool {
	return hasFMA
}

// NoFMAEnv checks if the REG_NO_FMA environment variable is set.
// When set, the kernels use separately rounded multiply and add regardless
// of CPU capabilities. Useful for reproducing results across machines.
func NoFMAEnv() bool {
	val := os.Getenv("REG_NO_FMA")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// MulAdd returns a*b + c, fused into a single rounding when the CPU
// supports it. float32 operands are fused in float64 and rounded once.
func MulAdd[T Floats](a, b, c T) T {
	if hasFMA {
		return T(math.FMA(float64(a), float64(b), float64(c)))
	}
	return a*b + c
}

// SetFMA overrides the detected FMA setting and returns the previous value.
// Intended for tests.
func SetFMA(enabled bool) bool {
	prev := hasFMA
	hasFMA = enabled
	return prev
}
