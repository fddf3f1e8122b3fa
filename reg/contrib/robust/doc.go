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

// Package robust provides the robust-kernel weighting functions used by the
// iteratively reweighted least-squares evaluators.
//
// A Kernel selects a loss family and its parameters. The evaluators never
// call through the Kernel itself on the per-observation path: the caller
// switches on Kernel.Type once and instantiates its reduction with one of
// the concrete weighter types (L2, L1, Huber, Cauchy, GM, Tukey,
// Generalized), each a small value type with a Weight method.
//
// # Weights
//
// For a residual r and scale k:
//
//	L2           1
//	L1           1 / max(|r|, 1e-6)
//	Huber        k / max(|r|, k)
//	Cauchy       1 / (1 + (r/k)²)
//	GM           k / (k + r²)²
//	Tukey        (1 - (r/k)²)² if |r| <= k, else 0
//	Generalized  (1/c²) · ((r/c)²/|α-2| + 1)^(α/2 - 1)
//
// The generalized loss (Barron 2019) uses Shape as α and Scale as c. It has
// closed forms at α = 2 (1/c²), α = 0 (2/(r²+2c²)) and α = -Inf
// (exp(-(r/c)²/2)/c²).
package robust
