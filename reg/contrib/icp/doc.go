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

// Package icp builds and solves the per-iteration linear systems of
// iterative closest point registration.
//
// Three objectives are supported:
//
//   - ComputePosePointToPlane minimizes Σ ρ(((s_i - t_c(i))·n_c(i))).
//   - ComputePoseColoredICP adds a photometric term that compares the source
//     intensity with the target intensity extrapolated along the target's
//     tangent-plane color gradient.
//   - ComputeRtPointToPoint solves the closed-form rigid alignment of
//     matched pairs (Kabsch/Umeyama without scale).
//
// The two pose objectives return a 6-vector (α, β, γ, tx, ty, tz) from one
// Gauss-Newton step linearized at the current source positions; apply it
// with linsys.PoseToTransformation and iterate.
//
// # Correspondences
//
// Correspondences are an Int64 tensor of length N with the target index of
// each source point, or -1 when the point has no match. Unmatched points
// contribute nothing. Out-of-range indices are rejected before any work.
//
// # Robust kernels
//
// Every residual is weighted by a robust.Kernel. The kernel is resolved to a
// concrete weighter once per call.
package icp
