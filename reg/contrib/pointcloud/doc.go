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

// Package pointcloud estimates per-point surface properties from local
// neighbourhoods and projects point clouds into depth images.
//
// # Neighbourhoods
//
// The Estimate* functions build an nns.Index over the points and run one
// hybrid query (at most maxNN neighbours within radius) per point. The
// Compute* functions take a precomputed nns.Result instead, so one query can
// feed several estimators. A neighbourhood always includes the point itself.
//
// # Fallbacks
//
// Sparse neighbourhoods never fail. Covariance needs at least 3 neighbours
// and falls back to the identity. Color gradients need at least 4 and fall
// back to zero. Normals need 3 and fall back to +Z.
//
// # Projection
//
// Project renders points into a depth image (and optionally an RGB image)
// keeping the closest point per pixel. Pixel coordinates are computed in
// parallel and written back serially in point order, so the output does not
// depend on scheduling.
package pointcloud
