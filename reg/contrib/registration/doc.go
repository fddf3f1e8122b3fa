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

// Package registration drives iterative closest point alignment of two
// point clouds on top of the kernels in icp, nns and pointcloud.
//
// Each iteration moves the source by the current estimate, matches every
// moved source point to its nearest target point within the maximum
// correspondence distance, and solves one step of the configured method.
// The step is composed onto the estimate until the change in fitness and
// inlier RMSE both drop below the configured thresholds.
//
// # Methods
//
//	point_to_point  closed-form Kabsch step (icp.ComputeRtPointToPoint)
//	point_to_plane  Gauss-Newton step (icp.ComputePosePointToPlane)
//	colored_icp     joint geometric and photometric step (icp.ComputePoseColoredICP)
//
// Target normals and color gradients are estimated when the target cloud
// does not carry them, using the radius and neighbour cap of Config.Normals.
//
// # Configuration
//
// Config reads and writes YAML:
//
//	method: point_to_plane
//	max_correspondence_distance: 0.05
//	kernel:
//	  type: huber
//	  scale: 0.02
//	lambda_geometric: 0.968
//	criteria:
//	  max_iterations: 30
//	  relative_fitness: 1e-6
//	  relative_rmse: 1e-6
//	normals:
//	  radius: 0.1
//	  max_nn: 30
//	workers: 0
//	log_level: info
//
// Fields missing from a document keep their DefaultConfig values.
package registration
