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

// Package nns provides the kd-tree neighbour queries used to build
// correspondences and local neighbourhoods. It wraps
// gonum.org/v1/gonum/spatial/kdtree.
//
// All distances reported by this package are squared Euclidean distances.
// Query results list neighbours in increasing (distance, index) order, so a
// point queried against its own cloud comes first in its own neighbourhood.
package nns
