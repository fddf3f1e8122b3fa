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

// Command regbench exercises the registration kernels end to end on a
// synthetic colored surface.
//
// Usage:
//
//	regbench run --config icp.yaml --points 5000 --seed 7
//	regbench config > icp.yaml
//
// run samples a smooth height field with a color pattern, moves a copy by a
// random rigid motion, registers the copy back and logs the recovered
// motion and its error. config prints the default configuration as YAML.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "regbench",
		Short:         "Benchmark point cloud registration on synthetic data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newConfigCmd())
	return root
}
