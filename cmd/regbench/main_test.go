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

package main

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/linsys"
	"github.com/ajroetker/go-registration/reg/contrib/registration"
)

func TestConfigCommandPrintsDefaults(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config"})
	require.NoError(t, root.Execute())

	cfg, err := registration.ParseConfig(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, registration.DefaultConfig(), cfg)
}

func TestRunBenchRecoversMotion(t *testing.T) {
	var buf bytes.Buffer
	log := reg.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := registration.DefaultConfig()
	cfg.MaxCorrespondenceDistance = 0.1
	for _, dtype := range []string{"float64", "float32"} {
		t.Run(dtype, func(t *testing.T) {
			res, err := runBench(runFlags{points: 3000, seed: 3, dtype: dtype}, cfg, log)
			require.NoError(t, err)
			assert.Greater(t, res.result.Fitness, 0.95)
			assert.Less(t, res.rotErr, 2e-3)
			assert.Less(t, res.transErr, 2e-3)
		})
	}
	assert.Contains(t, buf.String(), `"msg":"registration finished"`)
}

func TestRunBenchRejectsBadFlags(t *testing.T) {
	_, err := runBench(runFlags{points: 0, dtype: "float64"}, registration.DefaultConfig(), reg.NoopLogger())
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)

	_, err = runBench(runFlags{points: 10, dtype: "int64"}, registration.DefaultConfig(), reg.NoopLogger())
	assert.ErrorIs(t, err, reg.ErrUnsupportedDtype)
}

func TestRunCommandMissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, root.Execute())
}

func TestMotionError(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	m := randomMotion(rng)
	rot, trans := motionError(m, m)
	assert.InDelta(t, 0, rot, 1e-7)
	assert.InDelta(t, 0, trans, 1e-12)

	turn := linsys.PoseToTransformation([6]float64{0, 0, 0.1, 0, 0, 0})
	rot, _ = motionError(linsys.Identity(), turn)
	assert.InDelta(t, 0.1, rot, 1e-9)
}
