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

package registration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/robust"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = ColoredICP
	cfg.Kernel = robust.Kernel{Type: robust.GeneralizedLoss, Scale: 0.1, Shape: -1}
	cfg.Criteria.MaxIterations = 12
	cfg.Workers = 4
	cfg.LogLevel = "debug"

	path := filepath.Join(t.TempDir(), "icp.yaml")
	require.NoError(t, SaveConfig(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "method: colored_icp")
	assert.Contains(t, string(raw), "type: generalized")

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	got, err := ParseConfig([]byte(`
method: point_to_point
kernel:
  type: huber
  scale: 0.02
criteria:
  max_iterations: 5
`))
	require.NoError(t, err)

	want := DefaultConfig()
	want.Method = PointToPoint
	want.Kernel = robust.Kernel{Type: robust.HuberLoss, Scale: 0.02}
	want.Criteria.MaxIterations = 5
	assert.Equal(t, want, got)

	empty, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), empty)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
	}{
		{"unknown field", "max_iters: 3\n", nil},
		{"unknown method", "method: sideways\n", nil},
		{"unknown kernel", "kernel:\n  type: fancy\n", nil},
		{"distance", "max_correspondence_distance: -1\n", reg.ErrInvalidArgument},
		{"kernel scale", "kernel:\n  type: cauchy\n  scale: 0\n", reg.ErrInvalidArgument},
		{"lambda", "lambda_geometric: 1.5\n", reg.ErrInvalidArgument},
		{"iterations", "criteria:\n  max_iterations: 0\n", reg.ErrInvalidArgument},
		{"thresholds", "criteria:\n  relative_rmse: -1\n", reg.ErrInvalidArgument},
		{"normals", "normals:\n  max_nn: 0\n", reg.ErrInvalidArgument},
		{"workers", "workers: -2\n", reg.ErrInvalidArgument},
		{"log level", "log_level: loud\n", reg.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normals.Radius = 0
	path := filepath.Join(t.TempDir(), "icp.yaml")
	assert.ErrorIs(t, SaveConfig(path, cfg), reg.ErrInvalidArgument)
	assert.NoFileExists(t, path)
}

func TestMethodText(t *testing.T) {
	for _, m := range []Method{PointToPoint, PointToPlane, ColoredICP} {
		b, err := m.MarshalText()
		require.NoError(t, err)
		var back Method
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, m, back)
	}

	m, err := ParseMethod(" Point_To_Plane ")
	require.NoError(t, err)
	assert.Equal(t, PointToPlane, m)

	_, err = Method(9).MarshalText()
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)
	assert.Equal(t, "Method(9)", Method(9).String())
}

func TestConfigLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	log, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	cfg.LogLevel = "nope"
	_, err = cfg.Logger()
	assert.ErrorIs(t, err, reg.ErrInvalidArgument)
}
