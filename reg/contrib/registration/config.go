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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajroetker/go-registration/reg"
	"github.com/ajroetker/go-registration/reg/contrib/robust"
)

// Method selects the per-iteration solver.
type Method int

const (
	PointToPoint Method = iota
	PointToPlane
	ColoredICP
)

var methodNames = [...]string{
	PointToPoint: "point_to_point",
	PointToPlane: "point_to_plane",
	ColoredICP:   "colored_icp",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod parses a method name such as "point_to_plane".
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown registration method %q", reg.ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(methodNames) {
		return nil, fmt.Errorf("%w: registration method %d", reg.ErrInvalidArgument, int(m))
	}
	return []byte(methodNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Criteria bounds the iteration. The loop stops once both the fitness and
// the inlier RMSE change by less than their relative thresholds between
// two iterations, or after MaxIterations steps.
type Criteria struct {
	MaxIterations   int     `yaml:"max_iterations"`
	RelativeFitness float64 `yaml:"relative_fitness"`
	RelativeRMSE    float64 `yaml:"relative_rmse"`
}

// NormalsConfig is the neighbourhood used to estimate missing target
// normals and color gradients.
type NormalsConfig struct {
	Radius float64 `yaml:"radius"`
	MaxNN  int     `yaml:"max_nn"`
}

// Config holds every tunable of a registration run.
type Config struct {
	Method                    Method        `yaml:"method"`
	MaxCorrespondenceDistance float64       `yaml:"max_correspondence_distance"`
	Kernel                    robust.Kernel `yaml:"kernel"`
	// LambdaGeometric weighs the geometric term of colored ICP; the
	// photometric term gets 1 - LambdaGeometric.
	LambdaGeometric float64       `yaml:"lambda_geometric"`
	Criteria        Criteria      `yaml:"criteria"`
	Normals         NormalsConfig `yaml:"normals"`
	// Workers sizes a dedicated pool for the run; 0 uses the shared default.
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns point-to-plane ICP with an L2 kernel.
func DefaultConfig() Config {
	return Config{
		Method:                    PointToPlane,
		MaxCorrespondenceDistance: 0.05,
		Kernel:                    robust.Default(),
		LambdaGeometric:           0.968,
		Criteria: Criteria{
			MaxIterations:   30,
			RelativeFitness: 1e-6,
			RelativeRMSE:    1e-6,
		},
		Normals:  NormalsConfig{Radius: 0.1, MaxNN: 30},
		LogLevel: "info",
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	if _, err := c.Method.MarshalText(); err != nil {
		return err
	}
	if !(c.MaxCorrespondenceDistance > 0) {
		return fmt.Errorf("%w: max_correspondence_distance %g", reg.ErrInvalidArgument, c.MaxCorrespondenceDistance)
	}
	if err := c.Kernel.Validate(); err != nil {
		return err
	}
	if !(c.LambdaGeometric >= 0 && c.LambdaGeometric <= 1) {
		return fmt.Errorf("%w: lambda_geometric %g outside [0, 1]", reg.ErrInvalidArgument, c.LambdaGeometric)
	}
	if c.Criteria.MaxIterations <= 0 {
		return fmt.Errorf("%w: criteria.max_iterations %d", reg.ErrInvalidArgument, c.Criteria.MaxIterations)
	}
	if !(c.Criteria.RelativeFitness >= 0) || !(c.Criteria.RelativeRMSE >= 0) {
		return fmt.Errorf("%w: criteria thresholds %g, %g", reg.ErrInvalidArgument, c.Criteria.RelativeFitness, c.Criteria.RelativeRMSE)
	}
	if !(c.Normals.Radius > 0) || c.Normals.MaxNN <= 0 {
		return fmt.Errorf("%w: normals radius %g, max_nn %d", reg.ErrInvalidArgument, c.Normals.Radius, c.Normals.MaxNN)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", reg.ErrInvalidArgument, c.Workers)
	}
	if _, err := reg.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", reg.ErrInvalidArgument, err)
	}
	return nil
}

// Logger returns a text logger at the configured level.
func (c Config) Logger() (*reg.Logger, error) {
	lvl, err := reg.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", reg.ErrInvalidArgument, err)
	}
	return reg.NewTextLogger(lvl), nil
}

// ParseConfig decodes a YAML document over DefaultConfig and validates the
// result. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse registration config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load registration config: %w", err)
	}
	return ParseConfig(data)
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode registration config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveConfig validates cfg and writes it to path as YAML.
func SaveConfig(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save registration config: %w", err)
	}
	return nil
}
