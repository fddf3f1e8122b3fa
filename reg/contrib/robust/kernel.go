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

package robust

import (
	"fmt"
	"math"
	"strings"

	"github.com/ajroetker/go-registration/reg"
)

// Type identifies a loss family.
type Type int

const (
	L2Loss Type = iota
	L1Loss
	HuberLoss
	CauchyLoss
	GMLoss
	TukeyLoss
	GeneralizedLoss
)

var typeNames = [...]string{
	L2Loss:          "l2",
	L1Loss:          "l1",
	HuberLoss:       "huber",
	CauchyLoss:      "cauchy",
	GMLoss:          "gm",
	TukeyLoss:       "tukey",
	GeneralizedLoss: "generalized",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType parses a lower-case loss name such as "huber".
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown robust kernel %q", reg.ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler, so the type reads and
// writes as its name in YAML and JSON.
func (t Type) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("%w: robust kernel type %d", reg.ErrInvalidArgument, int(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Kernel selects a loss family and its parameters. Scale is the threshold
// k (or c for the generalized loss); Shape is α and is read only by
// GeneralizedLoss.
type Kernel struct {
	Type  Type    `yaml:"type" json:"type"`
	Scale float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	Shape float64 `yaml:"shape,omitempty" json:"shape,omitempty"`
}

// Default returns the plain least-squares kernel.
func Default() Kernel {
	return Kernel{Type: L2Loss, Scale: 1}
}

// Validate reports out-of-domain parameters.
func (k Kernel) Validate() error {
	switch k.Type {
	case L2Loss, L1Loss:
		return nil
	case HuberLoss, CauchyLoss, GMLoss, TukeyLoss, GeneralizedLoss:
		if !(k.Scale > 0) || math.IsInf(k.Scale, 1) {
			return fmt.Errorf("%w: %s kernel needs a positive scale, got %g", reg.ErrInvalidArgument, k.Type, k.Scale)
		}
		if k.Type == GeneralizedLoss && math.IsNaN(k.Shape) {
			return fmt.Errorf("%w: generalized kernel shape is NaN", reg.ErrInvalidArgument)
		}
		return nil
	}
	return fmt.Errorf("%w: robust kernel type %d", reg.ErrInvalidArgument, int(k.Type))
}

// Weight evaluates the kernel at r. It is meant for diagnostics and tests;
// reductions use the concrete weighter types.
func (k Kernel) Weight(r float64) float64 {
	switch k.Type {
	case L1Loss:
		return L1[float64]{}.Weight(r)
	case HuberLoss:
		return NewHuber[float64](k).Weight(r)
	case CauchyLoss:
		return NewCauchy[float64](k).Weight(r)
	case GMLoss:
		return NewGM[float64](k).Weight(r)
	case TukeyLoss:
		return NewTukey[float64](k).Weight(r)
	case GeneralizedLoss:
		return NewGeneralized[float64](k).Weight(r)
	}
	return 1
}

func (k Kernel) String() string {
	switch k.Type {
	case L2Loss, L1Loss:
		return k.Type.String()
	case GeneralizedLoss:
		return fmt.Sprintf("generalized(scale=%g, shape=%g)", k.Scale, k.Shape)
	}
	return fmt.Sprintf("%s(scale=%g)", k.Type, k.Scale)
}
