package beamform

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/volume"
)

// The closed method families serialize with a "class" discriminator field
// next to the variant's own fields, so configuration and persisted
// solutions stay self-describing without any open-ended reflection.

// DelaySpec wraps a DelayMethod for YAML round-tripping.
type DelaySpec struct {
	Method DelayMethod
}

type delayYAML struct {
	Class         string              `yaml:"class"`
	C0            float64             `yaml:"c0,omitempty"`
	InterpMethod  volume.InterpMethod `yaml:"interp_method,omitempty"`
	InterpSpacing float64             `yaml:"interp_spacing,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (s DelaySpec) MarshalYAML() (interface{}, error) {
	switch m := s.Method.(type) {
	case Direct:
		return delayYAML{Class: "direct", C0: m.C0}, nil
	case Raytraced:
		return delayYAML{Class: "raytraced", InterpMethod: m.InterpMethod, InterpSpacing: m.InterpSpacing}, nil
	case nil:
		return nil, fmt.Errorf("delay method: nil method")
	default:
		return nil, fmt.Errorf("delay method: unknown variant %T", s.Method)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler, dispatching on the class tag.
func (s *DelaySpec) UnmarshalYAML(value *yaml.Node) error {
	var raw delayYAML
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("delay method: %w", err)
	}
	switch raw.Class {
	case "direct":
		s.Method = Direct{C0: raw.C0}
	case "raytraced":
		s.Method = Raytraced{InterpMethod: raw.InterpMethod, InterpSpacing: raw.InterpSpacing}
	default:
		return fmt.Errorf("delay method: unknown class %q", raw.Class)
	}
	return nil
}

// ApodSpec wraps an ApodMethod for YAML round-tripping.
type ApodSpec struct {
	Method ApodMethod
}

type apodYAML struct {
	Class string `yaml:"class"`
}

// MarshalYAML implements yaml.Marshaler.
func (s ApodSpec) MarshalYAML() (interface{}, error) {
	switch s.Method.(type) {
	case Uniform:
		return apodYAML{Class: "uniform"}, nil
	case nil:
		return nil, fmt.Errorf("apodization method: nil method")
	default:
		return nil, fmt.Errorf("apodization method: unknown variant %T", s.Method)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *ApodSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw apodYAML
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("apodization method: %w", err)
	}
	switch raw.Class {
	case "uniform", "":
		s.Method = Uniform{}
	default:
		return fmt.Errorf("apodization method: unknown class %q", raw.Class)
	}
	return nil
}

// PatternSpec wraps a FocalPattern for YAML round-tripping.
type PatternSpec struct {
	Pattern FocalPattern
}

type patternYAML struct {
	Class       string    `yaml:"class"`
	Center      bool      `yaml:"center,omitempty"`
	NumSpokes   int       `yaml:"num_spokes,omitempty"`
	SpokeRadius float64   `yaml:"spoke_radius,omitempty"`
	Units       geom.Unit `yaml:"units,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (s PatternSpec) MarshalYAML() (interface{}, error) {
	switch p := s.Pattern.(type) {
	case SinglePoint:
		return patternYAML{Class: "single_point"}, nil
	case Wheel:
		return patternYAML{
			Class:       "wheel",
			Center:      p.Center,
			NumSpokes:   p.NumSpokes,
			SpokeRadius: p.SpokeRadius,
			Units:       p.Units,
		}, nil
	case nil:
		return nil, fmt.Errorf("focal pattern: nil pattern")
	default:
		return nil, fmt.Errorf("focal pattern: unknown variant %T", s.Pattern)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *PatternSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw patternYAML
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("focal pattern: %w", err)
	}
	switch raw.Class {
	case "single_point", "":
		s.Pattern = SinglePoint{}
	case "wheel":
		s.Pattern = Wheel{
			Center:      raw.Center,
			NumSpokes:   raw.NumSpokes,
			SpokeRadius: raw.SpokeRadius,
			Units:       raw.Units,
		}
	default:
		return fmt.Errorf("focal pattern: unknown class %q", raw.Class)
	}
	return nil
}
