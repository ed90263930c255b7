// Package scenario loads supply-chain networks from TOML or YAML files.
//
// A scenario names the layers of a network, the cost matrices that connect
// them and any location or level-of-service settings. [Load] decodes and
// validates a file; [Scenario.Build] compiles it into a [chain.Chain]:
//
//	s, err := scenario.Load("examples/steelco.toml")
//	c, err := s.Build(chain.WithLogger(logger))
//	cost, ok, err := c.Cost(ctx)
//
// Unconstrained bounds and forbidden arcs are written as infinity: `inf`
// in TOML, `.inf` in YAML.
package scenario

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chainopt/chainopt/pkg/errors"
)

// Format identifies a scenario encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidScenario, "%s: unknown scenario format (expected .toml, .yaml or .yml)", path)
}

// Scenario is the file representation of a network.
type Scenario struct {
	Name        string       `toml:"name" yaml:"name" validate:"required,max=256"`
	Sense       string       `toml:"sense" yaml:"sense" validate:"omitempty,oneof=min max minimize maximize"`
	BigM        float64      `toml:"big_m" yaml:"big_m" validate:"omitempty,gt=0"`
	Layers      []LayerSpec  `toml:"layers" yaml:"layers" validate:"required,min=1,dive"`
	Connections []Connection `toml:"connections" yaml:"connections" validate:"dive"`
}

// LayerSpec describes one layer.
type LayerSpec struct {
	Name   string    `toml:"name" yaml:"name" validate:"required,max=256"`
	Kind   string    `toml:"kind" yaml:"kind" validate:"required,oneof=supply demand transshipment"`
	Bounds []float64 `toml:"bounds" yaml:"bounds" validate:"required,min=1,dive,gte=0"`

	Selectable bool      `toml:"selectable" yaml:"selectable"`
	PMin       *int      `toml:"pmin" yaml:"pmin" validate:"omitempty,gte=0"`
	PMax       *int      `toml:"pmax" yaml:"pmax" validate:"omitempty,gte=0"`
	FixedCosts []float64 `toml:"fixed_costs" yaml:"fixed_costs"`
	Open       []int     `toml:"open" yaml:"open" validate:"omitempty,dive,oneof=0 1"`

	LOS []LOSSpec `toml:"los" yaml:"los" validate:"dive"`
}

// LOSSpec describes a level-of-service constraint on a demand layer.
type LOSSpec struct {
	Name        string  `toml:"name" yaml:"name" validate:"required"`
	Metric      string  `toml:"metric" yaml:"metric" validate:"required,oneof=weighted_average_distance percent_within_distance"`
	MaxDistance float64 `toml:"max_distance" yaml:"max_distance" validate:"gte=0"`
	Sense       string  `toml:"sense" yaml:"sense" validate:"required"`
	Threshold   float64 `toml:"threshold" yaml:"threshold"`
}

// Connection describes the arc block between two layers.
type Connection struct {
	From     string      `toml:"from" yaml:"from" validate:"required"`
	To       string      `toml:"to" yaml:"to" validate:"required,nefield=From"`
	Costs    [][]float64 `toml:"costs" yaml:"costs" validate:"required,min=1,dive,min=1"`
	Distance [][]float64 `toml:"distance" yaml:"distance"`
}

// Load reads, decodes and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "scenario %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return s, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte, format Format) (*Scenario, error) {
	var s Scenario
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "decode toml")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidScenario, "unknown scenario format %q", format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Layer returns the layer spec with the given name.
func (s *Scenario) Layer(name string) (*LayerSpec, bool) {
	for i := range s.Layers {
		if s.Layers[i].Name == name {
			return &s.Layers[i], true
		}
	}
	return nil, false
}
