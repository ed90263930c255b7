package scenario

import (
	"fmt"

	"github.com/chainopt/chainopt/pkg/chain"
	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// Build compiles the scenario into a chain. Options given by the caller
// take precedence over the scenario's sense and big-M.
func (s *Scenario) Build(opts ...chain.Option) (*chain.Chain, error) {
	sense, err := lp.ParseObjectiveSense(s.Sense)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "sense")
	}
	base := []chain.Option{chain.WithSense(sense)}
	if s.BigM > 0 {
		base = append(base, chain.WithBigM(s.BigM))
	}
	c := chain.New(s.Name, append(base, opts...)...)

	layers := make(map[string]*chain.Layer, len(s.Layers))
	for _, spec := range s.Layers {
		l, err := spec.build()
		if err != nil {
			return nil, err
		}
		c.AddLayer(l)
		layers[spec.Name] = l
	}

	for _, conn := range s.Connections {
		var copts []chain.ConnectOption
		if conn.Distance != nil {
			copts = append(copts, chain.WithDistance(conn.Distance))
		}
		if err := c.ConnectLayers(layers[conn.From], layers[conn.To], conn.Costs, copts...); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "connect %s -> %s", conn.From, conn.To)
		}
	}

	// Level-of-service rows and pins go last: both need the arcs in place.
	for _, spec := range s.Layers {
		l := layers[spec.Name]
		for _, los := range spec.LOS {
			sense, err := lp.ParseSense(los.Sense)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "layer %q: LOS %q sense", spec.Name, los.Name)
			}
			metric, err := los.metric()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidScenario, err, "layer %q: LOS %q", spec.Name, los.Name)
			}
			if err := l.AddLOSConstraint(los.Name, metric, sense, los.Threshold); err != nil {
				return nil, err
			}
		}
		if spec.Open != nil {
			if err := l.SetOpenIndicators(spec.Open); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (spec LayerSpec) build() (*chain.Layer, error) {
	kind, err := chain.ParseKind(spec.Kind)
	if err != nil {
		return nil, err
	}
	var opts []chain.LayerOption
	if spec.Selectable {
		opts = append(opts, chain.WithSelectableLocations())
	}
	if spec.PMin != nil || spec.PMax != nil {
		pmin, pmax := 0, len(spec.Bounds)
		if spec.PMin != nil {
			pmin = *spec.PMin
		}
		if spec.PMax != nil {
			pmax = *spec.PMax
		}
		opts = append(opts, chain.WithOpenRange(pmin, pmax))
	}
	if spec.FixedCosts != nil {
		opts = append(opts, chain.WithFixedCosts(spec.FixedCosts))
	}
	return chain.NewLayer(kind, spec.Name, spec.Bounds, opts...)
}

func (los LOSSpec) metric() (chain.Metric, error) {
	switch los.Metric {
	case "weighted_average_distance":
		return chain.WeightedAverageDistance(), nil
	case "percent_within_distance":
		return chain.PercentWithinDistance(los.MaxDistance), nil
	}
	return nil, fmt.Errorf("unknown metric %q", los.Metric)
}
