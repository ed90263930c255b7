package chain

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propTol = 1e-5

func reshape(flat []float64, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = flat[i*cols : (i+1)*cols]
	}
	return m
}

// TestNetworkInvariants checks that every optimal solution respects the
// constraints the layers declare.
func TestNetworkInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	// Capacities are at least 10 each and requirements at most 6 each, so
	// two plants always cover three stores.
	properties.Property("supply and demand bounds hold", prop.ForAll(
		func(caps, reqs, costs []float64) bool {
			ctx := context.Background()
			c := New("prop")
			s, err := NewSupply("plant", caps)
			if err != nil {
				return false
			}
			d, err := NewDemand("store", reqs)
			if err != nil {
				return false
			}
			c.AddLayer(s)
			c.AddLayer(d)
			if err := c.ConnectLayers(s, d, reshape(costs, 2, 3)); err != nil {
				return false
			}

			_, ok, err := c.Cost(ctx)
			if err != nil || !ok {
				return false
			}
			_, out, err := c.Flows(ctx, s)
			if err != nil {
				return false
			}
			in, _, err := c.Flows(ctx, d)
			if err != nil {
				return false
			}
			for i := range caps {
				if out[i] > caps[i]+propTol {
					return false
				}
			}
			for j := range reqs {
				if in[j] < reqs[j]-propTol {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(2, gen.Float64Range(10, 50)),
		gen.SliceOfN(3, gen.Float64Range(0, 6)),
		gen.SliceOfN(6, gen.Float64Range(1, 20)),
	))

	properties.Property("transshipment nodes conserve flow", prop.ForAll(
		func(reqs, toHub, fromHub []float64) bool {
			ctx := context.Background()
			c := New("prop")
			s, _ := NewSupply("plant", []float64{100, 100})
			h, _ := NewTransshipment("hub", []float64{Unconstrained, Unconstrained})
			d, _ := NewDemand("store", reqs)
			for _, l := range []*Layer{s, h, d} {
				c.AddLayer(l)
			}
			if c.ConnectLayers(s, h, reshape(toHub, 2, 2)) != nil ||
				c.ConnectLayers(h, d, reshape(fromHub, 2, 2)) != nil {
				return false
			}

			_, ok, err := c.Cost(ctx)
			if err != nil || !ok {
				return false
			}
			in, out, err := c.Flows(ctx, h)
			if err != nil {
				return false
			}
			for i := range in {
				if diff := in[i] - out[i]; diff > propTol || diff < -propTol {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(2, gen.Float64Range(0, 50)),
		gen.SliceOfN(4, gen.Float64Range(1, 20)),
		gen.SliceOfN(4, gen.Float64Range(1, 20)),
	))

	properties.Property("open indicator assignments respect the open range", prop.ForAll(
		func(assignment []int) bool {
			l, err := NewSupply("site", []float64{1, 1, 1, 1}, WithOpenRange(1, 3))
			if err != nil {
				return false
			}
			count, binary := 0, true
			for _, a := range assignment {
				if a != 0 && a != 1 {
					binary = false
				}
				count += a
			}
			valid := binary && count >= 1 && count <= 3

			err = l.SetOpenIndicators(assignment)
			if !valid {
				return err != nil && l.Pinned() == nil
			}
			if err != nil {
				return false
			}
			open := 0
			for _, a := range l.Pinned() {
				open += a
			}
			return open >= 1 && open <= 3
		},
		gen.SliceOfN(4, gen.IntRange(0, 2)),
	))

	// Hub capacities above 60 stand for uncapped hubs.
	properties.Property("pinned three-layer networks solve without faults", prop.ForAll(
		func(hubCaps, reqs, costs []float64, forbidden []bool, pin []int, pinned bool) bool {
			ctx := context.Background()
			caps := make([]float64, len(hubCaps))
			for i, v := range hubCaps {
				caps[i] = v
				if v > 60 {
					caps[i] = Unconstrained
				}
			}
			for i := range costs {
				if forbidden[i] {
					costs[i] = Unconstrained
				}
			}

			c := New("prop")
			s, _ := NewSupply("plant", []float64{40, 40})
			h, err := NewTransshipment("hub", caps, WithSelectableLocations(), WithFixedCosts([]float64{3, 7}))
			if err != nil {
				return false
			}
			d, _ := NewDemand("store", reqs)
			for _, l := range []*Layer{s, h, d} {
				c.AddLayer(l)
			}
			if c.ConnectLayers(s, h, reshape(costs[:4], 2, 2)) != nil ||
				c.ConnectLayers(h, d, reshape(costs[4:], 2, 2)) != nil {
				return false
			}
			if pinned && h.SetOpenIndicators(pin) != nil {
				return false
			}

			_, ok, err := c.Cost(ctx)
			if err != nil {
				return false
			}
			if !ok || !pinned {
				return true
			}
			open, err := c.OpenLocations(ctx, h)
			if err != nil {
				return false
			}
			for i := range pin {
				if open[i] != pin[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(2, gen.Float64Range(5, 80)),
		gen.SliceOfN(2, gen.Float64Range(0, 10)),
		gen.SliceOfN(8, gen.Float64Range(1, 20)),
		gen.SliceOfN(8, gen.Bool()),
		gen.SliceOfN(2, gen.IntRange(0, 1)),
		gen.Bool(),
	))

	properties.Property("unchanged chains are solved once", prop.ForAll(
		func(reads int) bool {
			calls := 0
			c, s, d := propChain(&calls)
			if c.ConnectLayers(s, d, [][]float64{{1, 2}}) != nil {
				return false
			}
			for range reads {
				if _, _, err := c.Cost(context.Background()); err != nil {
					return false
				}
			}
			return calls == 1
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func propChain(calls *int) (*Chain, *Layer, *Layer) {
	c := New("prop", WithSolver(countingSolver(calls)))
	s, _ := NewSupply("plant", []float64{10})
	d, _ := NewDemand("store", []float64{1, 2})
	c.AddLayer(s)
	c.AddLayer(d)
	return c, s, d
}
