// Package chain compiles multi-echelon supply-chain networks into linear
// programs.
//
// A network is a set of layers (supply sites, transshipment hubs and
// demand sites) joined by arc blocks: one non-negative flow variable for
// every pair of nodes between two connected layers, each with a unit cost.
// The [Chain] owns the layer registry and the arc blocks, compiles them
// into an [lp.Model] and hands the model to an [lp.Solver].
//
// # Building a network
//
//	c := chain.New("SteelCo")
//	dc, _ := chain.NewSupply("dc", []float64{100000, 100000})
//	site, _ := chain.NewDemand("site", []float64{40500, 22230, 85200, 47500})
//	c.AddLayer(dc)
//	c.AddLayer(site)
//	err := c.ConnectLayers(dc, site, [][]float64{
//	    {52, 32, 11, 69},
//	    {45, 84, 76, 15},
//	})
//	cost, ok, err := c.Cost(ctx)
//
// Layers must be added explicitly before they are connected; connecting
// an unregistered layer fails with LAYER_NOT_ATTACHED. A cost of +Inf
// marks a forbidden arc: its flow variable gets an upper bound of zero.
//
// # Constraints
//
// Every registered layer contributes:
//   - Supply: outflow[i] <= capacity[i]
//   - Demand: inflow[i] >= requirement[i]
//   - Transshipment: inflow[i] - outflow[i] = 0, and inflow[i] <= cap[i]
//     for capped nodes
//
// Layers with selectable locations add one binary open indicator per
// node, pmin/pmax cardinality bounds, big-M link constraints and fixed
// costs in the objective. Demand layers may carry level-of-service
// constraints built from a distance matrix (see [Metric]).
//
// # Solve lifecycle
//
// Every mutation marks the chain dirty. Reads ([Chain.Cost],
// [Chain.ArcValues], [Chain.Flows]) solve first when the chain is dirty
// and reuse the cached result otherwise. The model is rebuilt from
// scratch on every dirty solve. An infeasible or unbounded model is not
// an error: reads report an absent result and the chain stays dirty, so
// the next read tries again.
//
// A Chain is not safe for concurrent use.
package chain
