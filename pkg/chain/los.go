package chain

import (
	"github.com/chainopt/chainopt/pkg/lp"
)

// Metric builds a level-of-service expression from a demand layer's
// inbound flows, the aligned distance matrix and the layer's total demand.
// totalDemand is a constant, so the result stays linear.
type Metric func(flows [][]*lp.Var, distance [][]float64, totalDemand float64) lp.Expr

// WeightedAverageDistance returns the metric Σ(distance ⊙ flow) / totalDemand,
// usually bounded from above.
func WeightedAverageDistance() Metric {
	return func(flows [][]*lp.Var, distance [][]float64, totalDemand float64) lp.Expr {
		var e lp.Expr
		for i, row := range flows {
			for j, v := range row {
				e = e.AddTerm(v, distance[i][j]/totalDemand)
			}
		}
		return e
	}
}

// PercentWithinDistance returns the metric
// Σ((distance <= maxDistance) ⊙ flow) / totalDemand, the fraction of demand
// served from within maxDistance. It is usually bounded from below.
func PercentWithinDistance(maxDistance float64) Metric {
	return func(flows [][]*lp.Var, distance [][]float64, totalDemand float64) lp.Expr {
		var e lp.Expr
		for i, row := range flows {
			for j, v := range row {
				if distance[i][j] <= maxDistance {
					e = e.AddTerm(v, 1/totalDemand)
				}
			}
		}
		return e
	}
}

type losConstraint struct {
	name      string
	metric    Metric
	sense     lp.Sense
	threshold float64
}
