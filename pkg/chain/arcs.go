package chain

import (
	"fmt"
	"math"

	"github.com/chainopt/chainopt/pkg/lp"
)

// ArcBlock is the matrix of flow variables between two connected layers.
// Flows[i][j] carries goods from node i of From to node j of To at unit
// cost Costs[i][j]. An infinite cost marks a forbidden arc whose variable
// has an upper bound of zero.
type ArcBlock struct {
	From, To *Layer
	Flows    [][]*lp.Var
	Costs    [][]float64
}

func newArcBlock(from, to *Layer, costs [][]float64) *ArcBlock {
	b := &ArcBlock{
		From:  from,
		To:    to,
		Flows: make([][]*lp.Var, len(costs)),
		Costs: cloneMatrix(costs),
	}
	for i, row := range costs {
		b.Flows[i] = make([]*lp.Var, len(row))
		for j, c := range row {
			v := lp.NewContinuous(fmt.Sprintf("%s[%d]->%s[%d]", from.name, i+1, to.name, j+1))
			if math.IsInf(c, 1) {
				v.Upper = 0
			}
			b.Flows[i][j] = v
		}
	}
	return b
}

// Shape returns the block's dimensions (source nodes × destination nodes).
func (b *ArcBlock) Shape() (rows, cols int) {
	if len(b.Flows) == 0 {
		return 0, 0
	}
	return len(b.Flows), len(b.Flows[0])
}

// Forbidden reports whether arc (i, j) is closed.
func (b *ArcBlock) Forbidden(i, j int) bool { return math.IsInf(b.Costs[i][j], 1) }

// CostExpr returns Σ cost·flow over the block's permitted arcs.
func (b *ArcBlock) CostExpr() lp.Expr {
	var e lp.Expr
	for i, row := range b.Flows {
		for j, v := range row {
			if b.Forbidden(i, j) {
				continue
			}
			e = e.AddTerm(v, b.Costs[i][j])
		}
	}
	return e
}

// Key returns the identity of arc (i, j).
func (b *ArcBlock) Key(i, j int) ArcKey {
	return ArcKey{From: b.From.name, I: i, To: b.To.name, J: j}
}

// ArcKey identifies one arc. I and J are 0-based node indices.
type ArcKey struct {
	From string
	I    int
	To   string
	J    int
}

// String renders the arc as "<from><i>-><to><j>" with 1-based node numbers.
func (k ArcKey) String() string {
	return fmt.Sprintf("%s%d->%s%d", k.From, k.I+1, k.To, k.J+1)
}
