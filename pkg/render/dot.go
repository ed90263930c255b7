package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chainopt/chainopt/pkg/chain"
)

// Options configures network diagrams.
type Options struct {
	// Flows labels each arc with its solved flow. Arcs without flow are
	// drawn dashed. When nil, arcs are labelled with their unit cost.
	Flows map[chain.ArcKey]float64
	// Open holds per-layer open indicators as returned by
	// Chain.OpenLocations. Closed nodes are greyed out.
	Open map[string][]int
	// ShowForbidden draws forbidden arcs as dotted red lines. They are
	// omitted otherwise.
	ShowForbidden bool
}

// flowEpsilon hides solver noise on idle arcs.
const flowEpsilon = 1e-9

// ToDOT converts a chain's network to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
func ToDOT(c *chain.Chain, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", c.Name())
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.3;\n")

	for _, l := range c.Layers() {
		writeLayer(&buf, l, opts.Open[l.Name()])
	}

	buf.WriteString("\n")
	for _, b := range c.Arcs() {
		writeArcs(&buf, b, opts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeLayer(buf *bytes.Buffer, l *chain.Layer, open []int) {
	fmt.Fprintf(buf, "\n  subgraph %q {\n", "cluster_"+l.Name())
	fmt.Fprintf(buf, "    label=%q;\n", l.Name()+" ("+l.Kind().String()+")")
	buf.WriteString("    style=\"rounded,dashed\";\n")
	buf.WriteString("    color=grey;\n")
	for i, bound := range l.Bounds() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(l, i, bound))}
		if open != nil && open[i] == 0 {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=dimgrey")
		}
		fmt.Fprintf(buf, "    %q [%s];\n", nodeID(l.Name(), i), strings.Join(attrs, ", "))
	}
	buf.WriteString("  }\n")
}

func writeArcs(buf *bytes.Buffer, b *chain.ArcBlock, opts Options) {
	for i, row := range b.Costs {
		for j, cost := range row {
			from, to := nodeID(b.From.Name(), i), nodeID(b.To.Name(), j)
			if b.Forbidden(i, j) {
				if opts.ShowForbidden {
					fmt.Fprintf(buf, "  %q -> %q [style=dotted, color=red, arrowhead=tee];\n", from, to)
				}
				continue
			}
			if opts.Flows == nil {
				fmt.Fprintf(buf, "  %q -> %q [label=%q];\n", from, to, formatNumber(cost))
				continue
			}
			flow := opts.Flows[b.Key(i, j)]
			if math.Abs(flow) <= flowEpsilon {
				fmt.Fprintf(buf, "  %q -> %q [style=dashed, color=lightgrey];\n", from, to)
				continue
			}
			label := formatNumber(flow) + " @ " + formatNumber(cost)
			fmt.Fprintf(buf, "  %q -> %q [label=%q, penwidth=2];\n", from, to, label)
		}
	}
}

func nodeID(layer string, i int) string {
	return fmt.Sprintf("%s[%d]", layer, i+1)
}

func nodeLabel(l *chain.Layer, i int, bound float64) string {
	var kind string
	switch l.Kind() {
	case chain.Demand:
		kind = "req"
	default:
		kind = "cap"
	}
	return fmt.Sprintf("%s %d\n%s %s", l.Name(), i+1, kind, formatNumber(bound))
}

func formatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "∞"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
