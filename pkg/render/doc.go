// Package render draws supply-chain networks as Graphviz diagrams.
//
// [ToDOT] lays a [chain.Chain] out left to right, one column per layer,
// with an arrow for every permitted arc. Passing solved flows and open
// locations through [Options] turns the diagram into a picture of the
// optimal plan: used arcs are labelled with their flow, idle arcs fade
// out and closed locations are greyed.
//
//	dot := render.ToDOT(c, render.Options{Flows: flows})
//	svg, err := render.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(svg)
//
// SVG rendering runs in-process through [github.com/goccy/go-graphviz].
// PDF and PNG conversion requires librsvg (rsvg-convert).
//
// [chain.Chain]: github.com/chainopt/chainopt/pkg/chain
package render
