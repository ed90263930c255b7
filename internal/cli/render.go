package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chainopt/chainopt/pkg/chain"
	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/render"
	"github.com/chainopt/chainopt/pkg/scenario"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string  // output file; stdout when empty (dot and svg only)
	format    string  // dot, svg, pdf or png; inferred from output when empty
	solve     bool    // annotate arcs with solved flows
	forbidden bool    // draw forbidden arcs
	scale     float64 // PNG scale factor
	solver    solverFlags
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{scale: 2}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw a scenario's network",
		Long: `Render draws the network of a scenario as a Graphviz diagram, one column per
layer. With --solve the diagram shows the optimal plan: used arcs carry
their flow, idle arcs are faded and closed locations are greyed out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.format, opts.output)
			if err != nil {
				return err
			}
			opts.format = format
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot (default), svg, pdf, png")
	cmd.Flags().BoolVar(&opts.solve, "solve", false, "solve first and annotate arcs with flows")
	cmd.Flags().BoolVar(&opts.forbidden, "forbidden", false, "draw forbidden arcs")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	opts.solver.register(cmd)

	return cmd
}

// resolveFormat validates --format, falling back to the output extension.
func resolveFormat(format, output string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
		if format == "" || format == "gv" {
			format = formatDOT
		}
	}
	switch format {
	case formatDOT, formatSVG:
		return format, nil
	case formatPDF, formatPNG:
		if output == "" {
			return "", errors.New(errors.ErrCodeInvalidInput, "%s output is binary; use --output", format)
		}
		return format, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid format: %s (must be dot, svg, pdf or png)", format)
}

func (c *CLI) runRender(ctx context.Context, path string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	chainOpts := []chain.Option{chain.WithLogger(logger)}
	if opts.solve {
		solver, closeCache, err := opts.solver.build(ctx)
		if err != nil {
			return err
		}
		defer closeCache()
		chainOpts = append(chainOpts, chain.WithSolver(solver))
	}
	ch, err := s.Build(chainOpts...)
	if err != nil {
		return err
	}

	ropts := render.Options{ShowForbidden: opts.forbidden}
	if opts.solve {
		if ropts, err = annotate(ctx, ch, ropts); err != nil {
			return err
		}
		if ropts.Flows == nil {
			printWarning(c.out, "%s is %s; drawing the network without flows", ch.Name(), ch.Status())
		}
	}

	dot := render.ToDOT(ch, ropts)
	data, err := encode(ctx, dot, opts)
	if err != nil {
		return err
	}
	prog.done("rendered", "scenario", filepath.Base(path), "format", opts.format)

	if opts.output == "" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0644); err != nil {
		return err
	}
	printSuccess(c.out, "Rendered %s", ch.Name())
	printFile(c.out, opts.output)
	return nil
}

// annotate adds solved flows and open locations to ropts. Both stay nil
// when the chain has no optimal solution.
func annotate(ctx context.Context, ch *chain.Chain, ropts render.Options) (render.Options, error) {
	flows, err := ch.ArcValues(ctx)
	if err != nil || flows == nil {
		return ropts, err
	}
	ropts.Flows = flows
	ropts.Open = make(map[string][]int)
	for _, l := range ch.Layers() {
		if !l.Selectable() && l.Pinned() == nil {
			continue
		}
		open, err := ch.OpenLocations(ctx, l)
		if err != nil {
			return ropts, err
		}
		ropts.Open[l.Name()] = open
	}
	return ropts, nil
}

func encode(ctx context.Context, dot string, opts *renderOpts) ([]byte, error) {
	if opts.format == formatDOT {
		return []byte(dot), nil
	}
	svg, err := render.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch opts.format {
	case formatPDF:
		return render.ToPDF(ctx, svg)
	case formatPNG:
		return render.ToPNG(ctx, svg, opts.scale)
	}
	return svg, nil
}
