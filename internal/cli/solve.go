package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chainopt/chainopt/pkg/chain"
	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/observability"
	"github.com/chainopt/chainopt/pkg/observability/prom"
	"github.com/chainopt/chainopt/pkg/scenario"
)

// solveOpts holds the command-line flags for the solve command.
type solveOpts struct {
	solver     solverFlags
	timeout    time.Duration // per-scenario solve timeout, 0 for none
	workers    int           // concurrent solves
	arcs       bool          // print every arc
	usedArcs   bool          // print arcs with flow only
	metricsOut string        // Prometheus textfile path
}

// solveOutcome is the result of one scenario.
type solveOutcome struct {
	path   string
	chain  *chain.Chain
	result *chain.Result
	err    error
}

func (c *CLI) solveCommand() *cobra.Command {
	opts := solveOpts{workers: 4}

	cmd := &cobra.Command{
		Use:   "solve [file...]",
		Short: "Solve one or more scenarios for the cheapest feasible flow",
		Long: `Solve loads each scenario, compiles its network into a linear program and
prints the optimal cost. Several scenarios are solved concurrently.

Solutions are cached by model, so re-solving an unchanged scenario is free.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd.Context(), args, &opts)
		},
	}

	opts.solver.register(cmd)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-scenario solve timeout (e.g. 30s); 0 disables")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", opts.workers, "number of scenarios solved concurrently")
	cmd.Flags().BoolVar(&opts.arcs, "arcs", false, "print the flow on every arc")
	cmd.Flags().BoolVar(&opts.usedArcs, "used-arcs", false, "print arcs that carry flow")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")

	return cmd
}

func (c *CLI) runSolve(ctx context.Context, paths []string, opts *solveOpts) error {
	logger := loggerFromContext(ctx)

	var metrics *prom.Hooks
	if opts.metricsOut != "" {
		metrics = prom.New(nil)
		observability.SetSolveHooks(metrics)
		observability.SetCacheHooks(metrics)
		defer observability.Reset()
	}

	solver, closeCache, err := opts.solver.build(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	outcomes := make([]solveOutcome, len(paths))
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(max(opts.workers, 1), func(arg any) {
		defer wg.Done()
		i := arg.(int)
		outcomes[i] = c.solveOne(ctx, paths[i], solver, opts.timeout)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create worker pool")
	}
	defer pool.Release()

	prog := newProgress(logger)
	for i := range paths {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			outcomes[i] = solveOutcome{path: paths[i], err: err}
		}
	}
	wg.Wait()
	prog.done("solved scenarios", "count", len(paths), "workers", opts.workers)

	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			if stderrors.Is(o.err, context.Canceled) {
				return o.err
			}
			printError(c.out, "%s: %s", o.path, errors.UserMessage(o.err))
			errs = append(errs, fmt.Errorf("%s: %w", o.path, o.err))
			continue
		}
		if err := c.printOutcome(ctx, o, opts); err != nil {
			errs = append(errs, err)
		}
	}

	if metrics != nil {
		if err := prometheus.WriteToTextfile(opts.metricsOut, metrics.Gatherer()); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		} else {
			printFile(c.out, opts.metricsOut)
		}
	}
	return stderrors.Join(errs...)
}

// solveOne loads, builds and solves a single scenario.
func (c *CLI) solveOne(ctx context.Context, path string, solver lp.Solver, timeout time.Duration) solveOutcome {
	logger := loggerFromContext(ctx).With("scenario", filepath.Base(path))
	out := solveOutcome{path: path}

	s, err := scenario.Load(path)
	if err != nil {
		out.err = err
		return out
	}
	ch, err := s.Build(chain.WithSolver(solver), chain.WithLogger(logger))
	if err != nil {
		out.err = err
		return out
	}
	out.chain = ch

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out.result, out.err = ch.Result(ctx)
	return out
}

func (c *CLI) printOutcome(ctx context.Context, o solveOutcome, opts *solveOpts) error {
	name := o.chain.Name()
	if o.result == nil {
		printWarning(c.out, "%s: %s", name, o.chain.Status())
		printDetail(c.out, "%s", o.path)
		return nil
	}

	printSuccess(c.out, "%s %s", StyleTitle.Render(name), StyleDim.Render(o.chain.Status().String()))
	printKeyValue(c.out, "cost", StyleNumber.Render(strconv.FormatFloat(o.result.Objective, 'f', -1, 64)))
	printKeyValue(c.out, "model", fmt.Sprintf("%d variables, %d constraints",
		len(o.result.Model.Vars()), len(o.result.Model.Constraints())))
	printKeyValue(c.out, "run", o.result.RunID.String())
	printKeyValue(c.out, "file", o.path)

	for _, l := range o.chain.Layers() {
		if !l.Selectable() {
			continue
		}
		open, err := o.chain.OpenLocations(ctx, l)
		if err != nil {
			return err
		}
		printKeyValue(c.out, l.Name(), "open "+fmt.Sprint(open))
	}

	if opts.arcs || opts.usedArcs {
		values, err := o.chain.ArcValues(ctx)
		if err != nil {
			return err
		}
		printArcTable(c.out, values, !opts.arcs)
	}
	return nil
}
