package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainopt/chainopt/pkg/chain"
	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/scenario"
)

func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write a scenario's linear program in free MPS format",
		Long: `Export compiles a scenario without solving it and writes the model in free
MPS format, ready for any LP/MIP solver. Rows and columns are named R<n> and
C<n>; comment lines map them back to constraint and variable names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) runExport(ctx context.Context, path, output string) error {
	logger := loggerFromContext(ctx)

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	ch, err := s.Build(chain.WithLogger(logger))
	if err != nil {
		return err
	}
	m, err := ch.Model()
	if err != nil {
		return err
	}

	if output == "" {
		return lp.WriteMPS(c.out, m)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := lp.WriteMPS(w, m); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Debug("model exported", "vars", len(m.Vars()), "constraints", len(m.Constraints()))
	printSuccess(c.out, "Exported %s", ch.Name())
	printFile(c.out, output)
	return nil
}
