// Package cli implements the chainopt command-line interface.
//
// The commands load supply-chain scenarios (TOML or YAML), compile them
// into linear programs and solve, export or draw them:
//   - solve: solve one or more scenarios and print cost and flows
//   - export: write the compiled model as free MPS
//   - render: draw the network (DOT, SVG, PDF or PNG)
//   - cache: manage the local solution cache
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels through context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chainopt/chainopt/pkg/buildinfo"
	"github.com/chainopt/chainopt/pkg/cache"
)

const (
	// appName is the application name used for directories and display.
	appName = "chainopt"

	// redisEnv supplies a default for --redis.
	redisEnv = "CHAINOPT_REDIS"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	out    io.Writer
}

// New creates a CLI that logs to w and prints results to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: os.Stdout}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command results, e.g. to a buffer in tests.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "chainopt optimizes flows through multi-echelon supply chains",
		Long:         `chainopt compiles supply-chain networks of supply, transshipment and demand layers into linear programs and solves them for the cheapest feasible flow, optionally choosing which locations to open.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newCache opens the solution cache: Redis when an address is given, the
// local file cache otherwise, nothing with noCache.
func newCache(ctx context.Context, noCache bool, redisAddr string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisOptions{Addr: redisAddr, Prefix: appName + ":"})
	}
	dir, err := cacheDir()
	if err != nil {
		loggerFromContext(ctx).Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/chainopt/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
