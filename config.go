package harness

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-harness/flags"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the application configuration
type Config struct {
	Paths       []string       // Suite files or directories, absolute. Empty means Root.
	Root        string         // Conventional directory searched when Paths is empty
	Filter      *regexp.Regexp // Restricts cases by name, nil runs everything
	Interpreter string         // Command line used for suite file run steps
	Concurrency int            // Maximum suites running at once, 0 for no limit
	SortSuites  bool
	ShowTable   bool
	Serve       bool   // Serve the health check while running
	HealthzAddr string
	Metrics     opmetrics.CLIConfig
	Log         log.Logger
}

// MetricsAddr is the listen address of the metrics endpoint, empty when disabled
func (c *Config) MetricsAddr() string {
	if !c.Metrics.Enabled {
		return ""
	}
	return net.JoinHostPort(c.Metrics.ListenAddr, strconv.Itoa(c.Metrics.ListenPort))
}

// NewConfig creates a new Config from the cli context. args are the
// positional arguments; a trailing "-e <pattern>" among them is taken as the
// case filter, so both "op-harness -e foo dir" and "op-harness dir -e foo"
// work.
func NewConfig(ctx *cli.Context, log log.Logger, args []string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	paths, trailing, err := splitFilter(args)
	if err != nil {
		return nil, err
	}
	pattern := ctx.String(flags.Filter.Name)
	if trailing != "" {
		if pattern != "" && pattern != trailing {
			return nil, fmt.Errorf("filter given twice: %q and %q", pattern, trailing)
		}
		pattern = trailing
	}

	var filter *regexp.Regexp
	if pattern != "" {
		filter, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
		}
	}

	absPaths := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for '%s': %w", p, err)
		}
		absPaths = append(absPaths, abs)
	}

	root := ctx.String(flags.Root.Name)
	if root == "" {
		return nil, errors.New("root directory is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for root '%s': %w", root, err)
	}

	concurrency := ctx.Int(flags.Concurrency.Name)
	if concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative: %d", concurrency)
	}

	return &Config{
		Paths:       absPaths,
		Root:        absRoot,
		Filter:      filter,
		Interpreter: ctx.String(flags.Interpreter.Name),
		Concurrency: concurrency,
		SortSuites:  ctx.Bool(flags.SortSuites.Name),
		ShowTable:   ctx.Bool(flags.ShowTable.Name),
		Serve:       ctx.Bool(flags.Serve.Name),
		HealthzAddr: ctx.String(flags.HealthzAddr.Name),
		Metrics:     opmetrics.ReadCLIConfig(ctx),
		Log:         log,
	}, nil
}

// splitFilter separates positional paths from a "-e <pattern>" pair
func splitFilter(args []string) (paths []string, pattern string, err error) {
	for i := 0; i < len(args); i++ {
		if args[i] != "-e" {
			paths = append(paths, args[i])
			continue
		}
		if i+1 >= len(args) {
			return nil, "", errors.New("-e requires a pattern")
		}
		if pattern != "" {
			return nil, "", errors.New("-e given more than once")
		}
		pattern = args[i+1]
		i++
	}
	return paths, pattern, nil
}
