// Package harness wires suite discovery, the dispatcher and reporting into a
// cliapp.Lifecycle that performs a single run.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/process"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/reporting"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/service"
	"github.com/ethereum-optimism/infra/op-harness/suitefile"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

var _ cliapp.Lifecycle = (*Harness)(nil)

// Options carries collaborators that are not set from flags
type Options struct {
	Registry *registry.Registry // Pre-populated with Go suites; a fresh one is used when nil
	Spawner  process.Spawner    // Overrides the interpreter from Config
	Stdout   io.Writer          // Table and summary, defaults to os.Stdout
	Stderr   io.Writer          // Progress log, defaults to os.Stderr
}

// Harness performs one run over every registered suite
type Harness struct {
	config   *Config
	version  string
	registry *registry.Registry
	loader   *suitefile.Loader
	runner   *runner.Dispatcher
	stdout   io.Writer
	result   *runner.RunnerResult

	running atomic.Bool

	shutdownCallback context.CancelCauseFunc
}

// New creates a harness. shutdownCallback is invoked once a passing run has
// completed so the application can exit.
func New(ctx context.Context, config *Config, version string, shutdownCallback context.CancelCauseFunc, opts Options) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}
	config.Log.Debug("Creating harness with config",
		"paths", config.Paths,
		"root", config.Root,
		"interpreter", config.Interpreter,
		"concurrency", config.Concurrency)

	reg := opts.Registry
	if reg == nil {
		reg = registry.NewRegistry(registry.Config{Log: config.Log})
	}

	spawner := opts.Spawner
	if spawner == nil {
		s, err := process.ParseCommand(config.Log, config.Interpreter)
		if err != nil {
			return nil, fmt.Errorf("failed to create spawner: %w", err)
		}
		spawner = s
	}

	loader, err := suitefile.NewLoader(suitefile.Config{
		Log:      config.Log,
		Registry: reg,
		Spawner:  spawner,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	dispatcher, err := runner.NewDispatcher(runner.Config{
		Log:         config.Log,
		Progress:    runner.NewProgress(stderr, nil),
		Filter:      config.Filter,
		SortSuites:  config.SortSuites,
		Concurrency: config.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	return &Harness{
		config:           config,
		version:          version,
		registry:         reg,
		loader:           loader,
		runner:           dispatcher,
		stdout:           stdout,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start loads the suite files and performs the run.
// Start implements the cliapp.Lifecycle interface.
func (h *Harness) Start(ctx context.Context) error {
	h.running.Store(true)
	h.config.Log.Info("Starting op-harness", "version", h.version)

	if h.config.Serve {
		svc := service.New(service.Config{
			Log:         h.config.Log,
			HealthzAddr: h.config.HealthzAddr,
			MetricsAddr: h.config.MetricsAddr(),
			Running:     h.running.Load,
		})
		svc.Start(ctx)
		defer svc.Shutdown()
	}

	if err := h.run(ctx); err != nil {
		h.config.Log.Error("Runtime error running suites", "error", err)
		return err
	}

	if h.result.Status == types.TestStatusFail {
		h.config.Log.Warn("Run completed with failures, returning exit code 1")
		return NewTestFailureError(reporting.Summary(h.result))
	}

	go h.shutdownCallback(nil)
	return nil
}

func (h *Harness) run(ctx context.Context) error {
	handles, err := h.loader.Load(h.config.Paths, h.config.Root)
	if err != nil {
		metrics.RecordErrorDetails("load", err)
		return NewRuntimeError(err)
	}
	h.config.Log.Info("Loaded suite files", "files", len(handles), "suites", h.registry.Len())

	result, err := h.runner.Run(ctx, h.registry.Snapshot())
	if err != nil {
		metrics.RecordErrorDetails("run", err)
		return NewRuntimeError(err)
	}
	h.result = result
	h.running.Store(false)

	if h.config.ShowTable {
		reporting.RenderTable(h.stdout, result)
	}
	fmt.Fprintln(h.stdout, reporting.Summary(result))
	metrics.RecordRun(result.RunID, result.Totals, result.Duration)

	h.config.Log.Info("Run completed", "run_id", result.RunID, "status", result.Status)
	return nil
}

// Result returns the outcome of the completed run, nil before Start returns
func (h *Harness) Result() *runner.RunnerResult {
	return h.result
}

// Stop implements the cliapp.Lifecycle interface
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping op-harness")
	h.running.Store(false)
	return nil
}

// Stopped implements the cliapp.Lifecycle interface
func (h *Harness) Stopped() bool {
	return !h.running.Load()
}
