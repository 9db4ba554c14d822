// Package runner executes registered suites, one isolated worker per suite,
// and folds their tallies into run totals.
package runner

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// RunnerResult is the outcome of a whole run
type RunnerResult struct {
	RunID    string
	Suites   []SuiteReport // In dispatch order
	Totals   types.Tally
	Status   types.TestStatus
	Duration time.Duration
}

// Config holds configuration for creating a new dispatcher
type Config struct {
	Log         log.Logger
	Progress    *Progress      // Defaults to stderr with the wall clock
	Filter      *regexp.Regexp // Restricts cases by name in every suite
	SortSuites  bool           // Dispatch suites ordered by name instead of declaration order
	Concurrency int            // Maximum suites running at once, 0 for no limit
	RunID       string         // Generated when empty
}

// Dispatcher turns a registry snapshot into run totals
type Dispatcher struct {
	cfg    Config
	log    log.Logger
	tracer trace.Tracer
}

// NewDispatcher creates a new dispatcher instance
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Progress == nil {
		cfg.Progress = NewProgress(nil, nil)
	}
	if cfg.Concurrency > 32 {
		cfg.Log.Warn("Very high concurrency requested", "concurrency", cfg.Concurrency)
	}
	return &Dispatcher{
		cfg:    cfg,
		log:    cfg.Log.New("component", "dispatcher"),
		tracer: otel.Tracer("harness dispatcher"),
	}, nil
}

type completion struct {
	index  int
	report SuiteReport
}

// Run executes every suite on its own worker and blocks until all are done.
// Totals are folded here, on the calling goroutine, once per completed suite.
func (d *Dispatcher) Run(ctx context.Context, suites []registry.Descriptor) (*RunnerResult, error) {
	runID := d.cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx, span := d.tracer.Start(ctx, "run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	start := time.Now()
	suites = d.order(suites)
	d.log.Info("Starting run", "run_id", runID, "suites", len(suites), "concurrency", d.cfg.Concurrency)

	// buffered so finished workers never wait on the fold loop
	results := make(chan completion, len(suites))
	var slots chan struct{}
	if d.cfg.Concurrency > 0 {
		slots = make(chan struct{}, d.cfg.Concurrency)
	}

	for i, desc := range suites {
		w := &worker{
			id:       fmt.Sprintf("worker-%d", i+1),
			runID:    runID,
			suite:    desc,
			filter:   d.cfg.Filter,
			progress: d.cfg.Progress,
			log:      d.log.New("suite", desc.Name, "worker", i+1),
			tracer:   d.tracer,
		}
		go func(i int) {
			if slots != nil {
				slots <- struct{}{}
				defer func() { <-slots }()
			}
			results <- completion{index: i, report: w.run(ctx)}
		}(i)
	}

	result := &RunnerResult{
		RunID:  runID,
		Suites: make([]SuiteReport, len(suites)),
	}
	for range suites {
		c := <-results
		result.Suites[c.index] = c.report
		result.Totals.Add(c.report.Tally)
		d.cfg.Progress.Logf(MainID, "%s: %s | total: %s", c.report.Name, c.report.Tally, result.Totals)
		metrics.RecordSuite(runID, c.report.Name, c.report.Tally, c.report.Duration)
	}

	result.Duration = time.Since(start)
	result.Status = result.Totals.Status()
	span.SetAttributes(attribute.String("status", string(result.Status)))

	d.log.Info("Run completed",
		"run_id", runID,
		"duration", result.Duration,
		"status", result.Status,
		"success", result.Totals.Success,
		"skipped", result.Totals.Skipped,
		"failed", result.Totals.Failed)
	return result, nil
}

func (d *Dispatcher) order(suites []registry.Descriptor) []registry.Descriptor {
	out := make([]registry.Descriptor, len(suites))
	copy(out, suites)
	if d.cfg.SortSuites {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}
