package runner

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/outcome"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// SuiteReport is everything a worker hands back once its suite is done
type SuiteReport struct {
	Name     string
	Source   string
	WorkerID string
	Tally    types.Tally
	Cases    []types.CaseResult
	Duration time.Duration
}

// worker runs the cases of exactly one suite, one after another
type worker struct {
	id       string
	runID    string
	suite    registry.Descriptor
	filter   *regexp.Regexp
	progress *Progress
	log      log.Logger
	tracer   trace.Tracer
}

func (w *worker) run(ctx context.Context) SuiteReport {
	ctx, span := w.tracer.Start(ctx, fmt.Sprintf("suite %s", w.suite.Name))
	defer span.End()

	start := time.Now()
	cases := w.selectCases()
	w.progress.Logf(w.id, "%s (%d cases)", w.suite.Name, len(cases))
	w.log.Debug("Running suite", "cases", len(cases), "source", w.suite.Source)

	report := SuiteReport{
		Name:     w.suite.Name,
		Source:   w.suite.Source,
		WorkerID: w.id,
		Cases:    make([]types.CaseResult, 0, len(cases)),
	}
	for _, name := range cases {
		res := w.runCase(ctx, name)
		report.Tally.Record(res.Outcome)
		report.Cases = append(report.Cases, res)
	}
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("success", report.Tally.Success),
		attribute.Int("skipped", report.Tally.Skipped),
		attribute.Int("failed", report.Tally.Failed),
	)
	if report.Tally.Failed > 0 {
		span.SetStatus(codes.Error, report.Tally.String())
	}
	return report
}

// selectCases applies the case filter. Cases are already sorted by the registry.
func (w *worker) selectCases() []string {
	if w.filter == nil {
		return w.suite.Cases
	}
	var out []string
	for _, name := range w.suite.Cases {
		if w.filter.MatchString(name) {
			out = append(out, name)
		}
	}
	return out
}

func (w *worker) runCase(ctx context.Context, name string) types.CaseResult {
	ctx, span := w.tracer.Start(ctx, fmt.Sprintf("case %s", name))
	defer span.End()

	start := time.Now()
	var inst registry.Instance
	err := isolate(func() error {
		inst = w.suite.Factory()
		if hook, ok := inst.(registry.SetupHook); ok {
			if err := hook.Setup(ctx); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
		}
		return inst.Run(ctx, name)
	})
	o := outcome.Classify(err)

	if hook, ok := inst.(registry.TeardownHook); ok {
		if terr := isolate(func() error { return hook.Teardown(ctx) }); terr != nil {
			w.log.Warn("Teardown failed", "case", name, "err", terr)
			metrics.RecordTeardownError(w.suite.Name)
		}
	}

	res := types.CaseResult{Name: name, Outcome: o, Duration: time.Since(start)}
	metrics.RecordCase(w.runID, w.suite.Name, o.Status)
	span.SetAttributes(attribute.String("status", string(o.Status)))
	if o.Status == types.TestStatusFail {
		span.SetStatus(codes.Error, o.Message())
	}

	if msg := o.Message(); msg != "" {
		w.progress.Logf(w.id, "  %s: %s: %s", name, o.Status, msg)
	} else {
		w.progress.Logf(w.id, "  %s: %s", name, o.Status)
	}
	return res
}

// isolate runs fn on its own goroutine and waits for it. Panics are
// recovered into errors, and a goroutine that exits through runtime.Goexit
// yields ErrCaseAborted, so nothing fn does can take down the worker.
func isolate(fn func() error) error {
	done := make(chan error, 1)
	go func() {
		returned := false
		defer func() {
			if returned {
				return
			}
			if r := recover(); r != nil {
				done <- outcome.FromRecovered(r)
				return
			}
			done <- outcome.ErrCaseAborted
		}()
		err := fn()
		returned = true
		done <- err
	}()
	return <-done
}
