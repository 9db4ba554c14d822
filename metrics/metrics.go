package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

const (
	MetricsNamespace = "harness"
)

var (
	Debug                bool = true
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of executed cases",
	}, []string{
		"run_id",
		"suite",
		"result",
	})

	suitesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suites_total",
		Help:      "Count of completed suites",
	}, []string{
		"run_id",
		"result",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration_seconds",
		Help:      "Wall time spent running a suite",
	}, []string{
		"run_id",
		"suite",
	})

	teardownErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "teardown_errors_total",
		Help:      "Count of errors returned by case teardown hooks",
	}, []string{
		"suite",
	})

	runCases = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_cases",
		Help:      "Case totals of a run by result",
	}, []string{
		"run_id",
		"result",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Overall result of a run",
	}, []string{
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordCase(runID string, suite string, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordCase - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"run_id", runID,
			"suite", suite,
			"result", result)
	}
	casesTotal.WithLabelValues(runID, suite, string(result)).Inc()
}

func RecordSuite(runID string, suite string, tally types.Tally, duration time.Duration) {
	suitesTotal.WithLabelValues(runID, string(tally.Status())).Inc()
	suiteDuration.WithLabelValues(runID, suite).Set(duration.Seconds())
}

func RecordTeardownError(suite string) {
	if Debug {
		log.Debug("metric inc",
			"m", "teardown_errors_total",
			"suite", suite)
	}
	teardownErrorsTotal.WithLabelValues(suite).Inc()
}

func RecordRun(runID string, totals types.Tally, duration time.Duration) {
	runResults.WithLabelValues(runID, string(totals.Status())).Set(1)
	runCases.WithLabelValues(runID, string(types.TestStatusPass)).Set(float64(totals.Success))
	runCases.WithLabelValues(runID, string(types.TestStatusSkip)).Set(float64(totals.Skipped))
	runCases.WithLabelValues(runID, string(types.TestStatusFail)).Set(float64(totals.Failed))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
