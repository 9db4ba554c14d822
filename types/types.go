// Package types contains shared types used across the harness
package types

import (
	"fmt"
	"time"
)

// TestStatus represents the possible states of a case execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// Outcome is the classified result of running one case.
// Exactly one is produced per case execution and it is never mutated afterwards.
type Outcome struct {
	Status TestStatus
	Reason string // Skip payload, empty unless Status is skip
	Err    error  // Failure cause, nil unless Status is fail
	Origin string // Call site of the failing assertion, if known
}

// Message returns a one-line description of the outcome suitable for progress logs
func (o Outcome) Message() string {
	switch o.Status {
	case TestStatusSkip:
		return o.Reason
	case TestStatusFail:
		if o.Err == nil {
			return ""
		}
		if o.Origin != "" {
			return fmt.Sprintf("%v (%s)", o.Err, o.Origin)
		}
		return o.Err.Error()
	default:
		return ""
	}
}

// Tally counts case outcomes for one suite, or for a whole run.
type Tally struct {
	Success int
	Skipped int
	Failed  int
}

// Record increments the counter matching the outcome's status
func (t *Tally) Record(o Outcome) {
	switch o.Status {
	case TestStatusPass:
		t.Success++
	case TestStatusSkip:
		t.Skipped++
	default:
		t.Failed++
	}
}

// Add folds another tally into this one
func (t *Tally) Add(other Tally) {
	t.Success += other.Success
	t.Skipped += other.Skipped
	t.Failed += other.Failed
}

// Total returns the number of cases counted
func (t Tally) Total() int {
	return t.Success + t.Skipped + t.Failed
}

// Status derives an overall status: any failure fails, otherwise all-skipped skips.
func (t Tally) Status() TestStatus {
	switch {
	case t.Failed > 0:
		return TestStatusFail
	case t.Success == 0 && t.Skipped > 0:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}

func (t Tally) String() string {
	return fmt.Sprintf("success=%d skipped=%d failed=%d", t.Success, t.Skipped, t.Failed)
}

// CaseResult captures the outcome of a single case run
type CaseResult struct {
	Name     string
	Outcome  Outcome
	Duration time.Duration
}
