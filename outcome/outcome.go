// Package outcome maps whatever ended a case to exactly one of pass, skip or fail.
package outcome

import (
	"errors"

	"github.com/ethereum-optimism/infra/op-harness/assertions"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ErrCaseAborted reports a case goroutine that exited without returning,
// which happens when the body calls runtime.Goexit.
var ErrCaseAborted = errors.New("case aborted before returning")

// Classify maps the error a case ended with to an outcome. Skips are checked
// first so a wrapped Skip never counts as a failure. Anything that is neither
// a Skip nor a Failure is a foreign error and fails the case.
func Classify(err error) types.Outcome {
	if err == nil {
		return types.Outcome{Status: types.TestStatusPass}
	}

	var skip *assertions.Skip
	if errors.As(err, &skip) {
		return types.Outcome{Status: types.TestStatusSkip, Reason: skip.Reason()}
	}

	var failure *assertions.Failure
	if errors.As(err, &failure) {
		return types.Outcome{Status: types.TestStatusFail, Err: err, Origin: failure.Origin}
	}

	return types.Outcome{Status: types.TestStatusFail, Err: err}
}

// FromRecovered converts a value recovered from a panic into an error.
// Signals are returned as they are. Anything else, including runtime errors,
// is wrapped in a PanicError that unwraps to the value when it is an error.
func FromRecovered(v any) error {
	switch r := v.(type) {
	case nil:
		return nil
	case assertions.Signal:
		return r
	default:
		return &assertions.PanicError{Value: r}
	}
}
