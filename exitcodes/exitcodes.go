// Package exitcodes defines the exit codes op-harness terminates with.
package exitcodes

// Exit code constants used by op-harness:
//
// * Success (0): every executed case passed or was skipped
// * TestFailure (1): one or more cases failed
// * RuntimeErr (2): the run could not be carried out, for example a bad flag
// or an invalid suite file
const (
	Success     = 0 // All cases pass or skip
	TestFailure = 1 // Case failures
	RuntimeErr  = 2 // Configuration, loading or other runtime errors
)
