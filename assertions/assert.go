// Package assertions provides the checks a case body uses to express expectations.
//
// A check that does not hold unwinds the case by panicking with a *Failure. Omit
// unwinds it with a *Skip. The runner recovers both at the case boundary and
// classifies the case accordingly, so assertions may be called from anywhere in
// the case goroutine, including helpers.
//
// Every check funnels through a single primitive that owns inversion and
// message formatting, so each NotX is the X check with the Inverse option.
package assertions

import (
	"fmt"
)

// Option adjusts how a single check is evaluated and reported
type Option func(*settings)

type settings struct {
	inverse bool
	message string

	// only consulted by InOutErr
	exitStatus *int
	success    bool
}

// Message overrides the default failure message
func Message(format string, args ...any) Option {
	return func(s *settings) {
		if len(args) == 0 {
			s.message = format
			return
		}
		s.message = fmt.Sprintf(format, args...)
	}
}

// Inverse negates the condition before it is evaluated
func Inverse() Option {
	return func(s *settings) {
		s.inverse = !s.inverse
	}
}

// ExitStatus makes InOutErr also require the child to exit with code
func ExitStatus(code int) Option {
	return func(s *settings) {
		s.exitStatus = &code
	}
}

// Success makes InOutErr also require the child to exit normally with status zero
func Success() Option {
	return func(s *settings) {
		s.success = true
	}
}

// describeFunc renders the default failure message. It receives whether the
// check was inverted so it can phrase the expectation accordingly.
type describeFunc func(inverse bool) string

// check is the one place where a condition is evaluated
func check(ok bool, describe describeFunc, opts ...Option) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.inverse {
		ok = !ok
	}
	if ok {
		return
	}
	if s.message != "" {
		fail(s.message)
	}
	fail(describe(s.inverse))
}

// Assert signals a Failure unless cond holds
func Assert(cond bool, opts ...Option) {
	check(cond, func(inverse bool) string {
		if inverse {
			return "assert fail: expected condition to be false"
		}
		return "assert fail: expected condition to be true"
	}, opts...)
}

// Refute signals a Failure if cond holds
func Refute(cond bool, opts ...Option) {
	Assert(cond, append(opts, Inverse())...)
}

// Fail signals a Failure unconditionally
func Fail(msgAndArgs ...any) {
	msg := messageFromArgs(msgAndArgs)
	if msg == "" {
		msg = "assert fail"
	}
	fail(msg)
}

// messageFromArgs follows the testify convention: a single value is printed,
// a leading format string is applied to the rest.
func messageFromArgs(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}

// options converts trailing testify style arguments into check options
func options(msgAndArgs []any, extra ...Option) []Option {
	opts := make([]Option, 0, len(extra)+1)
	if msg := messageFromArgs(msgAndArgs); msg != "" {
		opts = append(opts, Message("%s", msg))
	}
	return append(opts, extra...)
}
