package assertions

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// pkgPrefix is the function-name prefix of frames that belong to this package
var pkgPrefix = reflect.TypeOf(Failure{}).PkgPath() + "."

// Signal is the closed set of values an assertion can unwind a case with.
// Only *Failure and *Skip implement it.
type Signal interface {
	error
	signal()
}

var (
	_ Signal = (*Failure)(nil)
	_ Signal = (*Skip)(nil)
)

// Failure is signaled when an assertion does not hold
type Failure struct {
	Message string
	Origin  string // file:line of the assertion call site, captured when signaled
}

func (f *Failure) Error() string {
	return f.Message
}

func (*Failure) signal() {}

// Skip is signaled by Omit. It marks a case as skipped rather than failed.
type Skip struct {
	Payload any
}

func (s *Skip) Error() string {
	return "skipped: " + s.Reason()
}

// Reason renders the payload, or "omitted" when there is none
func (s *Skip) Reason() string {
	if s.Payload == nil {
		return "omitted"
	}
	return fmt.Sprint(s.Payload)
}

func (*Skip) signal() {}

// PanicError wraps a value recovered from a panic that was not a Signal
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// fail unwinds the current case with a Failure located at the nearest caller
// outside this package.
func fail(message string) {
	panic(&Failure{Message: message, Origin: callerOrigin()})
}

// callerOrigin walks the stack to the first frame outside this package
func callerOrigin() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, pkgPrefix) {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}
