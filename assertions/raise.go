package assertions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Kind describes an error Raise is prepared to accept
type Kind struct {
	name    string
	matches func(error) bool
}

func (k Kind) String() string {
	return k.name
}

// Is accepts errors for which errors.Is(err, target) holds
func Is(target error) Kind {
	return Kind{
		name:    fmt.Sprintf("%v", target),
		matches: func(err error) bool { return errors.Is(err, target) },
	}
}

// As accepts errors that errors.As can assign to T, so wrapped errors and
// implementations of an interface T both qualify.
func As[T error]() Kind {
	return Kind{
		name: reflect.TypeOf((*T)(nil)).Elem().String(),
		matches: func(err error) bool {
			var target T
			return errors.As(err, &target)
		},
	}
}

// Raise runs fn and returns the error it returned or panicked with, provided
// the error matches one of kinds. With no kinds any error is accepted.
// Assertion signals raised inside fn are not caught.
func Raise(fn func() error, kinds ...Kind) error {
	return raise(fn, kinds)
}

// RaiseWithMessage is Raise that also requires the caught error's message to
// match pattern, which may be a string or a *regexp.Regexp.
func RaiseWithMessage(fn func() error, pattern any, kinds ...Kind) error {
	err := raise(fn, kinds)
	match(pattern, err.Error(), Message("expected error message to match %v, but was %q", pattern, err.Error()))
	return err
}

// NothingRaised runs fn and fails if it returns or panics with an error
func NothingRaised(fn func() error, msgAndArgs ...any) {
	err := capture(fn)
	check(err == nil, func(bool) string {
		return fmt.Sprintf("expected nothing to be raised, but got %T: %v", err, err)
	}, options(msgAndArgs)...)
}

func raise(fn func() error, kinds []Kind) error {
	err := capture(fn)
	if err == nil {
		if len(kinds) == 0 {
			fail("expected an error to be raised, but nothing was")
		}
		fail(fmt.Sprintf("expected %s to be raised, but nothing was", kindNames(kinds)))
	}
	if len(kinds) == 0 {
		return err
	}
	for _, k := range kinds {
		if k.matches(err) {
			return err
		}
	}
	fail(fmt.Sprintf("expected %s to be raised, but got %T: %v", kindNames(kinds), err, err))
	return nil
}

// capture converts a panic in fn into an error. Signals are re-panicked so
// they keep unwinding the case.
func capture(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if sig, ok := r.(Signal); ok {
			panic(sig)
		}
		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = &PanicError{Value: r}
	}()
	return fn()
}

func kindNames(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}
