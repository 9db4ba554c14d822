package assertions

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
)

// Equal asserts that expected and actual are deeply equal
func Equal(expected, actual any, msgAndArgs ...any) {
	equal(expected, actual, options(msgAndArgs)...)
}

// NotEqual asserts that expected and actual are not deeply equal
func NotEqual(expected, actual any, msgAndArgs ...any) {
	equal(expected, actual, options(msgAndArgs, Inverse())...)
}

func equal(expected, actual any, opts ...Option) {
	check(objectsAreEqual(expected, actual), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("should not be equal: %s", format(actual))
		}
		return fmt.Sprintf("not equal:\nexpected: %s\nactual  : %s%s",
			format(expected), format(actual), diff(expected, actual))
	}, opts...)
}

// Same asserts that two pointers reference the same object
func Same(expected, actual any, msgAndArgs ...any) {
	same(expected, actual, options(msgAndArgs)...)
}

// NotSame asserts that two pointers do not reference the same object
func NotSame(expected, actual any, msgAndArgs ...any) {
	same(expected, actual, options(msgAndArgs, Inverse())...)
}

func same(expected, actual any, opts ...Option) {
	check(samePointers(expected, actual), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected different objects, both are %p %s", actual, format(actual))
		}
		return fmt.Sprintf("not same:\nexpected: %p %s\nactual  : %p %s",
			expected, format(expected), actual, format(actual))
	}, opts...)
}

func samePointers(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != reflect.Ptr || bv.Kind() != reflect.Ptr {
		return false
	}
	return av.Type() == bv.Type() && av.Pointer() == bv.Pointer()
}

// Nil asserts that obj is nil, including typed nils
func Nil(obj any, msgAndArgs ...any) {
	isNilCheck(obj, options(msgAndArgs)...)
}

// NotNil asserts that obj is not nil
func NotNil(obj any, msgAndArgs ...any) {
	isNilCheck(obj, options(msgAndArgs, Inverse())...)
}

func isNilCheck(obj any, opts ...Option) {
	check(isNil(obj), func(inverse bool) string {
		if inverse {
			return "expected value not to be nil"
		}
		return fmt.Sprintf("expected nil, but got: %s", format(obj))
	}, opts...)
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

// Match asserts that the regular expression matches somewhere in s.
// String patterns are compiled in multi-line mode so ^ and $ anchor at lines.
func Match(pattern any, s string, msgAndArgs ...any) {
	match(pattern, s, options(msgAndArgs)...)
}

// NoMatch asserts that the regular expression does not match s
func NoMatch(pattern any, s string, msgAndArgs ...any) {
	match(pattern, s, options(msgAndArgs, Inverse())...)
}

func match(pattern any, s string, opts ...Option) {
	re, err := compilePattern(pattern)
	if err != nil {
		fail(err.Error())
	}
	check(re.MatchString(s), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected /%s/ not to match %q", re, s)
		}
		return fmt.Sprintf("expected /%s/ to match %q", re, s)
	}, opts...)
}

func compilePattern(pattern any) (*regexp.Regexp, error) {
	switch p := pattern.(type) {
	case *regexp.Regexp:
		if p == nil {
			return nil, fmt.Errorf("nil pattern")
		}
		return p, nil
	case string:
		re, err := regexp.Compile("(?m)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		return re, nil
	default:
		return nil, fmt.Errorf("unsupported pattern type %T", pattern)
	}
}

// KindOf asserts that obj is of the given kind. kind may be a reflect.Type,
// a sample value of the type, or a nil pointer to an interface type such as
// (*error)(nil), in which case obj must implement the interface.
func KindOf(kind, obj any, msgAndArgs ...any) {
	kindOf(kind, obj, options(msgAndArgs)...)
}

// NotKindOf asserts that obj is not of the given kind
func NotKindOf(kind, obj any, msgAndArgs ...any) {
	kindOf(kind, obj, options(msgAndArgs, Inverse())...)
}

func kindOf(kind, obj any, opts ...Option) {
	want := kindType(kind)
	check(isKind(want, obj), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected %T not to be a kind of %v", obj, want)
		}
		return fmt.Sprintf("expected kind of %v, but got %T", want, obj)
	}, opts...)
}

func kindType(kind any) reflect.Type {
	want, ok := kind.(reflect.Type)
	if !ok {
		want = reflect.TypeOf(kind)
	}
	if want != nil && want.Kind() == reflect.Ptr && want.Elem().Kind() == reflect.Interface {
		want = want.Elem()
	}
	return want
}

func isKind(want reflect.Type, obj any) bool {
	got := reflect.TypeOf(obj)
	if want == nil || got == nil {
		return want == got
	}
	if want.Kind() == reflect.Interface {
		return got.Implements(want)
	}
	return got == want
}

// Include asserts that container holds elem. Strings are searched for
// substrings, slices and arrays for elements, maps for keys.
func Include(container, elem any, msgAndArgs ...any) {
	include(container, elem, options(msgAndArgs)...)
}

// NotInclude asserts that container does not hold elem
func NotInclude(container, elem any, msgAndArgs ...any) {
	include(container, elem, options(msgAndArgs, Inverse())...)
}

func include(container, elem any, opts ...Option) {
	found, ok := includes(container, elem)
	if !ok {
		fail(fmt.Sprintf("cannot check inclusion in %T", container))
	}
	check(found, func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("%s should not include %s", format(container), format(elem))
		}
		return fmt.Sprintf("%s does not include %s", format(container), format(elem))
	}, opts...)
}

func includes(container, elem any) (found, ok bool) {
	if container == nil {
		return false, false
	}
	v := reflect.ValueOf(container)
	switch v.Kind() {
	case reflect.String:
		s, isString := elem.(string)
		if !isString {
			return false, false
		}
		return strings.Contains(v.String(), s), true
	case reflect.Map:
		for _, k := range v.MapKeys() {
			if objectsAreEqual(k.Interface(), elem) {
				return true, true
			}
		}
		return false, true
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if objectsAreEqual(v.Index(i).Interface(), elem) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// InDelta asserts that two numbers are within delta of each other
func InDelta(expected, actual any, delta float64, msgAndArgs ...any) {
	inDelta(expected, actual, delta, options(msgAndArgs)...)
}

// NotInDelta asserts that two numbers differ by more than delta
func NotInDelta(expected, actual any, delta float64, msgAndArgs ...any) {
	inDelta(expected, actual, delta, options(msgAndArgs, Inverse())...)
}

func inDelta(expected, actual any, delta float64, opts ...Option) {
	e, eok := toFloat(expected)
	a, aok := toFloat(actual)
	if !eok || !aok {
		fail(fmt.Sprintf("parameters must be numerical, got %T and %T", expected, actual))
	}
	dt := math.Abs(e - a)
	check(!math.IsNaN(dt) && dt <= delta, func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected |%v - %v| = %v to be greater than %v", e, a, dt, delta)
		}
		return fmt.Sprintf("expected |%v - %v| = %v to be within %v", e, a, dt, delta)
	}, opts...)
}

func toFloat(x any) (float64, bool) {
	if x == nil {
		return 0, false
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

// Empty asserts that obj is nil, zero, or has length zero
func Empty(obj any, msgAndArgs ...any) {
	empty(obj, options(msgAndArgs)...)
}

// NotEmpty asserts that obj is neither nil, zero, nor of length zero
func NotEmpty(obj any, msgAndArgs ...any) {
	empty(obj, options(msgAndArgs, Inverse())...)
}

func empty(obj any, opts ...Option) {
	check(isEmpty(obj), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("should not be empty, but was %s", format(obj))
		}
		return fmt.Sprintf("should be empty, but was %s", format(obj))
	}, opts...)
}

func isEmpty(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Ptr:
		if v.IsNil() {
			return true
		}
		return isEmpty(v.Elem().Interface())
	default:
		return v.IsZero()
	}
}

// Operator asserts that "l op r" holds for one of ==, !=, <, <=, >, >=
func Operator(l any, op string, r any, msgAndArgs ...any) {
	operator(l, op, r, options(msgAndArgs)...)
}

// NotOperator asserts that "l op r" does not hold
func NotOperator(l any, op string, r any, msgAndArgs ...any) {
	operator(l, op, r, options(msgAndArgs, Inverse())...)
}

func operator(l any, op string, r any, opts ...Option) {
	ok, err := compare(l, op, r)
	if err != nil {
		fail(err.Error())
	}
	check(ok, func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected %s %s %s to be false", format(l), op, format(r))
		}
		return fmt.Sprintf("expected %s %s %s", format(l), op, format(r))
	}, opts...)
}

func compare(l any, op string, r any) (bool, error) {
	switch op {
	case "==":
		return objectsAreEqual(l, r), nil
	case "!=":
		return !objectsAreEqual(l, r), nil
	case "<", "<=", ">", ">=":
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}

	var c int
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	switch {
	case lok && rok:
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return false, nil
		}
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	case lsok && rsok:
		c = strings.Compare(ls, rs)
	default:
		return false, fmt.Errorf("cannot order %T and %T", l, r)
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// Predicate asserts that pred holds for obj
func Predicate[T any](obj T, pred func(T) bool, msgAndArgs ...any) {
	predicate(obj, pred, options(msgAndArgs)...)
}

// NotPredicate asserts that pred does not hold for obj
func NotPredicate[T any](obj T, pred func(T) bool, msgAndArgs ...any) {
	predicate(obj, pred, options(msgAndArgs, Inverse())...)
}

func predicate[T any](obj T, pred func(T) bool, opts ...Option) {
	check(pred(obj), func(inverse bool) string {
		if inverse {
			return fmt.Sprintf("expected %s not to satisfy the predicate", format(obj))
		}
		return fmt.Sprintf("expected %s to satisfy the predicate", format(obj))
	}, opts...)
}
