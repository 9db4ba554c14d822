package assertions_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-harness/assertions"
)

type point struct {
	X, Y float64
}

func TestEqual_Reflexive(t *testing.T) {
	fn := func() {}
	values := []any{
		nil, 0, 1, -3.5, "", "text", true,
		[]int{1, 2, 3}, map[string]int{"a": 1}, struct{ A int }{A: 1},
		[]byte("bytes"), &struct{}{},
		math.NaN(), float32(math.NaN()), complex(math.NaN(), 1), fn,
		point{X: math.NaN()}, &point{Y: math.NaN()},
		[]float64{1, math.NaN()}, [2]float64{math.NaN(), 2}, map[string]float64{"a": math.NaN()},
	}
	for i, v := range values {
		t.Run(fmt.Sprintf("%d_%T", i, v), func(t *testing.T) {
			passes(t, func() { assertions.Equal(v, v) })
			failureOf(t, func() { assertions.NotEqual(v, v) })
		})
	}
}

func TestEqual_NaNStillDistinguishesOtherValues(t *testing.T) {
	failureOf(t, func() { assertions.Equal(math.NaN(), 1.0) })
	failureOf(t, func() { assertions.Equal(point{X: math.NaN(), Y: 1}, point{X: math.NaN(), Y: 2}) })
	failureOf(t, func() { assertions.Equal(func() {}, func() { fmt.Println() }) })
	passes(t, func() { assertions.NotEqual(math.NaN(), float32(math.NaN())) })
}

func TestEqual_FailureRendersBothOperands(t *testing.T) {
	f := failureOf(t, func() { assertions.Equal(1, 2) })
	assert.Contains(t, f.Message, "1")
	assert.Contains(t, f.Message, "2")
	assert.Contains(t, f.Message, "not equal")
}

func TestEqual_DiffForMultilineStrings(t *testing.T) {
	f := failureOf(t, func() { assertions.Equal("a\nb\nc\n", "a\nx\nc\n") })
	assert.Contains(t, f.Message, "Diff:")
	assert.Contains(t, f.Message, "-b")
	assert.Contains(t, f.Message, "+x")
}

func TestEqual_DifferentTypes(t *testing.T) {
	failureOf(t, func() { assertions.Equal(1, int64(1)) })
}

func TestNotEqual(t *testing.T) {
	passes(t, func() { assertions.NotEqual(1, 2) })
	f := failureOf(t, func() { assertions.NotEqual("x", "x") })
	assert.Equal(t, `should not be equal: "x"`, f.Message)
}

func TestEqual_CustomMessage(t *testing.T) {
	f := failureOf(t, func() { assertions.Equal(1, 2, "sum of %d", 3) })
	assert.Equal(t, "sum of 3", f.Message)
}

func TestSame(t *testing.T) {
	a, b := &struct{ V int }{1}, &struct{ V int }{1}
	passes(t, func() { assertions.Same(a, a) })
	passes(t, func() { assertions.NotSame(a, b) })
	failureOf(t, func() { assertions.Same(a, b) })
	failureOf(t, func() { assertions.Same(1, 1) })
}

func TestNil(t *testing.T) {
	var typedNil *int
	var nilErr error
	passes(t, func() { assertions.Nil(nil) })
	passes(t, func() { assertions.Nil(typedNil) })
	passes(t, func() { assertions.Nil(nilErr) })
	passes(t, func() { assertions.NotNil(0) })
	failureOf(t, func() { assertions.Nil("") })
	failureOf(t, func() { assertions.NotNil(typedNil) })
}

func TestMatch(t *testing.T) {
	passes(t, func() { assertions.Match("^b", "a\nb") })
	passes(t, func() { assertions.Match(regexp.MustCompile(`\d+`), "abc 123") })
	passes(t, func() { assertions.NoMatch("z", "abc") })

	f := failureOf(t, func() { assertions.Match("^z$", "abc") })
	assert.Contains(t, f.Message, "to match")

	f = failureOf(t, func() { assertions.Match("(", "abc") })
	assert.Contains(t, f.Message, "invalid pattern")

	failureOf(t, func() { assertions.Match(42, "abc") })
}

type kindErr struct{}

func (kindErr) Error() string { return "kind" }

func TestKindOf(t *testing.T) {
	passes(t, func() { assertions.KindOf("", "x") })
	passes(t, func() { assertions.KindOf(reflect.TypeOf(0), 3) })
	passes(t, func() { assertions.KindOf((*error)(nil), kindErr{}) })
	passes(t, func() { assertions.NotKindOf(0, "x") })
	passes(t, func() { assertions.KindOf(nil, nil) })

	f := failureOf(t, func() { assertions.KindOf(0, "x") })
	assert.Contains(t, f.Message, "int")
	assert.Contains(t, f.Message, "string")

	failureOf(t, func() { assertions.KindOf((*error)(nil), 1) })
}

func TestInclude(t *testing.T) {
	passes(t, func() { assertions.Include("hello world", "lo w") })
	passes(t, func() { assertions.Include([]int{1, 2, 3}, 2) })
	passes(t, func() { assertions.Include(map[string]int{"k": 1}, "k") })
	passes(t, func() { assertions.NotInclude([]string{"a"}, "b") })

	failureOf(t, func() { assertions.Include([]int{1}, 2) })
	failureOf(t, func() { assertions.NotInclude("abc", "b") })

	f := failureOf(t, func() { assertions.Include(5, 5) })
	assert.Contains(t, f.Message, "cannot check inclusion")
}

func TestInDelta(t *testing.T) {
	passes(t, func() { assertions.InDelta(1.0, 1.05, 0.1) })
	passes(t, func() { assertions.InDelta(10, int64(12), 2) })
	passes(t, func() { assertions.NotInDelta(1.0, 2.0, 0.5) })

	failureOf(t, func() { assertions.InDelta(1.0, 2.0, 0.5) })
	failureOf(t, func() { assertions.InDelta(math.NaN(), 1.0, 10) })

	f := failureOf(t, func() { assertions.InDelta("1", 1, 1) })
	assert.Contains(t, f.Message, "numerical")
}

func TestEmpty(t *testing.T) {
	var nilPtr *string
	for _, v := range []any{nil, "", 0, false, []int{}, map[string]int{}, nilPtr} {
		passes(t, func() { assertions.Empty(v) })
	}
	for _, v := range []any{"x", 1, true, []int{0}, errors.New("e")} {
		passes(t, func() { assertions.NotEmpty(v) })
	}
	failureOf(t, func() { assertions.Empty([]int{1}) })
}

func TestOperator(t *testing.T) {
	tests := []struct {
		l  any
		op string
		r  any
		ok bool
	}{
		{1, "<", 2, true},
		{2, "<", 1, false},
		{2, "<=", 2, true},
		{3, ">", 2.5, true},
		{3, ">=", 4, false},
		{"a", "<", "b", true},
		{"x", "==", "x", true},
		{1, "!=", 1, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v %s %v", tt.l, tt.op, tt.r), func(t *testing.T) {
			sig := signalOf(func() { assertions.Operator(tt.l, tt.op, tt.r) })
			assert.Equal(t, tt.ok, sig == nil)
			inv := signalOf(func() { assertions.NotOperator(tt.l, tt.op, tt.r) })
			assert.Equal(t, !tt.ok, inv == nil)
		})
	}

	f := failureOf(t, func() { assertions.Operator(1, "<>", 2) })
	assert.Contains(t, f.Message, "unknown operator")
	f = failureOf(t, func() { assertions.Operator(1, "<", "2") })
	assert.Contains(t, f.Message, "cannot order")
}

func TestPredicate(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }
	passes(t, func() { assertions.Predicate(4, even) })
	passes(t, func() { assertions.NotPredicate(3, even) })

	f := failureOf(t, func() { assertions.Predicate(3, even) })
	assert.Equal(t, "expected 3 to satisfy the predicate", f.Message)
}
