package assertions

import (
	"fmt"
	"reflect"
	"sort"
)

type entry struct {
	nargs int // -1 for any number
	run   func(args []any, opts []Option)
}

// typeNames maps the type names suite files may use with kind_of to the Go
// types decoded values have.
var typeNames = map[string]reflect.Type{
	"string": reflect.TypeOf(""),
	"int":    reflect.TypeOf(0),
	"float":  reflect.TypeOf(0.0),
	"bool":   reflect.TypeOf(false),
	"list":   reflect.TypeOf([]any(nil)),
	"map":    reflect.TypeOf(map[string]any(nil)),
}

var table = map[string]entry{}

func init() {
	pair := func(name string, nargs int, run func(args []any, opts []Option)) {
		table[name] = entry{nargs: nargs, run: run}
		table["not_"+name] = entry{nargs: nargs, run: func(args []any, opts []Option) {
			run(args, append(opts, Inverse()))
		}}
	}

	table["assert"] = entry{1, func(args []any, opts []Option) { Assert(truthy(args[0]), opts...) }}
	table["refute"] = entry{1, func(args []any, opts []Option) { Refute(truthy(args[0]), opts...) }}
	table["fail"] = entry{-1, func(args []any, opts []Option) {
		var s settings
		for _, opt := range opts {
			opt(&s)
		}
		if s.message != "" {
			fail(s.message)
		}
		Fail(args...)
	}}
	table["omit"] = entry{-1, func(args []any, _ []Option) { Omit(args...) }}

	pair("equal", 2, func(a []any, o []Option) { equal(a[0], a[1], o...) })
	pair("nil", 1, func(a []any, o []Option) { isNilCheck(a[0], o...) })
	pair("match", 2, func(a []any, o []Option) { match(a[0], toString(a[1]), o...) })
	pair("kind_of", 2, func(a []any, o []Option) {
		name := toString(a[0])
		t, ok := typeNames[name]
		if !ok && name != "nil" {
			fail(fmt.Sprintf("unknown kind %q", name))
		}
		kindOf(t, a[1], o...)
	})
	pair("include", 2, func(a []any, o []Option) { include(a[0], a[1], o...) })
	pair("in_delta", 3, func(a []any, o []Option) {
		d, ok := toFloat(a[2])
		if !ok {
			fail(fmt.Sprintf("delta must be numerical, got %T", a[2]))
		}
		inDelta(a[0], a[1], d, o...)
	})
	pair("empty", 1, func(a []any, o []Option) { empty(a[0], o...) })
	pair("operator", 3, func(a []any, o []Option) { operator(a[0], toString(a[1]), a[2], o...) })

	// match has its own negative spelling
	table["no_match"] = table["not_match"]
	delete(table, "not_match")
}

// Names lists the assertions available to Call, sorted
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is an assertion accepting nargs arguments
func Known(name string, nargs int) error {
	e, ok := table[name]
	if !ok {
		return fmt.Errorf("unknown assertion %q", name)
	}
	if e.nargs >= 0 && e.nargs != nargs {
		return fmt.Errorf("assertion %q takes %d arguments, got %d", name, e.nargs, nargs)
	}
	return nil
}

// Call runs the assertion registered under name with args. It signals a
// Failure for unknown names and argument count mismatches as well as for
// assertions that do not hold.
func Call(name string, args []any, opts ...Option) {
	if err := Known(name, len(args)); err != nil {
		fail(err.Error())
	}
	table[name].run(args, opts)
}

// truthy treats only nil and false as false
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
