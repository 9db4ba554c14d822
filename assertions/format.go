package assertions

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
)

var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	DisableMethods:          true,
	MaxDepth:                10,
}

// format renders a value for a failure message. Scalars use Go syntax,
// composites are dumped.
func format(v any) string {
	if v == nil {
		return "<nil>"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Ptr:
		if b, ok := v.([]byte); ok {
			return fmt.Sprintf("%q", b)
		}
		return strings.TrimSuffix(spewConfig.Sdump(v), "\n")
	default:
		return fmt.Sprintf("%#v", v)
	}
}

// diff returns a unified diff of two values of the same type when a diff
// helps more than the plain rendering does.
func diff(expected, actual any) string {
	if expected == nil || actual == nil {
		return ""
	}
	et, at := reflect.TypeOf(expected), reflect.TypeOf(actual)
	if et != at {
		return ""
	}

	var e, a string
	switch et.Kind() {
	case reflect.String:
		e, a = reflect.ValueOf(expected).String(), reflect.ValueOf(actual).String()
		if !strings.Contains(e, "\n") && !strings.Contains(a, "\n") {
			return ""
		}
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		e, a = spewConfig.Sdump(expected), spewConfig.Sdump(actual)
	default:
		return ""
	}

	d, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e),
		B:        difflib.SplitLines(a),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if err != nil || d == "" {
		return ""
	}
	return "\n\nDiff:\n" + d
}

// objectsAreEqual is testify's equality, made reflexive: NaN equals NaN,
// a func equals itself, and composites that only differ from themselves
// because they hold NaN compare equal by their dumps.
func objectsAreEqual(expected, actual any) bool {
	if assert.ObjectsAreEqual(expected, actual) {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}
	ev, av := reflect.ValueOf(expected), reflect.ValueOf(actual)
	if ev.Type() != av.Type() {
		return false
	}
	switch ev.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(ev.Float()) && math.IsNaN(av.Float())
	case reflect.Complex64, reflect.Complex128:
		e, a := ev.Complex(), av.Complex()
		return sameFloat(real(e), real(a)) && sameFloat(imag(e), imag(a))
	case reflect.Func:
		return !ev.IsNil() && !av.IsNil() && ev.Pointer() == av.Pointer()
	case reflect.Struct, reflect.Array, reflect.Slice, reflect.Map, reflect.Ptr, reflect.Interface:
		return dumpConfig.Sdump(expected) == dumpConfig.Sdump(actual)
	default:
		return false
	}
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// dumpConfig renders values completely, for equality by rendering
var dumpConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	DisableMethods:          true,
}
