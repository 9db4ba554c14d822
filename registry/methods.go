package registry

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// CasePrefix marks the exported methods of a Go suite that are cases
const CasePrefix = "Test"

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Methods builds a descriptor from a Go type. Every exported method named
// Test* with signature func(context.Context) error or func() is a case.
// newSuite is called once per case, and once here to inspect the type.
// Suites may implement SetupHook and TeardownHook.
func Methods(name string, newSuite func() any) (Descriptor, error) {
	if newSuite == nil {
		return Descriptor{}, fmt.Errorf("suite %s: constructor is required", name)
	}
	sample := newSuite()
	if sample == nil {
		return Descriptor{}, fmt.Errorf("suite %s: constructor returned nil", name)
	}

	t := reflect.TypeOf(sample)
	var cases []string
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, CasePrefix) {
			continue
		}
		if !isCaseSignature(m.Type) {
			return Descriptor{}, fmt.Errorf("suite %s: method %s has signature %s, want func(context.Context) error or func()", name, m.Name, m.Type)
		}
		cases = append(cases, m.Name)
	}

	var source string
	if _, file, line, ok := runtime.Caller(1); ok {
		source = fmt.Sprintf("%s:%d", file, line)
	}

	return Descriptor{
		Name:  name,
		Cases: cases,
		Factory: func() Instance {
			return &methodInstance{suite: newSuite()}
		},
		Source: source,
	}, nil
}

// isCaseSignature checks a method type, whose first input is the receiver
func isCaseSignature(ft reflect.Type) bool {
	switch {
	case ft.NumIn() == 1 && ft.NumOut() == 0:
		return true
	case ft.NumIn() == 2 && ft.NumOut() == 1:
		return ft.In(1) == contextType && ft.Out(0) == errorType
	default:
		return false
	}
}

type methodInstance struct {
	suite any
}

var (
	_ SetupHook    = (*methodInstance)(nil)
	_ TeardownHook = (*methodInstance)(nil)
)

func (m *methodInstance) Run(ctx context.Context, name string) error {
	method := reflect.ValueOf(m.suite).MethodByName(name)
	if !method.IsValid() {
		return fmt.Errorf("no case %s on %T", name, m.suite)
	}
	switch fn := method.Interface().(type) {
	case func(context.Context) error:
		return fn(ctx)
	case func():
		fn()
		return nil
	default:
		return fmt.Errorf("case %s has unsupported signature %T", name, fn)
	}
}

func (m *methodInstance) Setup(ctx context.Context) error {
	if h, ok := m.suite.(SetupHook); ok {
		return h.Setup(ctx)
	}
	return nil
}

func (m *methodInstance) Teardown(ctx context.Context) error {
	if h, ok := m.suite.(TeardownHook); ok {
		return h.Teardown(ctx)
	}
	return nil
}
