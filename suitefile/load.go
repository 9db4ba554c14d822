package suitefile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/assertions"
	"github.com/ethereum-optimism/infra/op-harness/process"
	"github.com/ethereum-optimism/infra/op-harness/registry"
)

// Config contains loader configuration
type Config struct {
	Log      log.Logger
	Registry *registry.Registry
	Spawner  process.Spawner // Runs the interpreter for run steps
}

// Loader discovers suite files and registers them
type Loader struct {
	log      log.Logger
	registry *registry.Registry
	spawner  process.Spawner
}

// NewLoader creates a new loader instance
func NewLoader(cfg Config) (*Loader, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Spawner == nil {
		return nil, fmt.Errorf("spawner is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Loader{
		log:      cfg.Log.New("component", "suitefile"),
		registry: cfg.Registry,
		spawner:  cfg.Spawner,
	}, nil
}

// Load discovers, parses and registers every suite file under paths, or
// under root when paths is empty. It stops at the first file that fails.
func (l *Loader) Load(paths []string, root string) ([]registry.Handle, error) {
	files, err := Discover(paths, root)
	if err != nil {
		return nil, err
	}
	l.log.Debug("Discovered suite files", "count", len(files))

	handles := make([]registry.Handle, 0, len(files))
	for _, f := range files {
		s, err := ParseFile(f)
		if err != nil {
			return nil, err
		}
		h, err := l.registry.Register(Descriptor(s, l.spawner))
		if err != nil {
			return nil, fmt.Errorf("registering %s: %w", f, err)
		}
		l.log.Debug("Loaded suite", "suite", s.Name, "cases", len(s.Cases), "path", f)
		handles = append(handles, h)
	}
	return handles, nil
}

// Descriptor builds a registry descriptor for a parsed suite. Run steps are
// executed through spawner in the suite file's directory with the suite's
// environment.
func Descriptor(s *Suite, spawner process.Spawner) registry.Descriptor {
	cases := make([]string, len(s.Cases))
	byName := make(map[string]*Case, len(s.Cases))
	for i := range s.Cases {
		cases[i] = s.Cases[i].Name
		byName[s.Cases[i].Name] = &s.Cases[i]
	}
	bound := &boundSpawner{inner: spawner, dir: filepath.Dir(s.Path), env: s.Env}

	return registry.Descriptor{
		Name:  s.Name,
		Cases: cases,
		Factory: func() registry.Instance {
			return &instance{suite: s, cases: byName, spawner: bound}
		},
		Source: s.Origin(s.Line),
	}
}

// boundSpawner pins the working directory and environment of every invocation
type boundSpawner struct {
	inner process.Spawner
	dir   string
	env   map[string]string
}

func (b *boundSpawner) Spawn(ctx context.Context, inv process.Invocation) (*process.Result, error) {
	if inv.Dir == "" {
		inv.Dir = b.dir
	}
	if len(b.env) > 0 {
		env := make(map[string]string, len(b.env)+len(inv.Env))
		for k, v := range b.env {
			env[k] = v
		}
		for k, v := range inv.Env {
			env[k] = v
		}
		inv.Env = env
	}
	return b.inner.Spawn(ctx, inv)
}

type instance struct {
	suite   *Suite
	cases   map[string]*Case
	spawner process.Spawner
}

var (
	_ registry.SetupHook    = (*instance)(nil)
	_ registry.TeardownHook = (*instance)(nil)
)

func (in *instance) Run(ctx context.Context, name string) error {
	c, ok := in.cases[name]
	if !ok {
		return fmt.Errorf("no case %s in %s", name, in.suite.Path)
	}
	in.runSteps(ctx, c.Steps)
	return nil
}

func (in *instance) Setup(ctx context.Context) error {
	in.runSteps(ctx, in.suite.Setup)
	return nil
}

func (in *instance) Teardown(ctx context.Context) error {
	in.runSteps(ctx, in.suite.Teardown)
	return nil
}

func (in *instance) runSteps(ctx context.Context, steps []Step) {
	for _, st := range steps {
		in.runStep(ctx, st)
	}
}

// runStep executes one step. A failure is relocated to the step's line in
// the suite file before it continues unwinding.
func (in *instance) runStep(ctx context.Context, st Step) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*assertions.Failure); ok {
				f.Origin = in.suite.Origin(st.Line)
			}
			panic(r)
		}
	}()

	switch st.Kind {
	case StepRun:
		r := st.Run
		var opts []assertions.Option
		if r.Message != "" {
			opts = append(opts, assertions.Message("%s", r.Message))
		}
		if r.ExitStatus != nil {
			opts = append(opts, assertions.ExitStatus(*r.ExitStatus))
		}
		if r.Success {
			opts = append(opts, assertions.Success())
		}
		assertions.InOutErr(ctx, in.spawner, r.Args, r.Stdin, expectation(r.Stdout), expectation(r.Stderr), opts...)
	case StepAssert:
		var opts []assertions.Option
		if st.Assert.Message != "" {
			opts = append(opts, assertions.Message("%s", st.Assert.Message))
		}
		assertions.Call(st.Assert.Op, st.Assert.Args, opts...)
	case StepOmit:
		if st.Reason == "" {
			assertions.Omit()
		}
		assertions.Omit(st.Reason)
	}
}

// expectation converts a decoded stream expectation to the form InOutErr takes
func expectation(v any) any {
	switch e := v.(type) {
	case []any:
		lines := make([]string, len(e))
		for i, l := range e {
			lines[i] = fmt.Sprint(l)
		}
		return lines
	default:
		return v
	}
}
