// Package registry is the append-only ledger of suites known to a run
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
)

// Instance is one fresh copy of a suite, created for a single case
type Instance interface {
	// Run executes the named case
	Run(ctx context.Context, name string) error
}

// SetupHook is implemented by instances that prepare before each case
type SetupHook interface {
	Setup(ctx context.Context) error
}

// TeardownHook is implemented by instances that clean up after each case
type TeardownHook interface {
	Teardown(ctx context.Context) error
}

// Descriptor identifies a suite and how to instantiate it.
// Descriptors are immutable once registered.
type Descriptor struct {
	Name    string
	Cases   []string        // Case names, sorted
	Factory func() Instance // Yields a fresh instance on every call
	Source  string          // file:line where the suite was declared
}

// Handle refers to a registered suite
type Handle struct {
	Index int
	Name  string
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
}

// Registry publishes an immutable snapshot of descriptors on every
// registration. Readers never block; writers are serialized.
type Registry struct {
	log    log.Logger
	mu     sync.Mutex // serializes writers
	suites atomic.Pointer[[]Descriptor]
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	r := &Registry{log: cfg.Log.New("component", "registry")}
	r.suites.Store(&[]Descriptor{})
	return r
}

// Register appends a suite. Names must be unique and a factory is required.
func (r *Registry) Register(d Descriptor) (Handle, error) {
	if d.Name == "" {
		return Handle{}, fmt.Errorf("suite name is required")
	}
	if d.Factory == nil {
		return Handle{}, fmt.Errorf("suite %s: factory is required", d.Name)
	}
	cases, err := sortedCases(d.Cases)
	if err != nil {
		return Handle{}, fmt.Errorf("suite %s: %w", d.Name, err)
	}
	d.Cases = cases

	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.suites.Load()
	for _, existing := range old {
		if existing.Name == d.Name {
			return Handle{}, fmt.Errorf("suite %s already registered at %s", d.Name, existing.Source)
		}
	}
	next := make([]Descriptor, len(old), len(old)+1)
	copy(next, old)
	next = append(next, d)
	r.suites.Store(&next)

	r.log.Debug("Registered suite", "suite", d.Name, "cases", len(d.Cases), "source", d.Source)
	return Handle{Index: len(old), Name: d.Name}, nil
}

// Snapshot returns the registered suites in declaration order
func (r *Registry) Snapshot() []Descriptor {
	cur := *r.suites.Load()
	out := make([]Descriptor, len(cur))
	copy(out, cur)
	return out
}

// Len returns the number of registered suites
func (r *Registry) Len() int {
	return len(*r.suites.Load())
}

// Get returns the descriptor a handle refers to
func (r *Registry) Get(h Handle) (Descriptor, bool) {
	cur := *r.suites.Load()
	if h.Index < 0 || h.Index >= len(cur) || cur[h.Index].Name != h.Name {
		return Descriptor{}, false
	}
	return cur[h.Index], true
}

func sortedCases(cases []string) ([]string, error) {
	out := make([]string, len(cases))
	copy(out, cases)
	sort.Strings(out)
	for i, c := range out {
		if c == "" {
			return nil, fmt.Errorf("empty case name")
		}
		if i > 0 && out[i-1] == c {
			return nil, fmt.Errorf("duplicate case %s", c)
		}
	}
	return out, nil
}
