package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/assertions"
	"github.com/ethereum-optimism/infra/op-harness/outcome"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

type caseFunc func(ctx context.Context) error

// funcSuite is a suite assembled from closures
type funcSuite struct {
	cases    map[string]caseFunc
	setup    func(ctx context.Context) error
	teardown func(ctx context.Context) error
}

func (s *funcSuite) Run(ctx context.Context, name string) error {
	return s.cases[name](ctx)
}

func (s *funcSuite) Setup(ctx context.Context) error {
	if s.setup == nil {
		return nil
	}
	return s.setup(ctx)
}

func (s *funcSuite) Teardown(ctx context.Context) error {
	if s.teardown == nil {
		return nil
	}
	return s.teardown(ctx)
}

func descriptor(name string, newSuite func() *funcSuite) registry.Descriptor {
	var cases []string
	for c := range newSuite().cases {
		cases = append(cases, c)
	}
	sort.Strings(cases)
	return registry.Descriptor{
		Name:    name,
		Cases:   cases,
		Factory: func() registry.Instance { return newSuite() },
		Source:  "dispatcher_test.go",
	}
}

func simple(name string, cases map[string]caseFunc) registry.Descriptor {
	return descriptor(name, func() *funcSuite { return &funcSuite{cases: cases} })
}

func pass(context.Context) error { return nil }

func newTestDispatcher(t *testing.T, out *bytes.Buffer, mutate ...func(*Config)) *Dispatcher {
	t.Helper()
	cfg := Config{
		Log:        testlog.Logger(t, log.LevelInfo),
		Progress:   NewProgress(out, nil),
		SortSuites: true,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	d, err := NewDispatcher(cfg)
	require.NoError(t, err)
	return d
}

func scenarioSuite() registry.Descriptor {
	return simple("scenario", map[string]caseFunc{
		"test_a": func(context.Context) error {
			assertions.Equal(1, 1)
			return nil
		},
		"test_b": func(context.Context) error {
			assertions.Omit()
			return nil
		},
		"test_c": func(context.Context) error {
			assertions.Equal(1, 2)
			return nil
		},
	})
}

func TestRun_PassSkipFail(t *testing.T) {
	var out bytes.Buffer
	d := newTestDispatcher(t, &out)

	res, err := d.Run(context.Background(), []registry.Descriptor{scenarioSuite()})
	require.NoError(t, err)

	assert.Equal(t, types.Tally{Success: 1, Skipped: 1, Failed: 1}, res.Totals)
	assert.Equal(t, types.TestStatusFail, res.Status)
	require.Len(t, res.Suites, 1)
	assert.Equal(t, types.Tally{Success: 1, Skipped: 1, Failed: 1}, res.Suites[0].Tally)
	assert.NotEmpty(t, res.RunID)

	var failLine string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, "test_c:") {
			failLine = line
		}
	}
	require.NotEmpty(t, failLine)
	assert.Regexp(t, `^\[worker-1 \d+\.\d{4}\]   test_c: fail: not equal`, failLine)
	assert.Contains(t, failLine, "expected: 1")
	assert.Contains(t, failLine, "actual  : 2")
	assert.Contains(t, failLine, "dispatcher_test.go:")
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		assert.Regexp(t, `^\[(worker-1|main) \d+\.\d{4}\] `, line)
	}

	assert.Regexp(t, `(?m)^\[main \d+\.\d{4}\] scenario: success=1 skipped=1 failed=1 \| total: success=1 skipped=1 failed=1$`, out.String())
}

func TestRun_CaseResultsAreSortedAndClassified(t *testing.T) {
	var out bytes.Buffer
	d := newTestDispatcher(t, &out)

	res, err := d.Run(context.Background(), []registry.Descriptor{scenarioSuite()})
	require.NoError(t, err)

	cases := res.Suites[0].Cases
	require.Len(t, cases, 3)
	assert.Equal(t, "test_a", cases[0].Name)
	assert.Equal(t, types.TestStatusPass, cases[0].Outcome.Status)
	assert.Equal(t, types.TestStatusSkip, cases[1].Outcome.Status)
	assert.Equal(t, "omitted", cases[1].Outcome.Reason)
	assert.Equal(t, types.TestStatusFail, cases[2].Outcome.Status)
	assert.NotEmpty(t, cases[2].Outcome.Origin)
}

func TestRun_Deterministic(t *testing.T) {
	suites := []registry.Descriptor{scenarioSuite(), simple("other", map[string]caseFunc{"test_x": pass})}

	var first types.Tally
	for i := 0; i < 3; i++ {
		var out bytes.Buffer
		res, err := newTestDispatcher(t, &out).Run(context.Background(), suites)
		require.NoError(t, err)
		if i == 0 {
			first = res.Totals
			continue
		}
		assert.Equal(t, first, res.Totals)
	}
}

func TestRun_ConcurrentSuitesSumTallies(t *testing.T) {
	var suites []registry.Descriptor
	var want types.Tally
	for i := 0; i < 20; i++ {
		cases := map[string]caseFunc{}
		for j := 0; j <= i%4; j++ {
			cases[fmt.Sprintf("test_pass_%d", j)] = pass
			want.Success++
		}
		if i%3 == 0 {
			cases["test_skip"] = func(context.Context) error { assertions.Omit("later"); return nil }
			want.Skipped++
		}
		if i%5 == 0 {
			cases["test_fail"] = func(context.Context) error { return errors.New("broken") }
			want.Failed++
		}
		suites = append(suites, simple(fmt.Sprintf("suite-%02d", i), cases))
	}

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), suites)
	require.NoError(t, err)
	assert.Equal(t, want, res.Totals)

	var sum types.Tally
	for _, s := range res.Suites {
		sum.Add(s.Tally)
	}
	assert.Equal(t, res.Totals, sum)
	assert.Equal(t, 20, strings.Count(out.String(), "[main "))
}

func TestRun_FinalTotalsLineMatchesResult(t *testing.T) {
	suites := []registry.Descriptor{
		simple("a", map[string]caseFunc{"test_1": pass}),
		simple("b", map[string]caseFunc{"test_1": func(context.Context) error { return errors.New("x") }}),
	}
	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), suites)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "| total: "+res.Totals.String()))
}

func TestRun_SortsSuitesByName(t *testing.T) {
	suites := []registry.Descriptor{
		simple("charlie", map[string]caseFunc{"test_1": pass}),
		simple("alpha", map[string]caseFunc{"test_1": pass}),
		simple("bravo", map[string]caseFunc{"test_1": pass}),
	}

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), suites)
	require.NoError(t, err)
	var names []string
	for _, s := range res.Suites {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, names)
	assert.Equal(t, "worker-1", res.Suites[0].WorkerID)

	res, err = newTestDispatcher(t, &out, func(c *Config) { c.SortSuites = false }).Run(context.Background(), suites)
	require.NoError(t, err)
	assert.Equal(t, "charlie", res.Suites[0].Name)
}

func TestRun_Filter(t *testing.T) {
	var ran sync.Map
	mark := func(name string) caseFunc {
		return func(context.Context) error {
			ran.Store(name, true)
			return nil
		}
	}
	suites := []registry.Descriptor{
		simple("one", map[string]caseFunc{"test_keep_a": mark("one.a"), "test_drop": mark("one.drop")}),
		simple("two", map[string]caseFunc{"test_keep_b": mark("two.b"), "test_other": mark("two.other")}),
	}

	var out bytes.Buffer
	d := newTestDispatcher(t, &out, func(c *Config) { c.Filter = regexp.MustCompile("keep") })
	res, err := d.Run(context.Background(), suites)
	require.NoError(t, err)

	assert.Equal(t, types.Tally{Success: 2}, res.Totals)
	_, dropped := ran.Load("one.drop")
	assert.False(t, dropped)
	_, kept := ran.Load("two.b")
	assert.True(t, kept)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}
	var suites []registry.Descriptor
	for i := 0; i < 6; i++ {
		suites = append(suites, simple(fmt.Sprintf("s%d", i), map[string]caseFunc{"test_slow": slow}))
	}

	var out bytes.Buffer
	d := newTestDispatcher(t, &out, func(c *Config) { c.Concurrency = 2 })
	res, err := d.Run(context.Background(), suites)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Totals.Success)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_CasesOfOneSuiteRunSequentially(t *testing.T) {
	var running atomic.Int32
	var overlapped atomic.Bool
	body := func(context.Context) error {
		if running.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return nil
	}
	cases := map[string]caseFunc{}
	for i := 0; i < 10; i++ {
		cases[fmt.Sprintf("test_%d", i)] = body
	}

	var out bytes.Buffer
	_, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{simple("seq", cases)})
	require.NoError(t, err)
	assert.False(t, overlapped.Load())
}

func TestRun_SetupAndTeardown(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	desc := descriptor("hooks", func() *funcSuite {
		return &funcSuite{
			cases: map[string]caseFunc{
				"test_first":  func(context.Context) error { record("body-first"); return nil },
				"test_second": func(context.Context) error { record("body-second"); return nil },
			},
			setup: func(context.Context) error {
				record("setup")
				return nil
			},
			teardown: func(context.Context) error {
				record("teardown")
				return errors.New("teardown exploded")
			},
		}
	})

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{desc})
	require.NoError(t, err)

	assert.Equal(t, types.Tally{Success: 2}, res.Totals, "teardown errors do not change outcomes")
	assert.Equal(t, []string{"setup", "body-first", "teardown", "setup", "body-second", "teardown"}, events)
}

func TestRun_SetupFailureFailsOnlyThatCase(t *testing.T) {
	var torn atomic.Int32
	calls := 0
	desc := registry.Descriptor{
		Name:  "setup-fails",
		Cases: []string{"test_1", "test_2"},
		Factory: func() registry.Instance {
			calls++
			failSetup := calls == 1
			return &funcSuite{
				cases: map[string]caseFunc{"test_1": pass, "test_2": pass},
				setup: func(context.Context) error {
					if failSetup {
						return errors.New("no database")
					}
					return nil
				},
				teardown: func(context.Context) error {
					torn.Add(1)
					return nil
				},
			}
		},
	}

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{desc})
	require.NoError(t, err)

	assert.Equal(t, types.Tally{Success: 1, Failed: 1}, res.Totals)
	assert.Equal(t, int32(2), torn.Load(), "teardown runs even when setup fails")
	assert.Contains(t, res.Suites[0].Cases[0].Outcome.Err.Error(), "setup: no database")
}

func TestRun_SkipInSetupSkipsCase(t *testing.T) {
	desc := descriptor("skip-setup", func() *funcSuite {
		return &funcSuite{
			cases: map[string]caseFunc{"test_1": func(context.Context) error { return errors.New("unreachable") }},
			setup: func(context.Context) error {
				assertions.Omit("no network")
				return nil
			},
		}
	})
	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{desc})
	require.NoError(t, err)
	assert.Equal(t, types.Tally{Skipped: 1}, res.Totals)
	assert.Equal(t, "no network", res.Suites[0].Cases[0].Outcome.Reason)
}

func TestRun_IsolatesPanicsAndGoexit(t *testing.T) {
	desc := simple("hostile", map[string]caseFunc{
		"test_goexit": func(context.Context) error {
			runtime.Goexit()
			return nil
		},
		"test_panic": func(context.Context) error {
			var m map[string]int
			m["boom"] = 1
			return nil
		},
		"test_string_panic": func(context.Context) error { panic("plain") },
		"test_z_after":      pass,
	})
	teardownPanics := descriptor("teardown-panics", func() *funcSuite {
		return &funcSuite{
			cases:    map[string]caseFunc{"test_1": pass},
			teardown: func(context.Context) error { panic("in teardown") },
		}
	})

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{desc, teardownPanics})
	require.NoError(t, err)

	assert.Equal(t, types.Tally{Success: 1, Failed: 3}, res.Suites[0].Tally)
	assert.Equal(t, types.Tally{Success: 1}, res.Suites[1].Tally)

	byName := map[string]types.Outcome{}
	for _, c := range res.Suites[0].Cases {
		byName[c.Name] = c.Outcome
	}
	assert.ErrorIs(t, byName["test_goexit"].Err, outcome.ErrCaseAborted)
	var pe *assertions.PanicError
	assert.ErrorAs(t, byName["test_panic"].Err, &pe)
	assert.ErrorAs(t, byName["test_string_panic"].Err, &pe)
}

func TestRun_FactoryPanicIsCaseFailure(t *testing.T) {
	desc := registry.Descriptor{
		Name:    "bad-factory",
		Cases:   []string{"test_1"},
		Factory: func() registry.Instance { panic("cannot build") },
	}
	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), []registry.Descriptor{desc})
	require.NoError(t, err)
	assert.Equal(t, types.Tally{Failed: 1}, res.Totals)
}

func TestRun_Empty(t *testing.T) {
	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.Tally{}, res.Totals)
	assert.Equal(t, types.TestStatusPass, res.Status)
	assert.Empty(t, out.String())
}

func TestRun_MethodSuite(t *testing.T) {
	r := registry.NewRegistry(registry.Config{Log: testlog.Logger(t, log.LevelInfo)})
	d, err := registry.Methods("methods", func() any { return &methodSuite{} })
	require.NoError(t, err)
	_, err = r.Register(d)
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := newTestDispatcher(t, &out).Run(context.Background(), r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, types.Tally{Success: 1, Skipped: 1, Failed: 1}, res.Totals)
}

type methodSuite struct{}

func (*methodSuite) TestA() { assertions.Equal(1, 1) }
func (*methodSuite) TestB() { assertions.Omit() }
func (*methodSuite) TestC(context.Context) error {
	return errors.New("c failed")
}

func TestNewDispatcher_RejectsNegativeConcurrency(t *testing.T) {
	_, err := NewDispatcher(Config{Concurrency: -1})
	require.Error(t, err)
}
