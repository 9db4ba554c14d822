package flags

import (
	"flag"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			if _, ok := seenCLI[name]; ok {
				t.Errorf("duplicate flag %s", name)
				continue
			}
			seenCLI[name] = struct{}{}
		}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestDefaults(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--filter", "^test_a"}))
	ctx := cli.NewContext(app, set, nil)

	assert.Equal(t, "test", ctx.String(Root.Name))
	assert.Equal(t, "sh", ctx.String(Interpreter.Name))
	assert.Equal(t, "^test_a", ctx.String(Filter.Name))
	assert.True(t, ctx.Bool(SortSuites.Name))
	assert.True(t, ctx.Bool(ShowTable.Name))
	assert.False(t, ctx.Bool(Serve.Name))
	assert.Equal(t, 0, ctx.Int(Concurrency.Name))
	require.NoError(t, CheckRequired(ctx))
}
