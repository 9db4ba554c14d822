package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-harness/suitefile"
)

const EnvVarPrefix = "OP_HARNESS"

var (
	Root = &cli.StringFlag{
		Name:    "root",
		Value:   suitefile.DefaultRoot,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ROOT"),
		Usage:   "Directory searched for suite files when no paths are given",
	}
	Filter = &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"e"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FILTER"),
		Usage:   "Regular expression restricting which cases run, by case name",
	}
	Interpreter = &cli.StringFlag{
		Name:    "interpreter",
		Value:   "sh",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INTERPRETER"),
		Usage:   "Command run by suite file run steps, with optional base arguments (eg. 'bash --norc')",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Maximum number of suites running at once. 0 runs every suite at once.",
	}
	SortSuites = &cli.BoolFlag{
		Name:    "sort-suites",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SORT_SUITES"),
		Usage:   "Dispatch suites ordered by name rather than by discovery order",
	}
	ShowTable = &cli.BoolFlag{
		Name:    "show-table",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_TABLE"),
		Usage:   "Print a summary table once the run completes",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Serve a health check endpoint while the run is in progress",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "0.0.0.0:8080",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the health check endpoint",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Root,
	Filter,
	Interpreter,
	Concurrency,
	SortSuites,
	ShowTable,
	Serve,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
