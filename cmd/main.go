package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	harness "github.com/ethereum-optimism/infra/op-harness"
	"github.com/ethereum-optimism/infra/op-harness/exitcodes"
	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-harness"
	app.Usage = "Isolated test suite runner"
	app.UsageText = "op-harness [flags] [paths...] [-e <pattern>]"
	app.Description = "op-harness discovers suite files, runs every suite in isolation and reports the totals"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps the harness error kinds onto process exit codes
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case harness.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	default:
		// test failures and anything unclassified
		return exitcodes.TestFailure
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := harness.NewConfig(ctx, log, ctx.Args().Slice())
	if err != nil {
		return nil, harness.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	h, err := harness.New(ctx.Context, cfg, Version, closeApp, harness.Options{})
	if err != nil {
		return nil, harness.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}
	return h, nil
}
