package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	craftreport "github.com/ethereum-optimism/craft-report"
	"github.com/ethereum-optimism/craft-report/exitcodes"
	"github.com/ethereum-optimism/craft-report/flags"
	"github.com/ethereum-optimism/craft-report/schema"
	"github.com/ethereum-optimism/craft-report/service"
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

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "craft-report"
	app.Usage = "Test report generator"
	app.Description = "craft-report turns a stream of test results into an HTML report and a JSON data file"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Read test results and write the report (default)",
			Flags:  cliapp.ProtectFlags(flags.Flags),
			Action: cliapp.LifecycleCmd(run),
		},
		{
			Name:   "serve",
			Usage:  "Serve the report directory over HTTP",
			Flags:  cliapp.ProtectFlags(slices.Concat(flags.Flags, flags.ServeFlags)),
			Action: cliapp.LifecycleCmd(serve),
		},
		{
			Name:      "validate",
			Usage:     "Check a report data file against the embedded schema",
			ArgsUsage: "<report-data.json>",
			Action:    validate,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
		}
	}
	return app
}

// exitCode maps an application error onto the exit code taxonomy
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case craftreport.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case craftreport.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.TestFailure
	}
}

func setupLogging(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	log := setupLogging(ctx)

	cfg, err := craftreport.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, craftreport.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	runner, err := craftreport.New(cfg, Version, closeApp)
	if err != nil {
		return nil, craftreport.NewRuntimeError(fmt.Errorf("failed to create runner: %w", err))
	}
	return runner, nil
}

func serve(ctx *cli.Context, _ context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	log := setupLogging(ctx)

	cfg, err := craftreport.NewConfig(ctx, log)
	if err != nil {
		return nil, craftreport.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	return service.New(service.Config{
		Addr:      ctx.String(flags.ServeAddr.Name),
		ReportDir: cfg.OutputDir,
		Index:     cfg.OutputFile,
	}, log), nil
}

func validate(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return craftreport.NewRuntimeError(errors.New("validate expects exactly one report data file"))
	}
	path := ctx.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return craftreport.NewRuntimeError(fmt.Errorf("failed to read report data: %w", err))
	}
	if err := schema.ValidateReportData(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(ctx.App.Writer, "%s: valid\n", path)
	return nil
}
