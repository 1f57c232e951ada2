package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/craft-report/host"
	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "CRAFT_REPORT"

// Defaults shared by the flags and the configuration file layer
const (
	DefaultOutputDir  = "craft-report"
	DefaultOutputFile = "report.html"
	DefaultTitle      = "Craft Test Report"
	DefaultInput      = "-"
	DefaultServeAddr  = "127.0.0.1:8080"
)

var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML configuration file (eg. 'craft-report.yaml'). Flags override its values",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   DefaultOutputDir,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory receiving report-data.json and the rendered report, relative to the working directory",
	}
	OutputFile = &cli.StringFlag{
		Name:    "output-file",
		Value:   DefaultOutputFile,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_FILE"),
		Usage:   "File name of the rendered report inside the output directory",
	}
	Open = &cli.BoolFlag{
		Name:    "open",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OPEN"),
		Usage:   "Open the rendered report with the system viewer once it is written",
	}
	Title = &cli.StringFlag{
		Name:    "title",
		Value:   DefaultTitle,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TITLE"),
		Usage:   "Title shown in the rendered report",
	}
	Logo = &cli.StringFlag{
		Name:    "logo",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGO"),
		Usage:   "Path to a PNG, JPEG or SVG logo embedded into the report",
	}
	TemplateDir = &cli.StringFlag{
		Name:    "template-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEMPLATE_DIR"),
		Usage:   "Directory providing template.html, report.css and report.js overrides",
	}
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   DefaultInput,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INPUT"),
		Usage:   "Event stream to read, '-' for stdin",
	}
	Format = &cli.StringFlag{
		Name:    "format",
		Value:   host.FormatNDJSON.String(),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORMAT"),
		Usage:   fmt.Sprintf("Encoding of the event stream. Must be one of: %s, %s", host.FormatNDJSON, host.FormatGoTest),
		Action: func(ctx *cli.Context, value string) error {
			return validateFormat(value)
		},
	}
	FailOnTestFailure = &cli.BoolFlag{
		Name:    "fail-on-test-failure",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_TEST_FAILURE"),
		Usage:   "Exit with code 1 when the run had failed or timed out tests",
	}
	MetricsPushURL = &cli.StringFlag{
		Name:    "metrics-push-url",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_PUSH_URL"),
		Usage:   "Prometheus Pushgateway URL receiving the run metrics. Empty disables pushing",
	}
	ServeAddr = &cli.StringFlag{
		Name:    "addr",
		Value:   DefaultServeAddr,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ADDR"),
		Usage:   "Listen address of the report server",
	}
)

var optionalFlags = []cli.Flag{
	ConfigFile,
	OutputDir,
	OutputFile,
	Open,
	Title,
	Logo,
	TemplateDir,
	Input,
	Format,
	FailOnTestFailure,
	MetricsPushURL,
}

// Flags are shared by every command
var Flags []cli.Flag

// ServeFlags are specific to the serve command
var ServeFlags = []cli.Flag{
	ServeAddr,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, optionalFlags...)
}

func validateFormat(value string) error {
	if !host.Format(value).IsValid() {
		return fmt.Errorf("format must be one of %v, got %q", host.ValidFormats(), value)
	}
	return nil
}
