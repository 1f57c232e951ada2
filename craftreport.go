// Package craftreport wires the host adapters, the run aggregator and the report
// synthesizer into the craft-report run lifecycle.
package craftreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ethereum-optimism/craft-report/host"
	"github.com/ethereum-optimism/craft-report/reporting"
)

// Runner reads one event stream and writes its report. It implements cliapp.Lifecycle
// in run-once mode: Start does all the work and then asks the app to shut down.
type Runner struct {
	config  *Config
	version string
	opts    []Option
	stdin   io.Reader

	running atomic.Bool
	result  *reporting.Result

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates a Runner. Options are passed on to the Reporter.
func New(config *Config, version string, shutdownCallback func(error), opts ...Option) (*Runner, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	config.Log.Debug("Creating craft-report runner",
		"version", version,
		"input", config.Input,
		"format", config.Format,
		"outputDir", config.OutputDir,
		"outputFile", config.OutputFile,
		"configFile", config.ConfigFile)

	return &Runner{
		config:           config,
		version:          version,
		opts:             opts,
		stdin:            os.Stdin,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start decodes the input and writes the report.
// Start implements the cliapp.Lifecycle interface.
func (n *Runner) Start(ctx context.Context) (err error) {
	// aggregator precondition violations surface as runtime errors rather than crashing
	defer func() {
		if r := recover(); r != nil {
			n.config.Log.Error("Runtime error occurred", "error", r)
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	n.running.Store(true)
	n.config.Log.Info("Starting craft-report", "input", n.config.Input, "format", n.config.Format)

	input, err := n.openInput()
	if err != nil {
		return NewRuntimeError(err)
	}
	defer input.Close()

	reporter := NewReporter(n.config, n.opts...)
	result, err := n.decode(ctx, input, reporter)
	if err != nil {
		n.config.Log.Error("Runtime error writing report", "error", err)
		return NewRuntimeError(err)
	}
	n.result = result

	summary := result.Summary
	if n.config.FailOnTestFailure && summary.HasFailures() {
		n.config.Log.Warn("Run completed with failures, returning exit code 1", "status", summary.Status, "failed", summary.Failed)
		return NewTestFailureError(summary.Failed, summary.Total)
	}

	go func() {
		n.shutdownCallback(nil)
	}()
	return nil
}

func (n *Runner) decode(ctx context.Context, r io.Reader, reporter *Reporter) (*reporting.Result, error) {
	switch n.config.Format {
	case host.FormatGoTest:
		var opts []host.GoTestOption
		goMod := filepath.Join(n.config.WorkDir, "go.mod")
		if modulePath, err := host.ModulePathFromFile(goMod); err == nil {
			opts = append(opts, host.WithModulePath(modulePath))
		} else {
			n.config.Log.Debug("No module path for package names", "err", err)
		}
		return host.NewGoTestAdapter(n.config.Log, reporter, opts...).Run(ctx, r)
	case host.FormatNDJSON:
		return host.DecodeEvents(ctx, r, reporter)
	default:
		return nil, fmt.Errorf("unsupported format %q", n.config.Format)
	}
}

func (n *Runner) openInput() (io.ReadCloser, error) {
	if n.config.Input == "" || n.config.Input == "-" {
		return io.NopCloser(n.stdin), nil
	}
	path := n.config.Input
	if !filepath.IsAbs(path) && n.config.WorkDir != "" {
		path = filepath.Join(n.config.WorkDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// Result returns the outcome of the last completed Start, or nil
func (n *Runner) Result() *reporting.Result {
	return n.result
}

// Stop implements the cliapp.Lifecycle interface.
func (n *Runner) Stop(ctx context.Context) error {
	if !n.running.Swap(false) {
		n.config.Log.Debug("Runner already stopped, nothing to do")
		return nil
	}
	n.config.Log.Info("craft-report stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (n *Runner) Stopped() bool {
	return !n.running.Load()
}
