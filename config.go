package craftreport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/craft-report/comments"
	"github.com/ethereum-optimism/craft-report/flags"
	"github.com/ethereum-optimism/craft-report/host"
	"github.com/ethereum-optimism/craft-report/schema"
)

// Config holds the resolved application configuration
type Config struct {
	ConfigFile        string      // YAML file the values were layered from, if any
	WorkDir           string      // Directory relative paths were resolved against
	OutputDir         string      // Absolute directory receiving the artifacts
	OutputFile        string      // File name of the rendered document inside OutputDir
	Open              bool        // Open the rendered document once written
	Title             string      // Report title
	Logo              string      // Absolute logo path, empty when unset
	TemplateDir       string      // Absolute custom presentation directory, empty when unset
	Input             string      // Event stream path, "-" for stdin
	Format            host.Format // Event stream encoding
	FailOnTestFailure bool        // Exit with code 1 when tests failed
	MetricsPushURL    string      // Pushgateway URL, empty disables pushing
	Log               log.Logger
}

// FileConfig is the YAML configuration file. Keys are validated against the embedded config schema.
type FileConfig struct {
	OutputDir         string `yaml:"outputDir"`
	OutputFile        string `yaml:"outputFile"`
	Open              bool   `yaml:"open"`
	Title             string `yaml:"title"`
	Logo              string `yaml:"logo"`
	TemplateDir       string `yaml:"templateDir"`
	Input             string `yaml:"input"`
	Format            string `yaml:"format"`
	FailOnTestFailure bool   `yaml:"failOnTestFailure"`
	MetricsPushURL    string `yaml:"metricsPushURL"`
}

// DefaultFileConfig returns the built-in defaults, the lowest configuration layer
func DefaultFileConfig() FileConfig {
	return FileConfig{
		OutputDir:  flags.DefaultOutputDir,
		OutputFile: flags.DefaultOutputFile,
		Title:      flags.DefaultTitle,
		Input:      flags.DefaultInput,
		Format:     host.FormatNDJSON.String(),
	}
}

// LoadFileConfig reads a YAML configuration file and layers it over the defaults
func LoadFileConfig(path string) (FileConfig, error) {
	fc := DefaultFileConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if raw == nil {
		// an empty document configures nothing
		return fc, nil
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return fc, fmt.Errorf("config file %s must be a mapping with string keys: %w", path, err)
	}
	if err := schema.ValidateConfig(doc); err != nil {
		return fc, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return fc, nil
}

// NewConfig creates a new Config from cli context. Values are layered as
// defaults, then the optional config file, then flags and environment variables.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	fc := DefaultFileConfig()
	configFile := ctx.String(flags.ConfigFile.Name)
	if configFile != "" {
		var err error
		if fc, err = LoadFileConfig(configFile); err != nil {
			return nil, err
		}
	}

	overrideString(ctx, flags.OutputDir, &fc.OutputDir)
	overrideString(ctx, flags.OutputFile, &fc.OutputFile)
	overrideBool(ctx, flags.Open, &fc.Open)
	overrideString(ctx, flags.Title, &fc.Title)
	overrideString(ctx, flags.Logo, &fc.Logo)
	overrideString(ctx, flags.TemplateDir, &fc.TemplateDir)
	overrideString(ctx, flags.Input, &fc.Input)
	overrideString(ctx, flags.Format, &fc.Format)
	overrideBool(ctx, flags.FailOnTestFailure, &fc.FailOnTestFailure)
	overrideString(ctx, flags.MetricsPushURL, &fc.MetricsPushURL)

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	cfg, err := ResolveConfig(fc, workDir, log)
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile
	return cfg, nil
}

// ResolveConfig validates the layered values and resolves relative paths against workDir
func ResolveConfig(fc FileConfig, workDir string, log log.Logger) (*Config, error) {
	if fc.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if fc.OutputFile == "" || strings.ContainsAny(fc.OutputFile, `/\`) {
		return nil, fmt.Errorf("output file must be a plain file name, got %q", fc.OutputFile)
	}
	format := host.Format(fc.Format)
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid format: %s. Must be one of: %s, %s", fc.Format, host.FormatNDJSON, host.FormatGoTest)
	}
	if fc.Input == "" {
		fc.Input = flags.DefaultInput
	}

	return &Config{
		WorkDir:           workDir,
		OutputDir:         resolvePath(workDir, fc.OutputDir),
		OutputFile:        fc.OutputFile,
		Open:              fc.Open,
		Title:             fc.Title,
		Logo:              resolvePath(workDir, fc.Logo),
		TemplateDir:       resolvePath(workDir, fc.TemplateDir),
		Input:             fc.Input,
		Format:            format,
		FailOnTestFailure: fc.FailOnTestFailure,
		MetricsPushURL:    fc.MetricsPushURL,
		Log:               log,
	}, nil
}

// DocumentPath returns the absolute path of the rendered document
func (c *Config) DocumentPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// CommentsPath returns the absolute path of the externally maintained comment store
func (c *Config) CommentsPath() string {
	return filepath.Join(c.OutputDir, comments.Filename)
}

func resolvePath(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

func overrideString(ctx *cli.Context, flag *cli.StringFlag, dst *string) {
	if ctx.IsSet(flag.Name) {
		*dst = ctx.String(flag.Name)
	}
}

func overrideBool(ctx *cli.Context, flag *cli.BoolFlag, dst *bool) {
	if ctx.IsSet(flag.Name) {
		*dst = ctx.Bool(flag.Name)
	}
}
