package schema

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Embedded schema names
const (
	ConfigSchema     = "config.schema.json"
	ReportDataSchema = "report-data.schema.json"
)

var (
	compiled    map[string]*jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		names := []string{ConfigSchema, ReportDataSchema}

		for _, name := range names {
			data, err := FS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshal %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, doc); err != nil {
				compileErr = fmt.Errorf("add %s resource: %w", name, err)
				return
			}
		}

		schemas := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			sch, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			schemas[name] = sch
		}
		compiled = schemas
	})

	return compileErr
}

func validate(name, kind string, data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := compiled[name].Validate(v); err != nil {
		return fmt.Errorf("%s validation failed: %w", kind, err)
	}
	return nil
}

// ValidateConfig validates a configuration document, already converted to JSON, against the config schema.
func ValidateConfig(data []byte) error {
	return validate(ConfigSchema, "config", data)
}

// ValidateReportData validates a report-data.json document.
func ValidateReportData(data []byte) error {
	return validate(ReportDataSchema, "report data", data)
}
