package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	craftreport "github.com/ethereum-optimism/craft-report"
	"github.com/ethereum-optimism/craft-report/exitcodes"
	"github.com/ethereum-optimism/craft-report/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitcodes.Success},
		{"test failure", craftreport.NewTestFailureError(1, 3), exitcodes.TestFailure},
		{"runtime error", craftreport.NewRuntimeError(errors.New("disk full")), exitcodes.RuntimeErr},
		{"joined runtime error", errors.Join(errors.New("failed to start"), craftreport.NewRuntimeError(errors.New("x"))), exitcodes.RuntimeErr},
		{"unclassified", errors.New("boom"), exitcodes.TestFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	assert.Equal(t, "craft-report", app.Name)

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"run", "serve", "validate"}, names)

	serve := app.Command("serve")
	require.NotNil(t, serve)
	var hasAddr bool
	for _, f := range serve.Flags {
		if f.Names()[0] == "addr" {
			hasAddr = true
		}
	}
	assert.True(t, hasAddr)
}

func runValidate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), append([]string{"craft-report", "validate"}, args...))
	return out.String(), err
}

func writeReportData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg, err := craftreport.ResolveConfig(craftreport.DefaultFileConfig(), dir, log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	r := craftreport.NewReporter(cfg, craftreport.WithOutput(&bytes.Buffer{}))
	r.Begin(1)
	r.TestConcluded(types.TestConclusion{ID: "a", Title: "a", Status: types.TestStatusPassed, StartTime: time.Now()})
	result, err := r.End(context.Background(), types.TestStatusPassed)
	require.NoError(t, err)
	return result.Artifacts.DataPath
}

func TestValidate_Valid(t *testing.T) {
	path := writeReportData(t)

	out, err := runValidate(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidate_Invalid(t *testing.T) {
	path := writeReportData(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	delete(doc, "runId")
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = runValidate(t, path)
	require.Error(t, err)
	assert.Equal(t, exitcodes.TestFailure, exitCode(err))
}

func TestValidate_RuntimeErrors(t *testing.T) {
	_, err := runValidate(t)
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, exitCode(err))

	_, err = runValidate(t, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, exitCode(err))
}
