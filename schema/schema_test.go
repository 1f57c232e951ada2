package schema

import (
	"encoding/json"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/craft-report/aggregator"
	"github.com/ethereum-optimism/craft-report/metadata"
	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

func TestEmbeddedSchemas(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".schema.json") {
			continue
		}
		names = append(names, entry.Name())

		data, err := FS.ReadFile(entry.Name())
		require.NoError(t, err)
		var v map[string]any
		require.NoError(t, json.Unmarshal(data, &v), "%s must be a JSON object", entry.Name())
	}
	assert.ElementsMatch(t, []string{ConfigSchema, ReportDataSchema}, names)
	require.NoError(t, compileSchemas())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty object", input: `{}`},
		{name: "full", input: `{
			"outputDir": "out",
			"outputFile": "index.html",
			"open": true,
			"title": "Nightly",
			"logo": "logo.svg",
			"templateDir": "theme",
			"input": "events.ndjson",
			"format": "gotest",
			"failOnTestFailure": true,
			"metricsPushURL": "http://localhost:9091"
		}`},
		{name: "unknown key", input: `{"outputdir": "out"}`, wantErr: true},
		{name: "unknown format", input: `{"format": "junit"}`, wantErr: true},
		{name: "wrong type", input: `{"open": "yes"}`, wantErr: true},
		{name: "empty output dir", input: `{"outputDir": ""}`, wantErr: true},
		{name: "output file with separator", input: `{"outputFile": "nested/report.html"}`, wantErr: true},
		{name: "not an object", input: `"craft"`, wantErr: true},
		{name: "malformed", input: `{"open":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateReportData_GeneratedDocument(t *testing.T) {
	agg := aggregator.New()
	agg.Begin(2)
	agg.RecordOutcome(types.TestOutcome{
		ID:        "a",
		Title:     "adds item",
		TitlePath: []string{"cart", "adds item"},
		FullTitle: "cart › adds item",
		Status:    types.TestStatusPassed,
		Metadata: metadata.Normalize([]types.Annotation{
			{Type: "tag", Description: "smoke"},
			{Type: "browser", Description: "chromium"},
		}, []string{"cart", "adds item"}),
		StartTime: types.Timestamp(time.Now()),
	})
	agg.RecordOutcome(types.TestOutcome{
		ID:         "b",
		Title:      "pays",
		FullTitle:  "pays",
		Status:     types.TestStatusTimedOut,
		DurationMs: 30000,
		Error:      "timeout",
		Metadata:   types.NewMetadata(),
		Retry:      1,
	})
	summary := agg.Finalize(types.TestStatusFailed)
	summary.RunID = "run"
	summary.Title = "Nightly"
	summary.Comments["b"] = "flaky backend"

	docs, err := reporting.Synthesize(summary, reporting.Bundle{Template: reporting.DataMarker}, summary.Title)
	require.NoError(t, err)

	assert.NoError(t, ValidateReportData(docs.Data))
}

func TestValidateReportData_Invalid(t *testing.T) {
	valid := map[string]any{
		"runId":       "r",
		"title":       "t",
		"generatedAt": "2024-05-01T08:00:00.000Z",
		"startedAt":   "2024-05-01T08:00:00.000Z",
		"status":      "passed",
		"totalTests":  0,
		"passed":      0,
		"failed":      0,
		"skipped":     0,
		"unknown":     0,
		"flaky":       0,
		"duration":    0,
		"tests":       []any{},
		"comments":    map[string]any{},
	}
	encode := func(mutate func(map[string]any)) []byte {
		doc := make(map[string]any, len(valid))
		for k, v := range valid {
			doc[k] = v
		}
		mutate(doc)
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		return data
	}

	require.NoError(t, ValidateReportData(encode(func(map[string]any) {})))

	tests := map[string]func(map[string]any){
		"missing tests":      func(d map[string]any) { delete(d, "tests") },
		"unknown status":     func(d map[string]any) { d["status"] = "broken" },
		"negative count":     func(d map[string]any) { d["failed"] = -1 },
		"fractional count":   func(d map[string]any) { d["passed"] = 1.5 },
		"non-string comment": func(d map[string]any) { d["comments"] = map[string]any{"a": 1} },
		"test without id":    func(d map[string]any) { d["tests"] = []any{map[string]any{"title": "x"}} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateReportData(encode(mutate)))
		})
	}
}
