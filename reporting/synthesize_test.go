package reporting

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/craft-report/types"
)

func sampleSummary(generatedAt time.Time) *types.RunSummary {
	md := types.NewMetadata()
	md.Epic = "Checkout"
	md.Tags = append(md.Tags, "smoke")
	md.Parameters["browser"] = "chromium"
	md.Parameters["attempt"] = "2"

	return &types.RunSummary{
		RunID:       "run-1",
		Title:       "Nightly",
		GeneratedAt: types.Timestamp(generatedAt),
		StartedAt:   types.Timestamp(time.Date(2024, 5, 1, 7, 59, 58, 0, time.UTC)),
		Status:      types.TestStatusFailed,
		RunStats:    types.RunStats{Total: 2, Passed: 1, Failed: 1},
		DurationMs:  2000,
		Tests: []types.TestOutcome{
			{ID: "a", Title: "adds item", FullTitle: "cart › adds item", Status: types.TestStatusPassed, DurationMs: 10, Metadata: md},
			{ID: "b", Title: "pays", FullTitle: "cart › pays", Status: types.TestStatusFailed, DurationMs: 20, Error: "expected </script> to be gone", Metadata: types.NewMetadata()},
		},
		Comments: map[string]string{"b": "known issue"},
	}
}

const testTemplate = `<html><head><title>{{CRAFT_TITLE}}</title><style><!--CRAFT_STYLES--></style></head>
<body><!--CRAFT_LOGO--><h1>{{CRAFT_TITLE}}</h1>
<script>var data = <!--CRAFT_DATA-->;</script>
<script><!--CRAFT_SCRIPT--></script>
<!--CRAFT_STYLES--><!--CRAFT_DATA--><!--CRAFT_SCRIPT--><!--CRAFT_LOGO-->
</body></html>`

func TestInject_MarkersReplacedOnce(t *testing.T) {
	out := Inject("A<!--CRAFT_DATA-->B<!--CRAFT_DATA-->C", map[string]string{DataMarker: "x"}, "T")
	assert.Equal(t, "AxB<!--CRAFT_DATA-->C", out)
}

func TestInject_TitleReplacedEverywhere(t *testing.T) {
	out := Inject("{{CRAFT_TITLE}}-{{CRAFT_TITLE}}-{{CRAFT_TITLE}}", nil, "T")
	assert.Equal(t, "T-T-T", out)
}

func TestInject_InjectedContentIsNotRescanned(t *testing.T) {
	out := Inject("<!--CRAFT_STYLES-->|<!--CRAFT_DATA-->", map[string]string{
		StylesMarker: "/* {{CRAFT_TITLE}} <!--CRAFT_DATA--> */",
		DataMarker:   `{"name":"{{CRAFT_TITLE}}"}`,
	}, "T")
	assert.Equal(t, `/* {{CRAFT_TITLE}} <!--CRAFT_DATA--> */|{"name":"{{CRAFT_TITLE}}"}`, out)
}

func TestInject_NoMarkers(t *testing.T) {
	assert.Equal(t, "plain", Inject("plain", map[string]string{DataMarker: "x"}, "T"))
	assert.Equal(t, "", Inject("", nil, "T"))
}

func TestSynthesize_DataDocument(t *testing.T) {
	summary := sampleSummary(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	docs, err := Synthesize(summary, Bundle{Template: testTemplate}, "Nightly")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(string(docs.Data), "}\n"))
	assert.Contains(t, string(docs.Data), "\n  \"runId\": \"run-1\"")

	var decoded types.RunSummary
	require.NoError(t, json.Unmarshal(docs.Data, &decoded))
	assert.Equal(t, summary.Total, decoded.Total)
	assert.Equal(t, summary.Comments, decoded.Comments)
	require.Len(t, decoded.Tests, 2)
	assert.Equal(t, "chromium", decoded.Tests[0].Metadata.Parameters["browser"])
}

func TestSynthesize_RenderedDocument(t *testing.T) {
	summary := sampleSummary(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	bundle := Bundle{
		Template: testTemplate,
		Style:    "body{color:red}",
		Script:   "console.log(data)",
		Logo:     &Logo{MIMEType: "image/svg+xml", Data: []byte("<svg/>")},
	}

	docs, err := Synthesize(summary, bundle, "Nightly <run>")
	require.NoError(t, err)
	html := string(docs.Rendered)

	assert.Equal(t, 2, strings.Count(html, "Nightly &lt;run&gt;"))
	assert.NotContains(t, html, TitleMarker)
	assert.Equal(t, 1, strings.Count(html, "body{color:red}"))
	assert.Equal(t, 1, strings.Count(html, "console.log(data)"))

	logo := `<img class="craft-logo" src="data:image/svg+xml;base64,` + base64.StdEncoding.EncodeToString([]byte("<svg/>")) + `" alt="logo">`
	assert.Equal(t, 1, strings.Count(html, logo))

	// the trailing duplicates of each once-only marker survive verbatim
	assert.Contains(t, html, StylesMarker+DataMarker+ScriptMarker+LogoMarker)

	// the data block cannot terminate the script element
	assert.NotContains(t, html, "expected </script>")
	assert.Contains(t, html, `expected \u003c/script\u003e`)
}

func TestSynthesize_DataBlockIsTheDataDocument(t *testing.T) {
	summary := sampleSummary(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	docs, err := Synthesize(summary, Bundle{Template: "<!--CRAFT_DATA-->"}, "T")
	require.NoError(t, err)

	var fromData, fromHTML map[string]any
	require.NoError(t, json.Unmarshal(docs.Data, &fromData))
	require.NoError(t, json.Unmarshal(docs.Rendered, &fromHTML))
	assert.Equal(t, fromData, fromHTML)
}

func TestSynthesize_MissingLogoLeavesMarkerEmpty(t *testing.T) {
	summary := sampleSummary(time.Now())

	docs, err := Synthesize(summary, Bundle{Template: "[<!--CRAFT_LOGO-->]"}, "T")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(docs.Rendered))
}

func TestSynthesize_IsDeterministic(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	bundle := Bundle{Template: testTemplate, Style: "s", Script: "j"}

	first, err := Synthesize(sampleSummary(at), bundle, "T")
	require.NoError(t, err)
	second, err := Synthesize(sampleSummary(at), bundle, "T")
	require.NoError(t, err)
	assert.Equal(t, first.Rendered, second.Rendered)
	assert.Equal(t, first.Data, second.Data)

	// only the generation timestamp differs between runs at different times
	later, err := Synthesize(sampleSummary(at.Add(time.Hour)), bundle, "T")
	require.NoError(t, err)
	normalized := strings.ReplaceAll(string(later.Rendered), "2024-05-01T09:00:00.000Z", "2024-05-01T08:00:00.000Z")
	assert.Equal(t, string(first.Rendered), normalized)
}

func TestSynthesize_NilSummary(t *testing.T) {
	_, err := Synthesize(nil, Bundle{Template: testTemplate}, "T")
	assert.Error(t, err)
}
