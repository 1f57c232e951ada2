package reporting

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/ethereum-optimism/craft-report/types"
)

// Substitution markers understood in report templates
const (
	StylesMarker = "<!--CRAFT_STYLES-->"
	ScriptMarker = "<!--CRAFT_SCRIPT-->"
	DataMarker   = "<!--CRAFT_DATA-->"
	LogoMarker   = "<!--CRAFT_LOGO-->"
	TitleMarker  = "{{CRAFT_TITLE}}"
)

// Documents are the two artifacts produced from one run summary
type Documents struct {
	Data     []byte // pretty-printed report-data.json
	Rendered []byte // self-contained HTML document
}

// Synthesize serializes the summary and injects it, together with the bundle, into the template.
func Synthesize(summary *types.RunSummary, bundle Bundle, title string) (*Documents, error) {
	if summary == nil {
		return nil, fmt.Errorf("run summary is required")
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run summary: %w", err)
	}
	data = append(data, '\n')

	// json escapes <, > and & so the inline block cannot close the surrounding script element
	var inline bytes.Buffer
	if err := json.Compact(&inline, data); err != nil {
		return nil, fmt.Errorf("failed to compact run summary: %w", err)
	}

	rendered := Inject(bundle.Template, map[string]string{
		StylesMarker: bundle.Style,
		ScriptMarker: bundle.Script,
		DataMarker:   inline.String(),
		LogoMarker:   logoElement(bundle.Logo),
	}, html.EscapeString(title))

	return &Documents{Data: data, Rendered: []byte(rendered)}, nil
}

// Inject performs a single left-to-right pass over tmpl. Each marker in once is
// replaced at its first occurrence only; later occurrences are kept verbatim.
// Every TitleMarker is replaced with title. Injected content is never rescanned.
func Inject(tmpl string, once map[string]string, title string) string {
	markers := make([]string, 0, len(once)+1)
	for m := range once {
		markers = append(markers, m)
	}
	markers = append(markers, TitleMarker)

	used := make(map[string]bool, len(once))
	var out strings.Builder
	out.Grow(len(tmpl))

	rest := tmpl
	for {
		pos, marker := nextMarker(rest, markers)
		if pos < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:pos])
		rest = rest[pos+len(marker):]

		switch {
		case marker == TitleMarker:
			out.WriteString(title)
		case used[marker]:
			out.WriteString(marker)
		default:
			used[marker] = true
			out.WriteString(once[marker])
		}
	}
	return out.String()
}

// nextMarker returns the position of the earliest marker in s. Markers starting at
// the same position resolve to the longest one.
func nextMarker(s string, markers []string) (int, string) {
	best, found := -1, ""
	for _, m := range markers {
		if m == "" {
			continue
		}
		i := strings.Index(s, m)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || (i == best && len(m) > len(found)) {
			best, found = i, m
		}
	}
	return best, found
}

func logoElement(logo *Logo) string {
	if logo == nil || len(logo.Data) == 0 {
		return ""
	}
	return fmt.Sprintf(`<img class="craft-logo" src="data:%s;base64,%s" alt="logo">`,
		logo.MIMEType, base64.StdEncoding.EncodeToString(logo.Data))
}
