// Package metadata turns free-form test annotations and title paths into structured labels
package metadata

import (
	"strings"

	"github.com/ethereum-optimism/craft-report/types"
)

// fieldSetters maps a lower-cased annotation kind to the single-valued field it sets.
// Kinds missing from this table (other than "tag") land in Metadata.Parameters.
var fieldSetters = map[string]func(m *types.Metadata, v string){
	"epic":        func(m *types.Metadata, v string) { m.Epic = v },
	"feature":     func(m *types.Metadata, v string) { m.Feature = v },
	"story":       func(m *types.Metadata, v string) { m.Story = v },
	"suite":       func(m *types.Metadata, v string) { m.Suite = v },
	"subsuite":    func(m *types.Metadata, v string) { m.SubSuite = v },
	"parentsuite": func(m *types.Metadata, v string) { m.ParentSuite = v },
	"severity":    func(m *types.Metadata, v string) { m.Severity = v },
	"owner":       func(m *types.Metadata, v string) { m.Owner = v },
	"description": func(m *types.Metadata, v string) { m.Description = v },
}

const tagKind = "tag"

// Normalize derives a Metadata value from a test's annotations and its title path.
// Explicit annotations always win over values inferred from the title path.
func Normalize(annotations []types.Annotation, titlePath []string) types.Metadata {
	md := types.NewMetadata()

	for _, a := range annotations {
		kind := strings.ToLower(strings.TrimSpace(a.Type))
		if kind == "" {
			continue
		}
		if kind == tagKind {
			md.Tags = append(md.Tags, a.Description)
			continue
		}
		if set, ok := fieldSetters[kind]; ok {
			set(&md, a.Description)
			continue
		}
		if a.Description != "" {
			md.Parameters[kind] = a.Description
		}
	}

	backfillHierarchy(&md, titlePath)
	return md
}

// backfillHierarchy fills unset suite levels from the title path:
// path[0] -> parentSuite, path[1] -> suite, path[2] -> subSuite.
// The last segment is the test itself and is never used.
func backfillHierarchy(md *types.Metadata, path []string) {
	if len(path) <= 1 {
		return
	}
	if md.ParentSuite == "" {
		md.ParentSuite = path[0]
	}
	if md.Suite == "" && len(path) > 2 {
		md.Suite = path[1]
	}
	if md.SubSuite == "" && len(path) > 3 {
		md.SubSuite = path[2]
	}
}
