// Package schema embeds the JSON schemas for the craft-report configuration file and the
// report-data.json artifact, and validates documents against them.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS
