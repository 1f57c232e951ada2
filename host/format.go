package host

import "slices"

// Format names an input event stream encoding
type Format string

const (
	// FormatNDJSON is the native craft-report event protocol, one JSON event per line
	FormatNDJSON Format = "ndjson"
	// FormatGoTest is the output of `go test -json`
	FormatGoTest Format = "gotest"
)

// String returns the string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

// ValidFormats returns all supported input formats
func ValidFormats() []Format {
	return []Format{FormatNDJSON, FormatGoTest}
}
