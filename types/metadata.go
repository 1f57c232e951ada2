package types

// Metadata is the structured label set derived from a test's annotations and title path
type Metadata struct {
	Epic        string            `json:"epic,omitempty"`
	Feature     string            `json:"feature,omitempty"`
	Story       string            `json:"story,omitempty"`
	Suite       string            `json:"suite,omitempty"`
	SubSuite    string            `json:"subSuite,omitempty"`
	ParentSuite string            `json:"parentSuite,omitempty"`
	Severity    string            `json:"severity,omitempty"`
	Owner       string            `json:"owner,omitempty"`
	Tags        []string          `json:"tags"`
	Description string            `json:"description,omitempty"`
	Parameters  map[string]string `json:"parameters"`
}

// NewMetadata returns an empty Metadata with non-nil collections
func NewMetadata() Metadata {
	return Metadata{
		Tags:       make([]string, 0),
		Parameters: make(map[string]string),
	}
}
