// Package types contains the data model shared across craft-report
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// TestStatus represents the final state of one concluded test attempt
type TestStatus string

const (
	TestStatusPassed   TestStatus = "passed"
	TestStatusFailed   TestStatus = "failed"
	TestStatusTimedOut TestStatus = "timedOut"
	TestStatusSkipped  TestStatus = "skipped"
	TestStatusUnknown  TestStatus = "unknown"
)

// ParseTestStatus maps host status strings onto a TestStatus.
// Unrecognised values, including "interrupted", become TestStatusUnknown.
func ParseTestStatus(s string) TestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "pass":
		return TestStatusPassed
	case "failed", "fail":
		return TestStatusFailed
	case "timedout", "timed-out", "timed_out", "timeout":
		return TestStatusTimedOut
	case "skipped", "skip":
		return TestStatusSkipped
	default:
		return TestStatusUnknown
	}
}

// IsFailure reports whether the status counts as a failure in run statistics
func (s TestStatus) IsFailure() bool {
	return s == TestStatusFailed || s == TestStatusTimedOut
}

// UnmarshalText normalises status strings coming from hosts
func (s *TestStatus) UnmarshalText(text []byte) error {
	*s = ParseTestStatus(string(text))
	return nil
}

// Annotation is a free-form {kind, description} label attached to a test by its author
type Annotation struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Location points at the test definition in source
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// TitleSeparator joins title path segments into the display title
const TitleSeparator = " › "

// JoinTitlePath returns the display form of a title path, skipping empty segments
func JoinTitlePath(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, TitleSeparator)
}

// TestConclusion is what a host reports when one test attempt has finished
type TestConclusion struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	TitlePath   []string     `json:"titlePath,omitempty"`
	Status      TestStatus   `json:"status"`
	DurationMs  int64        `json:"duration"`
	Error       string       `json:"error,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Location    Location     `json:"location"`
	StartTime   time.Time    `json:"startTime"`
	Retry       int          `json:"retry"`
}

// UnmarshalJSON accepts fractional millisecond durations, which some hosts report,
// and rounds them to the nearest millisecond.
func (c *TestConclusion) UnmarshalJSON(data []byte) error {
	type plain TestConclusion
	aux := struct {
		*plain
		DurationMs json.Number `json:"duration"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.DurationMs == "" {
		return nil
	}
	ms, err := aux.DurationMs.Float64()
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", aux.DurationMs, err)
	}
	c.DurationMs = int64(math.Round(ms))
	return nil
}

// TestOutcome is the aggregated record for one test identity
type TestOutcome struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	TitlePath  []string   `json:"titlePath"`
	FullTitle  string     `json:"fullTitle"`
	Status     TestStatus `json:"status"`
	DurationMs int64      `json:"duration"`
	Error      string     `json:"error,omitempty"`
	Metadata   Metadata   `json:"metadata"`
	Location   Location   `json:"location"`
	StartTime  Timestamp  `json:"startTime"`
	Retry      int        `json:"retry"`
}

// Duration returns the outcome duration as a time.Duration
func (o *TestOutcome) Duration() time.Duration {
	return time.Duration(o.DurationMs) * time.Millisecond
}

// Timestamp marshals as an ISO-8601 UTC string with millisecond precision
type Timestamp time.Time

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalText implements encoding.TextMarshaler
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).UTC().Format(timestampLayout)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := time.Parse(time.RFC3339Nano, string(text))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
