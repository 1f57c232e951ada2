package types

import "time"

// RunStats holds the per-status counts of a finalized run
type RunStats struct {
	Total   int `json:"totalTests"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Unknown int `json:"unknown"`
	Flaky   int `json:"flaky"`
}

// Add classifies one outcome into the counters
func (s *RunStats) Add(o *TestOutcome) {
	s.Total++
	switch {
	case o.Status == TestStatusPassed:
		s.Passed++
	case o.Status.IsFailure():
		s.Failed++
	case o.Status == TestStatusSkipped:
		s.Skipped++
	default:
		s.Unknown++
	}
	if o.Retry > 0 {
		s.Flaky++
	}
}

// RunSummary is the immutable record of one completed run
type RunSummary struct {
	RunID         string     `json:"runId"`
	Title         string     `json:"title"`
	GeneratedAt   Timestamp  `json:"generatedAt"`
	StartedAt     Timestamp  `json:"startedAt"`
	ExpectedTests int        `json:"expectedTests"`
	Status        TestStatus `json:"status"`
	RunStats
	DurationMs int64             `json:"duration"`
	Tests      []TestOutcome     `json:"tests"`
	Comments   map[string]string `json:"comments"`
}

// Duration returns the wall-clock duration of the run
func (s *RunSummary) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// FailedTests returns the outcomes whose status counts as failed
func (s *RunSummary) FailedTests() []TestOutcome {
	var failed []TestOutcome
	for _, t := range s.Tests {
		if t.Status.IsFailure() {
			failed = append(failed, t)
		}
	}
	return failed
}

// HasFailures reports whether any test failed or timed out, or the host ended the
// run as failed. The latter covers failures no test was charged with, such as a
// package that did not build.
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0 || s.Status.IsFailure()
}
