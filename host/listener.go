// Package host turns test event streams into the begin, testConcluded and end
// calls that drive a report.
package host

import (
	"context"

	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

// Listener receives the host events of one run, in order: Begin once,
// TestConcluded for every concluded test attempt, then End once.
type Listener interface {
	Begin(testCount int)
	TestConcluded(c types.TestConclusion)
	End(ctx context.Context, status types.TestStatus) (*reporting.Result, error)
}
