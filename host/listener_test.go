package host

import (
	"context"

	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

// recordingListener captures the host events it receives
type recordingListener struct {
	begins []int
	tests  []types.TestConclusion
	ends   []types.TestStatus
	endErr error
}

func (l *recordingListener) Begin(testCount int) {
	l.begins = append(l.begins, testCount)
}

func (l *recordingListener) TestConcluded(c types.TestConclusion) {
	l.tests = append(l.tests, c)
}

func (l *recordingListener) End(_ context.Context, status types.TestStatus) (*reporting.Result, error) {
	l.ends = append(l.ends, status)
	if l.endErr != nil {
		return nil, l.endErr
	}
	return &reporting.Result{Summary: &types.RunSummary{Status: status}}, nil
}
