package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

// Event types of the NDJSON protocol
const (
	EventBegin         = "begin"
	EventTestConcluded = "testConcluded"
	EventEnd           = "end"
)

// maxEventSize bounds a single NDJSON line; error traces can be long
const maxEventSize = 16 * 1024 * 1024

// Event is one line of the NDJSON protocol
type Event struct {
	Type      string                `json:"type"`
	TestCount int                   `json:"testCount,omitempty"`
	Test      *types.TestConclusion `json:"test,omitempty"`
	Status    types.TestStatus      `json:"status,omitempty"`
}

// DecodeEvents reads NDJSON events from r and forwards them to l. Blank lines are skipped.
// A conclusion without a preceding begin starts the run implicitly, and a stream that
// ends without an end event is ended with status unknown.
func DecodeEvents(ctx context.Context, r io.Reader, l Listener) (*reporting.Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		began, ended bool
		result       *reporting.Result
		lineNo       int
	)
	begin := func(count int) {
		if !began {
			l.Begin(count)
			began = true
		}
	}

	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if ended {
			return nil, fmt.Errorf("line %d: event after end", lineNo)
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("line %d: malformed event: %w", lineNo, err)
		}

		switch ev.Type {
		case EventBegin:
			if began {
				return nil, fmt.Errorf("line %d: duplicate begin event", lineNo)
			}
			begin(max(ev.TestCount, 0))
		case EventTestConcluded:
			if ev.Test == nil {
				return nil, fmt.Errorf("line %d: testConcluded event without test", lineNo)
			}
			if ev.Test.ID == "" {
				return nil, fmt.Errorf("line %d: test without id", lineNo)
			}
			begin(0)
			l.TestConcluded(*ev.Test)
		case EventEnd:
			begin(0)
			var err error
			if result, err = l.End(ctx, ev.Status); err != nil {
				return nil, err
			}
			ended = true
		default:
			return nil, fmt.Errorf("line %d: unknown event type %q", lineNo, ev.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("line %d: event exceeds %d bytes", lineNo+1, maxEventSize)
		}
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	if !ended {
		begin(0)
		return l.End(ctx, types.TestStatusUnknown)
	}
	return result, nil
}
