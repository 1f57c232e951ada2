// Package aggregator owns the live collection of test outcomes for a single run.
//
// An Aggregator moves through three states: Idle until Begin is called,
// Collecting while outcomes are recorded, and Finalized once Finalize has
// produced the RunSummary. Outcomes recorded for an identity that is already
// present replace the earlier record in place, so retries collapse into one
// entry. Misuse of the lifecycle panics.
//
// The aggregator is not safe for concurrent use: hosts report conclusions serially.
package aggregator

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ethereum-optimism/craft-report/types"
)

// State is the lifecycle state of an Aggregator
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source used for start, end and generation timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithLanguage sets the collation locale used to order tests by display name
func WithLanguage(tag language.Tag) Option {
	return func(a *Aggregator) {
		a.lang = tag
	}
}

// Aggregator accumulates outcomes for one run
type Aggregator struct {
	now  func() time.Time
	lang language.Tag

	state    State
	started  time.Time
	expected int

	outcomes []types.TestOutcome
	index    map[string]int // identity -> position in outcomes
}

// New creates an idle aggregator
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:   time.Now,
		lang:  language.English,
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle state
func (a *Aggregator) State() State {
	return a.state
}

// Len returns the number of distinct identities recorded so far
func (a *Aggregator) Len() int {
	return len(a.outcomes)
}

// Begin records the run start and starts accepting outcomes
func (a *Aggregator) Begin(expectedTests int) {
	if a.state != StateIdle {
		panic(fmt.Sprintf("aggregator: Begin called in %s state", a.state))
	}
	a.started = a.now()
	a.expected = expectedTests
	a.state = StateCollecting
}

// RecordOutcome stores the outcome, replacing any earlier outcome with the same identity
// while keeping the position of the first insertion.
func (a *Aggregator) RecordOutcome(outcome types.TestOutcome) {
	if a.state != StateCollecting {
		panic(fmt.Sprintf("aggregator: RecordOutcome(%q) called in %s state", outcome.ID, a.state))
	}
	if i, ok := a.index[outcome.ID]; ok {
		a.outcomes[i] = outcome
		return
	}
	a.index[outcome.ID] = len(a.outcomes)
	a.outcomes = append(a.outcomes, outcome)
}

// Finalize orders the collected outcomes by display name, computes the run statistics
// and returns the summary. It may only be called once.
func (a *Aggregator) Finalize(status types.TestStatus) *types.RunSummary {
	if a.state != StateCollecting {
		panic(fmt.Sprintf("aggregator: Finalize called in %s state", a.state))
	}
	a.state = StateFinalized

	end := a.now()
	elapsed := end.Sub(a.started)
	if elapsed < 0 {
		elapsed = 0
	}

	ordered := slices.Clone(a.outcomes)
	SortByTitle(ordered, a.lang)

	summary := &types.RunSummary{
		GeneratedAt:   types.Timestamp(end),
		StartedAt:     types.Timestamp(a.started),
		ExpectedTests: a.expected,
		Status:        status,
		DurationMs:    elapsed.Milliseconds(),
		Tests:         ordered,
		Comments:      make(map[string]string),
	}
	for i := range ordered {
		summary.RunStats.Add(&ordered[i])
	}
	return summary
}

// SortByTitle stably sorts outcomes by display name using a case-insensitive,
// numeric-aware collator for the given locale, so "test 2" sorts before "test 10".
func SortByTitle(outcomes []types.TestOutcome, lang language.Tag) {
	c := collate.New(lang, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(outcomes, func(x, y types.TestOutcome) int {
		return c.CompareString(x.Title, y.Title)
	})
}
