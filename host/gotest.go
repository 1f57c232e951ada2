package host

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/mod/modfile"

	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

// test2json actions
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// timeoutMarker is printed by the testing package when -timeout expires
const timeoutMarker = "test timed out after"

var (
	// identityNamespace scopes the name-based test identities
	identityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ethereum-optimism/craft-report/gotest"))

	framingLine    = regexp.MustCompile(`^\s*(?:=== (?:RUN|PAUSE|CONT|NAME)\b|--- (?:PASS|FAIL|SKIP):)`)
	annotationLine = regexp.MustCompile(`^\s*(?:[^\s:]+\.go:\d+:\s*)?@([A-Za-z][\w.-]*):\s?(.*)$`)
	locationPrefix = regexp.MustCompile(`^\s*([^\s:]+\.go):(\d+):`)
)

// TestEvent is one event of `go test -json` output
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Elapsed float64
	Output  string
}

// Identity returns the stable identity of a test: a name-based UUID of its package and full name
func Identity(pkg, test string) string {
	return uuid.NewSHA1(identityNamespace, []byte(pkg+"\x00"+test)).String()
}

// ModulePathFromFile reads the module path declared by a go.mod file
func ModulePathFromFile(goModPath string) (string, error) {
	content, err := os.ReadFile(goModPath)
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	modFile, err := modfile.Parse(goModPath, content, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if modFile.Module == nil || modFile.Module.Mod.Path == "" {
		return "", fmt.Errorf("could not find module name in %s", goModPath)
	}
	return modFile.Module.Mod.Path, nil
}

type testKey struct {
	pkg  string
	name string
}

type runningTest struct {
	started time.Time
	output  strings.Builder
}

// GoTestOption configures a GoTestAdapter
type GoTestOption func(*GoTestAdapter)

// WithModulePath trims the module path from package names in title paths
func WithModulePath(modulePath string) GoTestOption {
	return func(a *GoTestAdapter) {
		a.modulePath = modulePath
	}
}

// GoTestAdapter drives a Listener from `go test -json` output. Tests that run
// subtests are containers and are not reported themselves, unless they fail
// while none of their subtests did.
type GoTestAdapter struct {
	log        log.Logger
	listener   Listener
	modulePath string

	began          bool
	running        map[testKey]*runningTest
	containers     map[testKey]bool
	failedChildren map[testKey]bool
	packageOutput  map[string]*strings.Builder
	attempts       map[string]int
	packageFailed  bool
	concludedTests int
}

// NewGoTestAdapter creates an adapter forwarding to listener
func NewGoTestAdapter(logger log.Logger, listener Listener, opts ...GoTestOption) *GoTestAdapter {
	a := &GoTestAdapter{
		log:            logger,
		listener:       listener,
		running:        make(map[testKey]*runningTest),
		containers:     make(map[testKey]bool),
		failedChildren: make(map[testKey]bool),
		packageOutput:  make(map[string]*strings.Builder),
		attempts:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run consumes the whole stream and ends the run. Lines that are not JSON events,
// such as build errors, are skipped.
func (a *GoTestAdapter) Run(ctx context.Context, r io.Reader) (*reporting.Result, error) {
	a.begin()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ev TestEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			a.log.Debug("Skipping non-JSON line", "line", string(line))
			continue
		}
		a.Handle(ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read go test output: %w", err)
	}

	// whatever is still running never concluded, e.g. the test binary crashed
	for _, key := range slices.Backward(a.runningKeys("")) {
		a.conclude(key, types.TestStatusUnknown, 0, "")
	}

	status := types.TestStatusPassed
	if a.packageFailed {
		status = types.TestStatusFailed
	}
	a.log.Debug("go test stream finished", "tests", a.concludedTests, "status", status)
	return a.listener.End(ctx, status)
}

// Handle processes a single test2json event
func (a *GoTestAdapter) Handle(ev TestEvent) {
	a.begin()
	if ev.Test == "" {
		a.handlePackage(ev)
		return
	}

	key := testKey{pkg: ev.Package, name: ev.Test}
	switch ev.Action {
	case ActionRun:
		a.running[key] = &runningTest{started: ev.Time}
		if i := strings.LastIndexByte(ev.Test, '/'); i > 0 {
			a.containers[testKey{pkg: ev.Package, name: ev.Test[:i]}] = true
		}
	case ActionOutput:
		a.test(key, ev).output.WriteString(ev.Output)
	case ActionPass:
		a.test(key, ev)
		a.conclude(key, types.TestStatusPassed, secondsToDuration(ev.Elapsed), "")
	case ActionFail:
		a.test(key, ev)
		a.conclude(key, types.TestStatusFailed, secondsToDuration(ev.Elapsed), "")
	case ActionSkip:
		a.test(key, ev)
		a.conclude(key, types.TestStatusSkipped, secondsToDuration(ev.Elapsed), "")
	}
}

func (a *GoTestAdapter) handlePackage(ev TestEvent) {
	switch ev.Action {
	case ActionStart:
		a.packageOutput[ev.Package] = &strings.Builder{}
	case ActionOutput:
		out, ok := a.packageOutput[ev.Package]
		if !ok {
			out = &strings.Builder{}
			a.packageOutput[ev.Package] = out
		}
		out.WriteString(ev.Output)
	case ActionFail:
		a.packageFailed = true
		var pkgOutput string
		if out, ok := a.packageOutput[ev.Package]; ok {
			pkgOutput = out.String()
		}
		// tests still running when the package fails were cut short by a timeout or a crash
		status := types.TestStatusFailed
		if strings.Contains(pkgOutput, timeoutMarker) {
			status = types.TestStatusTimedOut
		}
		// subtests first, so a parent cut short with them is attributed to them
		for _, key := range slices.Backward(a.runningKeys(ev.Package)) {
			var elapsed time.Duration
			if started := a.running[key].started; !started.IsZero() && !ev.Time.IsZero() {
				elapsed = ev.Time.Sub(started)
			}
			a.conclude(key, status, elapsed, pkgOutput)
		}
		delete(a.packageOutput, ev.Package)
	case ActionPass, ActionSkip:
		delete(a.packageOutput, ev.Package)
	}
}

func (a *GoTestAdapter) begin() {
	if !a.began {
		a.listener.Begin(0)
		a.began = true
	}
}

// test returns the running test for key, tracking it from ev when its run event was missed
func (a *GoTestAdapter) test(key testKey, ev TestEvent) *runningTest {
	t, ok := a.running[key]
	if !ok {
		started := ev.Time
		if ev.Elapsed > 0 {
			started = ev.Time.Add(-secondsToDuration(ev.Elapsed))
		}
		t = &runningTest{started: started}
		a.running[key] = t
	}
	return t
}

// runningKeys returns the running tests of pkg, or of every package when pkg is empty, in name order
func (a *GoTestAdapter) runningKeys(pkg string) []testKey {
	var keys []testKey
	for key := range a.running {
		if pkg == "" || key.pkg == pkg {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(x, y testKey) int {
		if c := strings.Compare(x.pkg, y.pkg); c != 0 {
			return c
		}
		return strings.Compare(x.name, y.name)
	})
	return keys
}

func (a *GoTestAdapter) conclude(key testKey, status types.TestStatus, elapsed time.Duration, extraOutput string) {
	t := a.running[key]
	delete(a.running, key)
	failedChild := a.failedChildren[key]
	delete(a.failedChildren, key)
	if a.containers[key] {
		delete(a.containers, key)
		if !status.IsFailure() || failedChild {
			return
		}
	}

	output := t.output.String() + extraOutput
	trace, annotations, location := ParseOutput(output)
	if status == types.TestStatusFailed && strings.Contains(output, timeoutMarker) {
		status = types.TestStatusTimedOut
	}
	if status.IsFailure() {
		a.markParentsFailed(key)
	}

	id := Identity(key.pkg, key.name)
	retry := a.attempts[id]
	a.attempts[id]++

	segments := strings.Split(key.name, "/")
	titlePath := append([]string{a.packageTitle(key.pkg)}, segments...)

	a.concludedTests++
	a.listener.TestConcluded(types.TestConclusion{
		ID:          id,
		Title:       segments[len(segments)-1],
		TitlePath:   titlePath,
		Status:      status,
		DurationMs:  max(elapsed, 0).Milliseconds(),
		Error:       trace,
		Annotations: annotations,
		Location:    location,
		StartTime:   t.started,
		Retry:       retry,
	})
}

func (a *GoTestAdapter) markParentsFailed(key testKey) {
	name := key.name
	for {
		i := strings.LastIndexByte(name, '/')
		if i <= 0 {
			return
		}
		name = name[:i]
		a.failedChildren[testKey{pkg: key.pkg, name: name}] = true
	}
}

// packageTitle strips the module path so packages read like directories
func (a *GoTestAdapter) packageTitle(pkg string) string {
	if a.modulePath == "" {
		return pkg
	}
	if pkg == a.modulePath {
		return path.Base(pkg)
	}
	if rel, ok := strings.CutPrefix(pkg, a.modulePath+"/"); ok {
		return rel
	}
	return pkg
}

// ParseOutput separates a test's output into its trace, the @kind: description
// annotations it logged and the first source location it mentions.
// Framing lines written by the testing package are dropped from the trace.
func ParseOutput(output string) (string, []types.Annotation, types.Location) {
	var (
		trace       []string
		annotations []types.Annotation
		location    types.Location
	)
	for _, line := range strings.Split(output, "\n") {
		if location.File == "" {
			if m := locationPrefix.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[2])
				location = types.Location{File: m[1], Line: n}
			}
		}
		if framingLine.MatchString(line) {
			continue
		}
		if m := annotationLine.FindStringSubmatch(line); m != nil {
			annotations = append(annotations, types.Annotation{Type: m[1], Description: strings.TrimSpace(m[2])})
			continue
		}
		trace = append(trace, line)
	}
	return strings.TrimSpace(strings.Join(trace, "\n")), annotations, location
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
