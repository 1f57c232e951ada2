package craftreport

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/craft-report/aggregator"
	"github.com/ethereum-optimism/craft-report/comments"
	"github.com/ethereum-optimism/craft-report/metadata"
	"github.com/ethereum-optimism/craft-report/metrics"
	"github.com/ethereum-optimism/craft-report/reporting"
	"github.com/ethereum-optimism/craft-report/types"
)

// Reporter receives the host events of one run and turns them into a report.
// It is driven by a single goroutine and used for exactly one run.
type Reporter struct {
	cfg    *Config
	log    log.Logger
	now    func() time.Time
	out    io.Writer
	viewer Viewer
	tracer trace.Tracer
	runID  string

	agg *aggregator.Aggregator
}

// Option configures a Reporter
type Option func(*Reporter)

// WithClock replaces the wall clock used for run timing
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// WithOutput redirects the console summary, which defaults to stdout
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) {
		r.out = w
	}
}

// WithViewer replaces the system viewer used when the config asks to open the report
func WithViewer(v Viewer) Option {
	return func(r *Reporter) {
		r.viewer = v
	}
}

// WithRunID sets the run identity instead of generating one
func WithRunID(id string) Option {
	return func(r *Reporter) {
		r.runID = id
	}
}

// NewReporter creates a reporter for one run
func NewReporter(cfg *Config, opts ...Option) *Reporter {
	r := &Reporter{
		cfg:    cfg,
		log:    cfg.Log,
		now:    time.Now,
		out:    os.Stdout,
		viewer: NewSystemViewer(),
		tracer: otel.Tracer("craft-report"),
		runID:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = log.Root()
	}
	r.agg = aggregator.New(aggregator.WithClock(r.now))
	return r
}

// RunID returns the identity of the run
func (r *Reporter) RunID() string {
	return r.runID
}

// Begin starts the run. testCount is informational.
func (r *Reporter) Begin(testCount int) {
	r.agg.Begin(testCount)
	r.log.Info("Test run started", "run_id", r.runID, "expected_tests", testCount)
}

// TestConcluded records one concluded test attempt, replacing any earlier attempt of the same test
func (r *Reporter) TestConcluded(c types.TestConclusion) {
	outcome := NewOutcome(c)
	r.agg.RecordOutcome(outcome)
	metrics.RecordOutcome(outcome.Status, outcome.Duration())
	r.log.Debug("Test concluded",
		"run_id", r.runID,
		"test", outcome.FullTitle,
		"status", outcome.Status,
		"retry", outcome.Retry,
		"duration", outcome.Duration())
}

// End finalizes the run, writes the report artifacts and prints the console summary.
// Failing to push metrics or to open the viewer is logged, never returned.
func (r *Reporter) End(ctx context.Context, status types.TestStatus) (*reporting.Result, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("report %s", r.runID))
	defer span.End()

	summary := r.agg.Finalize(types.ParseTestStatus(string(status)))
	summary.RunID = r.runID
	summary.Title = r.cfg.Title
	summary.Comments = comments.Load(r.log, r.cfg.CommentsPath())
	span.SetAttributes(
		attribute.String("run_id", summary.RunID),
		attribute.String("status", string(summary.Status)),
		attribute.Int("tests", summary.Total),
		attribute.Int("failed", summary.Failed),
	)

	artifacts, err := r.render(ctx, summary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordErrorDetails("report", err)
		return nil, err
	}

	if err := reporting.PrintSummary(r.out, summary, artifacts); err != nil {
		r.log.Warn("Failed to print summary", "err", err)
	}

	metrics.RecordRun(summary)
	if r.cfg.MetricsPushURL != "" {
		if err := metrics.Push(ctx, r.cfg.MetricsPushURL); err != nil {
			r.log.Warn("Failed to push run metrics", "url", r.cfg.MetricsPushURL, "err", err)
			metrics.RecordErrorDetails("push", err)
		}
	}

	r.log.Info("Report written",
		"run_id", summary.RunID,
		"status", summary.Status,
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"report", artifacts.DocumentPath)

	if r.cfg.Open {
		if err := r.viewer.Open(ctx, artifacts.DocumentPath); err != nil {
			r.log.Warn("Failed to open report", "path", artifacts.DocumentPath, "err", err)
		}
	}

	return &reporting.Result{Summary: summary, Artifacts: artifacts}, nil
}

func (r *Reporter) render(ctx context.Context, summary *types.RunSummary) (*reporting.Artifacts, error) {
	bundle := reporting.LoadBundle(r.log, reporting.DefaultSources(r.cfg.TemplateDir, r.cfg.WorkDir), r.cfg.Logo)

	_, span := r.tracer.Start(ctx, "synthesize")
	docs, err := reporting.Synthesize(summary, bundle, r.cfg.Title)
	span.End()
	if err != nil {
		return nil, err
	}

	ctx, span = r.tracer.Start(ctx, "write")
	defer span.End()
	artifacts, err := reporting.WriteDocuments(ctx, docs, r.cfg.OutputDir, r.cfg.OutputFile)
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// NewOutcome builds the stored record of one conclusion. The error trace is kept only
// for failed and timed out tests and loses its ANSI escapes; negative durations and
// retries clamp to zero.
func NewOutcome(c types.TestConclusion) types.TestOutcome {
	titlePath := slices.Clone(c.TitlePath)
	if len(titlePath) == 0 && c.Title != "" {
		titlePath = []string{c.Title}
	}
	if titlePath == nil {
		titlePath = []string{}
	}

	status := types.ParseTestStatus(string(c.Status))
	var errText string
	if status.IsFailure() {
		errText = stripansi.Strip(c.Error)
	}

	return types.TestOutcome{
		ID:         c.ID,
		Title:      c.Title,
		TitlePath:  titlePath,
		FullTitle:  types.JoinTitlePath(titlePath),
		Status:     status,
		DurationMs: max(c.DurationMs, 0),
		Error:      errText,
		Metadata:   metadata.Normalize(c.Annotations, titlePath),
		Location:   c.Location,
		StartTime:  types.Timestamp(c.StartTime),
		Retry:      max(c.Retry, 0),
	}
}
