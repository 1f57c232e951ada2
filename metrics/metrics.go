package metrics

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ethereum-optimism/craft-report/types"
)

const (
	MetricsNamespace = "craft_report"

	// PushJob is the Pushgateway job name used for run metrics
	PushJob = "craft_report"
)

var (
	Debug bool = true

	// Registry holds only craft-report collectors, so a push never carries process metrics
	Registry = prometheus.NewRegistry()

	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	factory = promauto.With(Registry)

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of concluded tests, retries included",
	}, []string{
		"status",
	})

	testDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of concluded tests",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{
		"status",
	})

	runTests = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests",
		Help:      "Distinct tests of a finalized run by status",
	}, []string{
		"run_id",
		"status",
	})

	runFlaky = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_flaky_tests",
		Help:      "Tests of a finalized run whose surviving outcome was a retry",
	}, []string{
		"run_id",
	})

	runResult = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_result",
		Help:      "Final status of a run",
	}, []string{
		"run_id",
		"status",
	})

	runDuration = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of a run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordOutcome counts one test conclusion as it arrives
func RecordOutcome(status types.TestStatus, duration time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"status", status,
			"duration", duration)
	}
	testsTotal.WithLabelValues(string(status)).Inc()
	testDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// RecordRun publishes the statistics of a finalized run
func RecordRun(summary *types.RunSummary) {
	id := summary.RunID
	runTests.WithLabelValues(id, string(types.TestStatusPassed)).Set(float64(summary.Passed))
	runTests.WithLabelValues(id, string(types.TestStatusFailed)).Set(float64(summary.Failed))
	runTests.WithLabelValues(id, string(types.TestStatusSkipped)).Set(float64(summary.Skipped))
	runTests.WithLabelValues(id, string(types.TestStatusUnknown)).Set(float64(summary.Unknown))
	runFlaky.WithLabelValues(id).Set(float64(summary.Flaky))
	runResult.WithLabelValues(id, string(summary.Status)).Set(1)
	runDuration.WithLabelValues(id).Set(summary.Duration().Seconds())
}

// Push sends every craft-report collector to a Pushgateway
func Push(ctx context.Context, url string) error {
	if err := push.New(url, PushJob).Gatherer(Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// Handler serves the craft-report collectors in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
