package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	metricPrefix = "cashup_"

	resultSuccess = "success"
	resultError   = "error"
	resultQueued  = "queued"
	resultRefused = "refused"
)

var (
	registerOnce sync.Once

	submissionTotal   *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec

	reviewTotal *prometheus.CounterVec

	syncRuns     *prometheus.CounterVec
	syncRecords  *prometheus.CounterVec
	syncDuration prometheus.Histogram

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	varianceAbs *prometheus.HistogramVec
)

// Init registers metrics and DB-backed gauges. db may be nil.
func Init(db *sql.DB, logger logrus.FieldLogger) {
	registerOnce.Do(func() {
		submissionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "submissions_total",
				Help: "Total reconciliation submissions by result",
			},
			[]string{"result"},
		)
		submissionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "submission_latency_seconds",
				Help:    "Submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reviewTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "review_actions_total",
				Help: "Total review actions by action and result",
			},
			[]string{"action", "result"},
		)

		syncRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_runs_total",
				Help: "Total pending sync runs by result",
			},
			[]string{"result"},
		)
		syncRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_records_total",
				Help: "Pending records attempted by outcome",
			},
			[]string{"outcome"},
		)
		syncDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sync_duration_seconds",
				Help:    "Pending sync run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total record exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Record export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		varianceAbs = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "submitted_variance_abs",
				Help:    "Absolute variance of submitted records by classification",
				Buckets: []float64{0.01, 1, 5, 20, 50, 100, 500},
			},
			[]string{"classification"},
		)

		prometheus.MustRegister(
			submissionTotal,
			submissionLatency,
			reviewTotal,
			syncRuns,
			syncRecords,
			syncDuration,
			exportTotal,
			exportLatency,
			varianceAbs,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveSubmission records submission latency and result.
func ObserveSubmission(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if submissionTotal != nil {
		submissionTotal.WithLabelValues(result).Inc()
	}
	if submissionLatency != nil {
		submissionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveVariance records the absolute variance of a submitted record.
func ObserveVariance(classification string, abs float64) {
	if classification == "" {
		classification = "unknown"
	}
	if varianceAbs != nil {
		varianceAbs.WithLabelValues(classification).Observe(abs)
	}
}

// IncReviewAction increments the review action counter.
func IncReviewAction(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reviewTotal != nil {
		reviewTotal.WithLabelValues(action, result).Inc()
	}
}

// ObserveSync records a pending sync run.
func ObserveSync(synced, total int, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if syncRuns != nil {
		syncRuns.WithLabelValues(result).Inc()
	}
	if syncRecords != nil {
		if synced > 0 {
			syncRecords.WithLabelValues("synced").Add(float64(synced))
		}
		if failed := total - synced; failed > 0 {
			syncRecords.WithLabelValues("failed").Add(float64(failed))
		}
	}
	if syncDuration != nil {
		syncDuration.Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultQueued  = resultQueued
	ResultRefused = resultRefused
)
