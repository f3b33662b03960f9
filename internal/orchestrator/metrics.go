package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for analysis runs.
type Metrics struct {
	RunsStartedTotal   *prometheus.CounterVec
	RunsCompletedTotal *prometheus.CounterVec
	RunsFailedTotal    *prometheus.CounterVec

	StageFailuresTotal *prometheus.CounterVec

	GenerationConflictsTotal prometheus.Counter
	PollAttempts             prometheus.Histogram

	RecentCacheHitsTotal   prometheus.Counter
	RecentCacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers run metrics. Registration happens once
// globally; subsequent calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsStartedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repoquiz_runs_started_total",
					Help: "Total number of analysis runs started",
				},
				[]string{"mode"},
			),

			RunsCompletedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repoquiz_runs_completed_total",
					Help: "Total number of analysis runs that reached 100 percent",
				},
				[]string{"mode"},
			),

			RunsFailedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repoquiz_runs_failed_total",
					Help: "Total number of analysis runs that ended in a terminal failure",
				},
				[]string{"mode"},
			),

			StageFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repoquiz_stage_failures_total",
					Help: "Total number of stage failures, fatal and swallowed",
				},
				[]string{"step", "fatal"},
			),

			GenerationConflictsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "repoquiz_generation_conflicts_total",
					Help: "Total number of 409 responses from the generation endpoint",
				},
			),

			PollAttempts: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "repoquiz_poll_attempts",
					Help:    "Distribution of conflict-recovery poll attempts per run",
					Buckets: prometheus.LinearBuckets(1, 1, maxPollAttempts),
				},
			),

			RecentCacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "repoquiz_recent_cache_hits_total",
					Help: "Total number of recent-analysis cache hits",
				},
			),

			RecentCacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "repoquiz_recent_cache_misses_total",
					Help: "Total number of recent-analysis cache misses",
				},
			),
		}
	})
	return globalMetrics
}

// RecordRunStarted records a run start.
func (m *Metrics) RecordRunStarted(mode progress.Mode) {
	m.RunsStartedTotal.WithLabelValues(string(mode)).Inc()
}

// RecordRunCompleted records a successful run.
func (m *Metrics) RecordRunCompleted(mode progress.Mode) {
	m.RunsCompletedTotal.WithLabelValues(string(mode)).Inc()
}

// RecordRunFailed records a terminally failed run.
func (m *Metrics) RecordRunFailed(mode progress.Mode) {
	m.RunsFailedTotal.WithLabelValues(string(mode)).Inc()
}

// RecordStageFailure records a stage failure. fatal is false for the
// swallowed non-fatal stages.
func (m *Metrics) RecordStageFailure(step progress.StepKey, fatal bool) {
	label := "false"
	if fatal {
		label = "true"
	}
	m.StageFailuresTotal.WithLabelValues(string(step), label).Inc()
}

// RecordGenerationConflict records a 409 from the generation endpoint.
func (m *Metrics) RecordGenerationConflict() {
	m.GenerationConflictsTotal.Inc()
}

// RecordPollAttempt records one conflict-recovery poll.
func (m *Metrics) RecordPollAttempt(attempt int) {
	m.PollAttempts.Observe(float64(attempt))
}

// RecordRecentCacheHit records a fresh read of the recent-analysis cache.
func (m *Metrics) RecordRecentCacheHit() {
	m.RecentCacheHitsTotal.Inc()
}

// RecordRecentCacheMiss records a stale or empty recent-analysis cache read.
func (m *Metrics) RecordRecentCacheMiss() {
	m.RecentCacheMissesTotal.Inc()
}
